package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"

	"midnight-village/internal/config"
	"midnight-village/internal/logging"
	"midnight-village/internal/room"
	"midnight-village/internal/store"
	"midnight-village/internal/ws"
)

func newRouter(mgr *room.Manager, gateway *ws.Server, st *store.Store, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))

	// The socket stays outside the request logger: it lives for the whole
	// game.
	r.Get("/ws", gateway.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())

		r.Get("/rooms", listRoomsHandler(mgr))
		r.Post("/rooms", createRoomHandler(mgr))
		r.Get("/rooms/{room_id}", roomStateHandler(mgr))
		r.Get("/rooms/{room_id}/log", roomLogHandler(mgr))

		r.Get("/public/games", recentGamesHandler(st))
		r.Get("/public/games/{game_id}/players", gamePlayersHandler(st))
		r.Get("/public/leaderboard", leaderboardHandler(st))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(cfg.AdminAPIKey))
			r.Delete("/rooms/{room_id}", removeRoomHandler(mgr))
			r.Post("/presets", savePresetHandler(st))
		})
	})
	return r
}

func apiLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

func adminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || !checkAdminAuth(r, adminKey) {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v == adminKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == adminKey
	}
	return false
}
