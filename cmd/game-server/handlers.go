package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"midnight-village/internal/game"
	"midnight-village/internal/room"
	"midnight-village/internal/store"
)

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

func writeGameError(w http.ResponseWriter, err error) {
	switch err {
	case game.ErrRoomNotFound, game.ErrPlayerNotFound, store.ErrNotFound:
		writeHTTPError(w, http.StatusNotFound, err.Error())
	case game.ErrServerFull:
		writeHTTPError(w, http.StatusServiceUnavailable, err.Error())
	case game.ErrInvalidSeatCount, game.ErrRoomFull, game.ErrGameStarted,
		game.ErrInvalidPhase, game.ErrInvalidTarget:
		writeHTTPError(w, http.StatusBadRequest, err.Error())
	case game.ErrNotAuthorized:
		writeHTTPError(w, http.StatusForbidden, err.Error())
	default:
		writeHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := "disabled"
		if st != nil {
			db = "up"
			if err := st.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": db})
	}
}

func listRoomsHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": mgr.List()})
	}
}

func createRoomHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name     string `json:"name"`
			HostName string `json:"host_name"`
			Seats    int    `json:"seats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Name == "" || body.HostName == "" {
			writeHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if body.Seats == 0 {
			body.Seats = 6
		}
		m, hostID, err := mgr.Create(body.Name, body.HostName, body.Seats)
		if err != nil {
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"room_id":   m.ID(),
			"player_id": hostID,
			"ws_path":   "/ws",
		})
	}
}

func roomStateHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := mgr.Get(chi.URLParam(r, "room_id"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		// The REST view is the public one; private state flows over the
		// socket.
		view, err := m.View(r.URL.Query().Get("player_id"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(view)
	}
}

func roomLogHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := mgr.Get(chi.URLParam(r, "room_id"))
		if err != nil {
			writeGameError(w, err)
			return
		}
		entries, err := m.GameLog()
		if err != nil {
			writeGameError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": entries})
	}
}

func removeRoomHandler(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "room_id")
		if _, err := mgr.Get(id); err != nil {
			writeGameError(w, err)
			return
		}
		mgr.Remove(id)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func recentGamesHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "persistence_disabled")
			return
		}
		items, err := st.RecentGames(r.Context(), parseLimit(r))
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}

func gamePlayersHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "persistence_disabled")
			return
		}
		items, err := st.GamePlayers(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			if err == store.ErrNotFound {
				writeHTTPError(w, http.StatusNotFound, "game_not_found")
				return
			}
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}

func leaderboardHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "persistence_disabled")
			return
		}
		items, err := st.Leaderboard(r.Context(), parseLimit(r))
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}

func savePresetHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "persistence_disabled")
			return
		}
		var body struct {
			Seats  int            `json:"seats"`
			Preset map[string]int `json:"preset"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		preset := game.RolePreset{}
		total := 0
		for role, n := range body.Preset {
			preset[game.Role(role)] = n
			total += n
		}
		if body.Seats < 1 || total != body.Seats {
			writeHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err := st.SaveRolePreset(r.Context(), body.Seats, preset); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		game.Presets[body.Seats] = preset
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func parseLimit(r *http.Request) int {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}
