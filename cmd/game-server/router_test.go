package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"midnight-village/internal/config"
	"midnight-village/internal/room"
	"midnight-village/internal/ws"
)

func newTestRouter(t *testing.T) (*room.Manager, http.Handler) {
	t.Helper()
	cfg := config.GameConfig{
		HumanSpeechSeconds: 600,
		NightStepSeconds:   600,
		VoteSeconds:        600,
	}
	gateway := ws.NewServer()
	mgr := room.NewManager(cfg, 4, room.Options{Broadcaster: gateway, Seed: 9})
	gateway.Bind(mgr)
	t.Cleanup(mgr.Shutdown)
	return mgr, newRouter(mgr, gateway, nil, config.ServerConfig{AdminAPIKey: "secret"})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("bad response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHealthWithoutStore(t *testing.T) {
	_, h := newTestRouter(t)
	rec, out := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || out["ok"] != true || out["db"] != "disabled" {
		t.Fatalf("unexpected health response %d %+v", rec.Code, out)
	}
}

func TestRoomLifecycleOverREST(t *testing.T) {
	_, h := newTestRouter(t)

	rec, out := doJSON(t, h, http.MethodPost, "/api/rooms",
		`{"name":"cabin","host_name":"ann","seats":6}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create failed: %d %+v", rec.Code, out)
	}
	roomID, _ := out["room_id"].(string)
	if roomID == "" || out["player_id"] == "" {
		t.Fatalf("create must return ids, got %+v", out)
	}

	rec, out = doJSON(t, h, http.MethodGet, "/api/rooms", "", nil)
	if rec.Code != http.StatusOK || len(out["items"].([]any)) != 1 {
		t.Fatalf("expected one listed room, got %d %+v", rec.Code, out)
	}

	rec, out = doJSON(t, h, http.MethodGet, "/api/rooms/"+roomID, "", nil)
	if rec.Code != http.StatusOK || out["phase"] != "WAITING" {
		t.Fatalf("unexpected room state: %d %+v", rec.Code, out)
	}
	// Roles are never exposed on the public view.
	for _, p := range out["players"].([]any) {
		if _, ok := p.(map[string]any)["role"]; ok {
			t.Fatalf("public view leaked a role: %+v", p)
		}
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/rooms/"+roomID+"/log", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("log endpoint failed: %d", rec.Code)
	}

	rec, out = doJSON(t, h, http.MethodGet, "/api/rooms/missing", "", nil)
	if rec.Code != http.StatusNotFound || out["error"] != "room_not_found" {
		t.Fatalf("expected room_not_found, got %d %+v", rec.Code, out)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	_, h := newTestRouter(t)

	rec, out := doJSON(t, h, http.MethodPost, "/api/rooms",
		`{"name":"odd","host_name":"ann","seats":7}`, nil)
	if rec.Code != http.StatusBadRequest || out["error"] != "invalid_seat_count" {
		t.Fatalf("expected invalid_seat_count, got %d %+v", rec.Code, out)
	}
	rec, out = doJSON(t, h, http.MethodPost, "/api/rooms", `{"name":"x"}`, nil)
	if rec.Code != http.StatusBadRequest || out["error"] != "invalid_request" {
		t.Fatalf("expected invalid_request, got %d %+v", rec.Code, out)
	}
	rec, _ = doJSON(t, h, http.MethodPost, "/api/rooms", `{`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad json, got %d", rec.Code)
	}
}

func TestAdminAuthGuardsRemoval(t *testing.T) {
	mgr, h := newTestRouter(t)
	m, _, err := mgr.Create("cabin", "ann", 6)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, _ := doJSON(t, h, http.MethodDelete, "/api/rooms/"+m.ID(), "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodDelete, "/api/rooms/"+m.ID(), "",
		map[string]string{"X-Admin-Key": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}
	rec, out := doJSON(t, h, http.MethodDelete, "/api/rooms/"+m.ID(), "",
		map[string]string{"X-Admin-Key": "secret"})
	if rec.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("expected removal, got %d %+v", rec.Code, out)
	}
	if _, err := mgr.Get(m.ID()); err == nil {
		t.Fatal("room must be gone after removal")
	}
}

func TestHistoryEndpointsWithoutStore(t *testing.T) {
	_, h := newTestRouter(t)
	for _, path := range []string{
		"/api/public/games",
		"/api/public/games/g1/players",
		"/api/public/leaderboard",
	} {
		rec, out := doJSON(t, h, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusServiceUnavailable || out["error"] != "persistence_disabled" {
			t.Fatalf("%s: expected persistence_disabled, got %d %+v", path, rec.Code, out)
		}
	}
}
