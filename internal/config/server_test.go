package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MaxRooms != 64 {
		t.Fatalf("MaxRooms = %d, want 64", cfg.MaxRooms)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("PostgresDSN must default empty, got %q", cfg.PostgresDSN)
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAX_ROOMS", "8")
	t.Setenv("ROOM_IDLE_MINUTES", "5")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MaxRooms != 8 || cfg.RoomIdleMinutes != 5 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
