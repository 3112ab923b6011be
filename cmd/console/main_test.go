package main

import (
	"strings"
	"testing"
)

func TestLoadConsoleConfig(t *testing.T) {
	t.Setenv("CONSOLE_SERVER_URL", "http://localhost:8080/")
	t.Setenv("CONSOLE_USERNAME", "operator")
	t.Setenv("CONSOLE_PASSWORD", "secret")
	t.Setenv("CONSOLE_STATE_DIR", "")

	cfg, err := loadConsoleConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.apiURL != "http://localhost:8080" {
		t.Fatalf("trailing slash must be trimmed, got %q", cfg.apiURL)
	}
	if cfg.stateDir != "console-state" {
		t.Fatalf("expected default state dir, got %q", cfg.stateDir)
	}
}

func TestLoadConsoleConfig_RequiresServerURL(t *testing.T) {
	t.Setenv("CONSOLE_SERVER_URL", "")
	t.Setenv("CONSOLE_USERNAME", "operator")
	t.Setenv("CONSOLE_PASSWORD", "secret")

	_, err := loadConsoleConfig()
	if err == nil || !strings.Contains(err.Error(), "CONSOLE_SERVER_URL") {
		t.Fatalf("expected CONSOLE_SERVER_URL error, got %v", err)
	}
}

func TestWSEventsURL(t *testing.T) {
	if got := wsEventsURL("https://api.example.com"); got != "wss://api.example.com/v1/events" {
		t.Fatalf("unexpected events url: %q", got)
	}
}
