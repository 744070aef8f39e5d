package config

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GYM_USERNAME", "GYM_PASSWORD", "GYM_RESERVATION_URL",
		"USE_MANAGED_SECRETS", "SECRET_PROJECT_ID",
		"GYM_USERNAME_SELECTOR", "GYM_TIME_SLOT_SELECTOR", "GYM_LOGIN_TIMEOUT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestResolveFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYM_USERNAME", "jane")
	t.Setenv("GYM_PASSWORD", "secret")
	t.Setenv("GYM_RESERVATION_URL", "https://gym.example.com/login")

	s, err := Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Username != "jane" || s.Password != "secret" {
		t.Fatalf("credentials not resolved: %+v", s)
	}
	if s.ReservationURL != "https://gym.example.com/login" {
		t.Fatalf("unexpected url: %s", s.ReservationURL)
	}
}

func TestResolveSelectorDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYM_USERNAME", "jane")
	t.Setenv("GYM_PASSWORD", "secret")
	t.Setenv("GYM_RESERVATION_URL", "https://gym.example.com/login")

	s, err := Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Selectors.Username != "input[name='username']" {
		t.Fatalf("unexpected username selector default: %s", s.Selectors.Username)
	}
	if s.Selectors.TimeSlot != "//*[contains(text(), '11:00')]" {
		t.Fatalf("unexpected time slot selector default: %s", s.Selectors.TimeSlot)
	}
	if s.Selectors.PostLogin != "" {
		t.Fatalf("post login selector should default to empty, got %s", s.Selectors.PostLogin)
	}
	if s.Timeouts.Login != 20*time.Second {
		t.Fatalf("unexpected login timeout default: %v", s.Timeouts.Login)
	}
	if s.Timeouts.PollInterval != 200*time.Millisecond {
		t.Fatalf("unexpected poll interval default: %v", s.Timeouts.PollInterval)
	}
}

func TestResolveSelectorOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYM_USERNAME", "jane")
	t.Setenv("GYM_PASSWORD", "secret")
	t.Setenv("GYM_RESERVATION_URL", "https://gym.example.com/login")
	t.Setenv("GYM_TIME_SLOT_SELECTOR", "button.slot-1100")

	s, err := Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Selectors.TimeSlot != "button.slot-1100" {
		t.Fatalf("expected selector override, got %s", s.Selectors.TimeSlot)
	}
}

func TestResolveMissingUsername(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYM_PASSWORD", "secret")
	t.Setenv("GYM_RESERVATION_URL", "https://gym.example.com/login")

	_, err := Resolve(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error for missing username")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a ConfigError, got %T: %v", err, err)
	}
	if len(ce.Missing) != 1 || ce.Missing[0] != "GYM_USERNAME" {
		t.Fatalf("expected missing field GYM_USERNAME, got %v", ce.Missing)
	}
}

func TestResolveMissingAll(t *testing.T) {
	clearEnv(t)

	_, err := Resolve(context.Background(), "")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a ConfigError, got %T: %v", err, err)
	}
	if len(ce.Missing) != 3 {
		t.Fatalf("expected 3 missing fields, got %v", ce.Missing)
	}
}

func TestResolveManagedSecretsWithoutProject(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_MANAGED_SECRETS", "true")

	_, err := Resolve(context.Background(), "")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a ConfigError, got %T: %v", err, err)
	}
	if len(ce.Missing) != 1 || ce.Missing[0] != "SECRET_PROJECT_ID" {
		t.Fatalf("expected missing field SECRET_PROJECT_ID, got %v", ce.Missing)
	}
}

func TestResolveFromYamlFile(t *testing.T) {
	clearEnv(t)
	content := `
username: jane
password: secret
reservation_url: https://gym.example.com/login
selectors:
  time_slot: button.slot-1100
`
	p := path.Join(t.TempDir(), "gymbot.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	s, err := Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Username != "jane" {
		t.Fatalf("expected username from yaml, got '%s'", s.Username)
	}
	if s.Selectors.TimeSlot != "button.slot-1100" {
		t.Fatalf("expected time slot selector from yaml, got '%s'", s.Selectors.TimeSlot)
	}
	// defaults still apply to fields the file does not set
	if s.Timeouts.Login != 20*time.Second {
		t.Fatalf("unexpected login timeout default: %v", s.Timeouts.Login)
	}
	if s.Selectors.LoginButton != "button[type='submit']" {
		t.Fatalf("unexpected login button selector: %s", s.Selectors.LoginButton)
	}
}

func TestResolveEnvOverridesYaml(t *testing.T) {
	clearEnv(t)
	content := `
username: jane
password: secret
reservation_url: https://gym.example.com/login
`
	p := path.Join(t.TempDir(), "gymbot.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("GYM_USERNAME", "john")

	s, err := Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Username != "john" {
		t.Fatalf("expected env to override yaml, got '%s'", s.Username)
	}
	if s.Password != "secret" {
		t.Fatalf("expected yaml password to survive, got '%s'", s.Password)
	}
}

func TestRedacted(t *testing.T) {
	s := &Settings{Username: "jane", Password: "secret", ReservationURL: "https://gym.example.com"}
	r := s.Redacted()
	if r.Username == "jane" || r.Password == "secret" {
		t.Fatalf("credentials not redacted: %+v", r)
	}
	if r.ReservationURL != "https://gym.example.com" {
		t.Fatalf("url should not be redacted, got '%s'", r.ReservationURL)
	}
	if s.Username != "jane" {
		t.Fatal("redaction must not mutate the original settings")
	}
}
