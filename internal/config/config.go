// Package config resolves all settings of a reservation run, from
// environment variables, an optional yaml file and, for credentials, an
// optional managed secret store. The resulting Settings value is built
// once at process start and never mutated afterwards.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jakopako/gymbot/internal/secrets"
)

// Debug is set based on the debug command line flag.
var Debug bool

type ctxKey string

// LoggerCtxKey is the key under which a logger can be stored in a context.
const LoggerCtxKey = ctxKey("logger")

// GetLogLevel returns the log level that corresponds to the debug flag.
func GetLogLevel() slog.Level {
	if Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Selectors is the typed table of CSS selectors the workflow uses, one per
// step. Selectors starting with a '/' are interpreted as XPath expressions.
// An empty selector means the corresponding step is skipped or falls back
// to its documented alternative behavior.
type Selectors struct {
	Username            string `yaml:"username" env:"GYM_USERNAME_SELECTOR" env-default:"input[name='username']"`
	Password            string `yaml:"password" env:"GYM_PASSWORD_SELECTOR" env-default:"input[name='password']"`
	LoginButton         string `yaml:"login_button" env:"GYM_LOGIN_BUTTON_SELECTOR" env-default:"button[type='submit']"`
	PostLogin           string `yaml:"post_login" env:"GYM_POST_LOGIN_SELECTOR"`
	ExistingReservation string `yaml:"existing_reservation" env:"GYM_EXISTING_RESERVATION_SELECTOR"`
	ReservationPage     string `yaml:"reservation_page" env:"GYM_RESERVATION_PAGE_SELECTOR"`
	Date                string `yaml:"date" env:"GYM_DATE_SELECTOR"`
	TimeSlot            string `yaml:"time_slot" env:"GYM_TIME_SLOT_SELECTOR" env-default:"//*[contains(text(), '11:00')]"`
	Submit              string `yaml:"submit" env:"GYM_SUBMIT_SELECTOR" env-default:"button[type='submit']"`
	Success             string `yaml:"success" env:"GYM_SUCCESS_SELECTOR"`
}

// Timeouts holds the per-step wait windows. Each one is independently
// tunable via environment variables; the defaults match the waits the
// portal has needed so far.
type Timeouts struct {
	Login        time.Duration `yaml:"-" env:"GYM_LOGIN_TIMEOUT" env-default:"20s"`
	Probe        time.Duration `yaml:"-" env:"GYM_PROBE_TIMEOUT" env-default:"10s"`
	Booking      time.Duration `yaml:"-" env:"GYM_BOOKING_TIMEOUT" env-default:"20s"`
	Confirm      time.Duration `yaml:"-" env:"GYM_CONFIRM_TIMEOUT" env-default:"10s"`
	Settle       time.Duration `yaml:"-" env:"GYM_SETTLE_DELAY" env-default:"2s"`
	PollInterval time.Duration `yaml:"-" env:"GYM_POLL_INTERVAL" env-default:"200ms"`
}

// Settings defines the full configuration of one reservation run.
type Settings struct {
	Username          string    `yaml:"username"`
	Password          string    `yaml:"password"`
	ReservationURL    string    `yaml:"reservation_url"`
	UseManagedSecrets bool      `yaml:"use_managed_secrets" env:"USE_MANAGED_SECRETS"`
	SecretProjectID   string    `yaml:"secret_project_id" env:"SECRET_PROJECT_ID"`
	UserAgent         string    `yaml:"user_agent" env:"GYM_USER_AGENT" env-default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	LogFile           string    `yaml:"log_file" env:"GYM_LOG_FILE" env-default:"gym_reservation.log"`
	DebugDir          string    `yaml:"debug_dir" env:"GYM_DEBUG_DIR" env-default:"debug"`
	Selectors         Selectors `yaml:"selectors"`
	Timeouts          Timeouts  `yaml:"-"`
}

// ConfigError indicates missing or invalid settings. It aborts the run
// before any browser interaction.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Resolve builds the Settings for one run. Selector and timeout fields come
// from environment variables (or the yaml file at configPath, if given)
// with built-in defaults. Credentials come from exactly one source, chosen
// by the USE_MANAGED_SECRETS flag: environment variables or GCP Secret
// Manager. The two are never mixed within a run.
func Resolve(ctx context.Context, configPath string) (*Settings, error) {
	var s Settings
	var err error
	if configPath != "" {
		err = cleanenv.ReadConfig(configPath, &s)
	} else {
		err = cleanenv.ReadEnv(&s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var src secrets.Source
	if s.UseManagedSecrets {
		if s.SecretProjectID == "" {
			return nil, &ConfigError{Missing: []string{"SECRET_PROJECT_ID"}}
		}
		slog.Info("retrieving credentials from secret manager", slog.String("project", s.SecretProjectID))
		sms, err := secrets.NewSecretManagerSource(ctx, s.SecretProjectID)
		if err != nil {
			return nil, err
		}
		defer sms.Close()
		src = sms
	} else {
		slog.Debug("retrieving credentials from environment variables")
		src = secrets.NewEnvSource()
	}

	if err := fetchCredentials(ctx, src, &s); err != nil {
		return nil, err
	}

	if missing := missingRequired(&s); len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}
	return &s, nil
}

// fetchCredentials overlays the credential fields with whatever the chosen
// source provides. Values already present in the yaml file stay in place
// when the source has nothing, the same layering cleanenv applies to its
// own env overrides.
func fetchCredentials(ctx context.Context, src secrets.Source, s *Settings) error {
	for _, f := range []struct {
		key  string
		dest *string
	}{
		{secrets.KeyUsername, &s.Username},
		{secrets.KeyPassword, &s.Password},
		{secrets.KeyReservationURL, &s.ReservationURL},
	} {
		v, err := src.Fetch(ctx, f.key)
		if err != nil {
			return err
		}
		if v != "" {
			*f.dest = v
		}
	}
	return nil
}

func missingRequired(s *Settings) []string {
	var missing []string
	if s.Username == "" {
		missing = append(missing, "GYM_USERNAME")
	}
	if s.Password == "" {
		missing = append(missing, "GYM_PASSWORD")
	}
	if s.ReservationURL == "" {
		missing = append(missing, "GYM_RESERVATION_URL")
	}
	return missing
}

// Redacted returns a copy of the settings with the credential values
// replaced, for printing.
func (s *Settings) Redacted() Settings {
	c := *s
	if c.Username != "" {
		c.Username = "<redacted>"
	}
	if c.Password != "" {
		c.Password = "<redacted>"
	}
	return c
}
