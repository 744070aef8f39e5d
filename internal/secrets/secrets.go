// Package secrets provides the credential sources the config resolution
// can choose from: plain environment variables or a managed secret store.
package secrets

import (
	"context"
	"os"
)

// Logical credential keys. The same keys are used as secret ids in the
// managed store and mapped to environment variables by the EnvSource.
const (
	KeyUsername       = "gym-username"
	KeyPassword       = "gym-password"
	KeyReservationURL = "gym-reservation-url"
)

// A Source fetches a named credential value. An absent value is returned
// as an empty string without error; deciding whether that is fatal is up
// to the caller.
type Source interface {
	Fetch(ctx context.Context, key string) (string, error)
}

var envVarForKey = map[string]string{
	KeyUsername:       "GYM_USERNAME",
	KeyPassword:       "GYM_PASSWORD",
	KeyReservationURL: "GYM_RESERVATION_URL",
}

// EnvSource reads credentials from environment variables.
type EnvSource struct{}

func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

func (s *EnvSource) Fetch(_ context.Context, key string) (string, error) {
	name, ok := envVarForKey[key]
	if !ok {
		return "", nil
	}
	return os.Getenv(name), nil
}
