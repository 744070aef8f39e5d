package secrets

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretManagerSource reads credentials from GCP Secret Manager. Secrets
// are expected to live under the configured project with the logical keys
// as secret ids, eg projects/<id>/secrets/gym-username/versions/latest.
type SecretManagerSource struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerSource(ctx context.Context, projectID string) (*SecretManagerSource, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &SecretManagerSource{
		client:    client,
		projectID: projectID,
	}, nil
}

func (s *SecretManagerSource) Fetch(ctx context.Context, key string) (string, error) {
	name := secretVersionName(s.projectID, key)
	slog.Debug("accessing secret version", slog.String("name", name))
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", key, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (s *SecretManagerSource) Close() error {
	return s.client.Close()
}

func secretVersionName(projectID, key string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, key)
}
