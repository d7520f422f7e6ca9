package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validOAuthJSON = `{
  "installed": {
    "client_id": "test-client-id.apps.googleusercontent.com",
    "project_id": "test-project",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "test-secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func writeOAuthFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadOAuthClientFromPath_Valid(t *testing.T) {
	cfg, err := LoadOAuthClientFromPath(writeOAuthFile(t, validOAuthJSON))
	require.NoError(t, err)

	assert.Equal(t, "test-client-id.apps.googleusercontent.com", cfg.Installed.ClientID)
	assert.Equal(t, []string{"http://localhost"}, cfg.Installed.RedirectURIs)
}

func TestLoadOAuthClientFromPath_MissingClientID(t *testing.T) {
	content := `{"installed": {"project_id": "p", "auth_uri": "https://a.example.com", "token_uri": "https://t.example.com",
		"auth_provider_x509_cert_url": "https://c.example.com", "client_secret": "s", "redirect_uris": ["http://localhost"]}}`

	_, err := LoadOAuthClientFromPath(writeOAuthFile(t, content))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadOAuthClientFromPath_InvalidURL(t *testing.T) {
	content := `{"installed": {"client_id": "c", "project_id": "p", "auth_uri": "not-a-valid-url", "token_uri": "https://t.example.com",
		"auth_provider_x509_cert_url": "https://c.example.com", "client_secret": "s", "redirect_uris": ["http://localhost"]}}`

	_, err := LoadOAuthClientFromPath(writeOAuthFile(t, content))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadOAuthClientFromPath_EmptyRedirectURIs(t *testing.T) {
	content := `{"installed": {"client_id": "c", "project_id": "p", "auth_uri": "https://a.example.com", "token_uri": "https://t.example.com",
		"auth_provider_x509_cert_url": "https://c.example.com", "client_secret": "s", "redirect_uris": []}}`

	_, err := LoadOAuthClientFromPath(writeOAuthFile(t, content))
	assert.Error(t, err)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	_, err := LoadOAuthClientFromPath(writeOAuthFile(t, "{not json"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}
