package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileTokenProvider_RoundTrip(t *testing.T) {
	p := NewFileTokenProvider(filepath.Join(t.TempDir(), "tokens"))
	assert.False(t, p.HasTokenForAccount("work"))

	_, err := p.GetTokenForAccount(context.Background(), "work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meetgate auth --account work")

	want := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, p.SaveTokenForAccount("work", want))
	assert.True(t, p.HasTokenForAccount("work"))
	assert.FileExists(t, filepath.Join(p.Dir(), "google-work.token"))

	got, err := p.GetTokenForAccount(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

func TestFileTokenProvider_InvalidAccount(t *testing.T) {
	p := NewFileTokenProvider(t.TempDir())
	assert.False(t, p.HasTokenForAccount("invalid account"))
	assert.False(t, p.HasTokenForAccount(""))
	assert.Error(t, p.SaveTokenForAccount("../escape", &oauth2.Token{AccessToken: "x"}))
}

func TestOAuthConfig(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")

	cfg := OAuthConfigFromEnv(OAuthConfig{ClientID: "flag-id"})
	assert.Equal(t, "flag-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	require.NoError(t, cfg.Validate())

	conf := cfg.OAuth2()
	assert.Equal(t, oobRedirect, conf.RedirectURL)
	assert.Equal(t, CalendarScopes, conf.Scopes)

	url := cfg.AuthURL("state-123")
	assert.True(t, strings.Contains(url, "state=state-123"))
	assert.True(t, strings.Contains(url, "access_type=offline"))

	assert.Error(t, OAuthConfig{}.Validate())
}

func TestHTTPClient_RequiresToken(t *testing.T) {
	_, err := HTTPClient(context.Background(), OAuthConfig{}, nil, DefaultAccount)
	assert.Error(t, err)

	_, err = HTTPClient(context.Background(), OAuthConfig{}, NewFileTokenProvider(t.TempDir()), DefaultAccount)
	assert.Error(t, err)
}

func TestGetAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work", "personal"} {
		msg := GetAuthenticationErrorMessage(account)
		assert.Contains(t, msg, account)
		assert.Contains(t, msg, "OAuth")
	}
}
