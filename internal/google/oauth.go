package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

// oobRedirect is the copy-paste redirect used by the CLI auth flow.
const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

// OAuthConfig holds the Google OAuth client credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfigFromEnv fills empty credentials from GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET.
func OAuthConfigFromEnv(cfg OAuthConfig) OAuthConfig {
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	return cfg
}

// Validate checks that client credentials are present.
func (c OAuthConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("google OAuth client credentials are required (set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET)")
	}
	return nil
}

// OAuth2 returns the oauth2 configuration for the calendar scopes.
func (c OAuthConfig) OAuth2() *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = oobRedirect
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       CalendarScopes,
	}
}

// AuthURL returns the URL the user visits to authorize an account.
func (c OAuthConfig) AuthURL(state string) string {
	return c.OAuth2().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token.
func (c OAuthConfig) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.OAuth2().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// HTTPClient returns an authenticated client for account. Refreshed tokens
// are written back through provider when it can store them.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, cfg OAuthConfig, provider TokenProvider, account string) (*http.Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}
	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	ts := cfg.OAuth2().TokenSource(ctx, token)
	if saver, ok := provider.(TokenSaver); ok {
		ts = &savingTokenSource{base: ts, saver: saver, account: account, last: token.AccessToken}
	}

	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}

// savingTokenSource persists tokens whenever the access token changes.
type savingTokenSource struct {
	base    oauth2.TokenSource
	saver   TokenSaver
	account string
	last    string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if t.AccessToken != s.last {
		s.last = t.AccessToken
		if err := s.saver.SaveTokenForAccount(s.account, t); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
	}
	return t, nil
}

// GetAuthenticationErrorMessage returns the hint shown when an account has no token.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("No Google OAuth token found for account %q. Run 'meetgate auth --account %s' to complete the OAuth flow.", account, account)
}

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// DefaultTokenDir is where tokens are kept when no directory is configured.
func DefaultTokenDir() string {
	return filepath.Join(userCacheDir(), "meetgate")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
