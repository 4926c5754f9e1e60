package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/meetgate/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		account            string
		googleClientID     string
		googleClientSecret string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize meetgate to use a Google Calendar account",
		Long: `Run the Google OAuth flow for a calendar account and store the token.

Open the printed URL, grant access, and paste the authorization code back.
The token is written to calendar.token_dir (default: the user cache directory)
and refreshed automatically by 'meetgate serve'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.Calendar.Account
			}

			oc := oauthConfig(cfg, googleCredentials{ClientID: googleClientID, ClientSecret: googleClientSecret})
			if err := oc.Validate(); err != nil {
				return err
			}
			tokens := google.NewFileTokenProvider(cfg.Calendar.TokenDir)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Visit this URL to authorize account %q:\n\n%s\n\n", account, oc.AuthURL(uuid.New().String()))
			fmt.Fprint(out, "Authorization code: ")

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && code == "" {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("authorization code is required")
			}

			token, err := oc.Exchange(cmd.Context(), code)
			if err != nil {
				return err
			}
			if err := tokens.SaveTokenForAccount(account, token); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token for account %q saved in %s\n", account, tokens.Dir())
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account name to store the token under (default: calendar.account)")
	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth client ID (can also be set via GOOGLE_CLIENT_ID env var)")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth client secret (can also be set via GOOGLE_CLIENT_SECRET env var)")

	return cmd
}
