package cmd

import (
	"fmt"
	"os"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/google"

	"github.com/spf13/cobra"
	drivev3 "google.golang.org/api/drive/v3"
	gmailv1 "google.golang.org/api/gmail/v1"
)

var authCallbackAddr string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to external services",
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Run the Google OAuth consent flow",
	Long: `Authorize Drive uploads and Gmail notifications with a Google account.

Reads the OAuth client from google.credentials_file, opens the consent page
and stores the resulting token in google.token_file. Service accounts do not
need this step.

Example:
  n8n-video-renderer auth google`,
	RunE: runAuthGoogle,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authGoogleCmd)
	authGoogleCmd.Flags().StringVar(&authCallbackAddr, "callback", "localhost:8085", "Local address for the OAuth redirect")
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if cfg.Google.CredentialsFile == "" {
		return fmt.Errorf("google.credentials_file is not set")
	}
	if cfg.Google.TokenFile == "" {
		return fmt.Errorf("google.token_file is not set")
	}

	return google.AuthorizeInteractive(
		cmd.Context(),
		cfg.Google.CredentialsFile,
		cfg.Google.TokenFile,
		authCallbackAddr,
		os.Stdout,
		drivev3.DriveFileScope,
		gmailv1.GmailSendScope,
	)
}
