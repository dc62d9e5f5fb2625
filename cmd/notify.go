package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	appnotif "github.com/ROJSUWAN/n8n-video-renderer/application/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/google"

	"github.com/spf13/cobra"
)

var (
	notifyTo     []string
	notifySymbol string
	notifyURL    string
	notifyError  string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send completion notifications by hand",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample completion event through the configured notifiers",
	Long: `Send a sample completion event to check webhook, Telegram and email
settings without rendering anything.

With --to, only an email is sent, to recipients looked up by name (first
name, last name, or full name), config key or address. Multiple recipients
can be given with repeated --to flags or comma-separated values.

Examples:
  n8n-video-renderer notify test
  n8n-video-renderer notify test --error "ffmpeg error: no such file"
  n8n-video-renderer notify test --to jane --to somchai
  n8n-video-renderer notify test --to "jane,somchai" --symbol PTT`,
	RunE: runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
	notifyTestCmd.Flags().StringArrayVar(&notifyTo, "to", nil, "Email recipient(s) by name or config key (can be repeated or comma-separated)")
	notifyTestCmd.Flags().StringVar(&notifySymbol, "symbol", "TEST", "Stock symbol for the sample event")
	notifyTestCmd.Flags().StringVar(&notifyURL, "url", "https://storage.googleapis.com/example/TEST_000000.mp4", "Video URL for the sample event")
	notifyTestCmd.Flags().StringVar(&notifyError, "error", "", "Send a failure event with this error")
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	evt := SampleEvent(notifySymbol, notifyURL, notifyError, time.Now().UTC())
	creds := google.Credentials{
		ServiceAccountJSON: cfg.Google.ServiceAccountJSON,
		CredentialsFile:    cfg.Google.CredentialsFile,
		TokenFile:          cfg.Google.TokenFile,
	}

	if len(notifyTo) > 0 {
		if cfg.Notify.Email.FromAddress == "" {
			return fmt.Errorf("notify.email.from_address is not set")
		}

		lookup := config.NewRecipientLookup(cfg)
		recipients, err := lookup.LookupRecipients(notifyTo)
		if errors.Is(err, notification.ErrRecipientNotFound) {
			return fmt.Errorf("%w\n\nTo fix this, run:\n  %s", err, config.SuggestAddRecipientCommand(strings.ToLower(notifyTo[0])))
		}
		if err != nil {
			return fmt.Errorf("failed to lookup recipients: %w", err)
		}

		client, err := newGmailClient(ctx, cfg, creds)
		if err != nil {
			return fmt.Errorf("failed to create Gmail client: %w", err)
		}
		return RunSendEmailWithDependencies(ctx, client, recipients, evt, os.Stdout)
	}

	notifiers, err := newNotifiers(ctx, cfg, creds)
	if err != nil {
		return err
	}
	return RunNotifyTestWithDependencies(ctx, appnotif.NewService(logger, notifiers...), evt, os.Stdout)
}

// SampleEvent builds a completion event that looks like a real render
func SampleEvent(symbol, url, errMsg string, now time.Time) *notification.CompletionEvent {
	evt := &notification.CompletionEvent{
		JobID:      render.NewJobID(now),
		Symbol:     symbol,
		Status:     string(render.StatusSucceeded),
		URL:        url,
		Filename:   symbol + "_000000.mp4",
		SceneCount: 3,
		TradeSetup: map[string]any{"entry": 100.0, "target": 110.0, "stop": 95.0},
		FinishedAt: now,
	}
	if errMsg != "" {
		evt.Status = string(render.StatusFailed)
		evt.URL = ""
		evt.Error = errMsg
	}
	return evt
}

// RunNotifyTestWithDependencies fans the event out to every notifier (for testing)
func RunNotifyTestWithDependencies(ctx context.Context, service *appnotif.Service, evt *notification.CompletionEvent, output OutputWriter) error {
	if service.Len() == 0 {
		return fmt.Errorf("no notifiers configured")
	}

	fmt.Fprintf(output, "Sending %s event for %s to %d notifier(s)...\n", evt.Status, evt.Symbol, service.Len())
	if err := service.Notify(ctx, evt); err != nil {
		return fmt.Errorf("some notifications failed: %w", err)
	}
	fmt.Fprintf(output, "Notifications sent successfully!\n")
	return nil
}

// RunSendEmailWithDependencies sends the event by email only (for testing)
func RunSendEmailWithDependencies(
	ctx context.Context,
	sender notification.EmailSender,
	recipients []notification.Recipient,
	evt *notification.CompletionEvent,
	output OutputWriter,
) error {
	toNames := make([]string, len(recipients))
	for i, r := range recipients {
		toNames[i] = fmt.Sprintf("%s <%s>", r.Name, r.Address)
	}
	fmt.Fprintf(output, "Sending email to: %s\n", strings.Join(toNames, ", "))
	fmt.Fprintf(output, "Symbol: %s\n", evt.Symbol)
	fmt.Fprintf(output, "Status: %s\n", evt.Status)
	if evt.URL != "" {
		fmt.Fprintf(output, "Video URL: %s\n", evt.URL)
	}
	fmt.Fprintln(output)

	fmt.Fprintf(output, "Sending email...\n")
	if err := sender.Send(ctx, &notification.EmailRequest{To: recipients, Event: evt}); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Fprintf(output, "Email sent successfully!\n")
	return nil
}
