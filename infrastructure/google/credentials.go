package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// Credentials selects how Google clients authenticate. The first non-empty
// source wins: inline service account JSON, a credentials file, an OAuth
// token file, then application default credentials.
type Credentials struct {
	ServiceAccountJSON string // GCP_SA_JSON
	CredentialsFile    string // service account or OAuth client JSON on disk
	TokenFile          string // OAuth user token saved by "auth google"
}

// ClientOptions builds API client options for the given scopes
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]option.ClientOption, error) {
	ts, err := TokenSource(ctx, creds, scopes...)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithTokenSource(ts)}, nil
}

// TokenSource resolves credentials into an oauth2 token source
func TokenSource(ctx context.Context, creds Credentials, scopes ...string) (oauth2.TokenSource, error) {
	if js := strings.TrimSpace(creds.ServiceAccountJSON); js != "" {
		c, err := google.CredentialsFromJSON(ctx, []byte(js), scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account JSON: %w", err)
		}
		return c.TokenSource, nil
	}

	if creds.CredentialsFile != "" {
		b, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", err)
		}
		if creds.TokenFile != "" && isOAuthClient(b) {
			return userTokenSource(ctx, b, creds.TokenFile, scopes...)
		}
		c, err := google.CredentialsFromJSON(ctx, b, scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse credentials: %w", err)
		}
		return c.TokenSource, nil
	}

	c, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("no Google credentials configured: %w", err)
	}
	return c.TokenSource, nil
}

// isOAuthClient reports whether the JSON is an installed/web OAuth client
// rather than a service account key
func isOAuthClient(b []byte) bool {
	s := string(b)
	return strings.Contains(s, `"installed"`) || strings.Contains(s, `"web"`)
}

func userTokenSource(ctx context.Context, clientJSON []byte, tokenFile string, scopes ...string) (oauth2.TokenSource, error) {
	config, err := google.ConfigFromJSON(clientJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse OAuth credentials: %w", err)
	}
	token, err := LoadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to load OAuth token (run \"auth google\" first): %w", err)
	}
	return &savingTokenSource{
		base: config.TokenSource(ctx, token),
		file: tokenFile,
		last: token.AccessToken,
	}, nil
}

// StorageOptions passes raw credentials to the Cloud Storage client instead
// of a token source. Signing URLs needs the service account key, which the
// storage client can only find in credentials it parsed itself.
func StorageOptions(creds Credentials) []option.ClientOption {
	if js := strings.TrimSpace(creds.ServiceAccountJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if creds.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(creds.CredentialsFile)}
	}
	return nil
}
