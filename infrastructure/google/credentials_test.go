package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenSource_InvalidInlineJSON(t *testing.T) {
	_, err := TokenSource(context.Background(), Credentials{ServiceAccountJSON: "{not json"})
	if err == nil || !strings.Contains(err.Error(), "unable to parse service account JSON") {
		t.Errorf("TokenSource() error = %v", err)
	}
}

func TestTokenSource_MissingCredentialsFile(t *testing.T) {
	_, err := TokenSource(context.Background(), Credentials{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	if err == nil || !strings.Contains(err.Error(), "unable to read credentials file") {
		t.Errorf("TokenSource() error = %v", err)
	}
}

func TestTokenSource_OAuthClientNeedsToken(t *testing.T) {
	dir := t.TempDir()
	client := filepath.Join(dir, "client.json")
	content := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(client, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := TokenSource(context.Background(), Credentials{CredentialsFile: client, TokenFile: filepath.Join(dir, "token.json")})
	if err == nil || !strings.Contains(err.Error(), `run "auth google" first`) {
		t.Errorf("TokenSource() error = %v", err)
	}
}

func TestIsOAuthClient(t *testing.T) {
	if !isOAuthClient([]byte(`{"installed":{}}`)) {
		t.Error("installed client not detected")
	}
	if isOAuthClient([]byte(`{"type":"service_account"}`)) {
		t.Error("service account detected as OAuth client")
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	file := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}

	if err := SaveToken(file, want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadToken(file)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("LoadToken() = %+v, want %+v", got, want)
	}
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingTokenSource_PersistsRefreshedToken(t *testing.T) {
	file := filepath.Join(t.TempDir(), "token.json")
	ts := &savingTokenSource{
		base: staticSource{tok: &oauth2.Token{AccessToken: "new"}},
		file: file,
		last: "old",
	}

	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	saved, err := LoadToken(file)
	if err != nil {
		t.Fatalf("refreshed token not saved: %v", err)
	}
	if saved.AccessToken != "new" {
		t.Errorf("saved token = %q, want %q", saved.AccessToken, "new")
	}
}

func TestStorageOptions(t *testing.T) {
	if opts := StorageOptions(Credentials{}); len(opts) != 0 {
		t.Errorf("StorageOptions() with no credentials = %d options, want 0", len(opts))
	}
	if opts := StorageOptions(Credentials{ServiceAccountJSON: "{}"}); len(opts) != 1 {
		t.Errorf("StorageOptions() inline = %d options, want 1", len(opts))
	}
	if opts := StorageOptions(Credentials{CredentialsFile: "sa.json"}); len(opts) != 1 {
		t.Errorf("StorageOptions() file = %d options, want 1", len(opts))
	}
}
