package google

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthConfigFromJSON parses an OAuth client secret for the Sheets scope.
func OAuthConfigFromJSON(clientJSON []byte, redirectURL string) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// ParseToken decodes a token previously written by SaveToken.
func ParseToken(data []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := jsonUnmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// readSecret prefers the inline value over the file. It returns nil when
// neither is set.
func readSecret(inline, file string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	if file = strings.TrimSpace(file); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	}
	return nil, nil
}

// indirection for tests
var jsonUnmarshal = json.Unmarshal
