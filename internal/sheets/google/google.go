package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"monthly/internal/sheets"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Monthly Payments"

var headerRow = []any{"Group", "Payment", "Due date", "Type", "Amount", "Note"}

// Config selects the spreadsheet and credentials. A service account takes
// precedence over an OAuth client and token.
type Config struct {
	SpreadsheetID string
	SheetName     string

	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.GroupExporter = (*Client)(nil)

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME and the
// credential variables. GOOGLE_APPLICATION_CREDENTIALS is used as the
// service account file when no other credentials are set.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		OAuthClientJSON:    os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		OAuthClientFile:    os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
		OAuthTokenJSON:     os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"),
		OAuthTokenFile:     os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"),
	}
	if !cfg.hasServiceAccount() && !cfg.hasOAuthClient() && !cfg.hasOAuthToken() {
		cfg.ServiceAccountFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return cfg
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, ConfigFromEnv())
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (c Config) hasServiceAccount() bool {
	return strings.TrimSpace(c.ServiceAccountJSON) != "" || strings.TrimSpace(c.ServiceAccountFile) != ""
}

func (c Config) hasOAuthClient() bool {
	return strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != ""
}

func (c Config) hasOAuthToken() bool {
	return strings.TrimSpace(c.OAuthTokenJSON) != "" || strings.TrimSpace(c.OAuthTokenFile) != ""
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	if cfg.hasServiceAccount() {
		credentialsJSON, err := readSecret(cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("service account: %w", err)
		}
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)

		service, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	if !cfg.hasOAuthClient() {
		if !cfg.hasOAuthToken() {
			return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or an OAuth client and token)")
		}
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	if !cfg.hasOAuthToken() {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	oauthCfg, err := OAuthConfigFromJSON(clientJSON, "")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	tok, err := ParseToken(tokenJSON)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token",
		"has_refresh_token", tok.RefreshToken != "")

	// The token source refreshes through the pooled client.
	httpCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(httpCtx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Export clears the payments sheet and writes the snapshot from A1.
func (c *Client) Export(ctx context.Context, snap sheets.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:F", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := buildRows(snap)
	dataRange := fmt.Sprintf("%s!A1:F%d", c.sheetName, len(rows))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Exported payment groups to sheet",
		"sheet", c.sheetName,
		"groups", len(snap.Groups),
		"rows", len(rows))
	return nil
}

// buildRows lays out one summary row per group followed by its payments,
// then the remaining total.
func buildRows(snap sheets.Snapshot) [][]any {
	rows := [][]any{headerRow}
	for _, g := range snap.Groups {
		rows = append(rows, []any{g.Name, fmt.Sprintf("%d payments", len(g.Payments)), "", "", g.Total.Units(), ""})
		for _, p := range g.Payments {
			rows = append(rows, []any{"", p.Name, p.DueDate.String(), p.Type.String(), p.Amount.Units(), p.Note})
		}
	}
	rows = append(rows, []any{"Total remaining", "", "", "", snap.TotalRemaining.Units(), ""})
	if !snap.GeneratedAt.IsZero() {
		rows = append(rows, []any{"Generated at", snap.GeneratedAt.UTC().Format(time.RFC3339), "", "", "", ""})
	}
	return rows
}
