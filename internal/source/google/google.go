// Package google reads and appends transactions in a Google Sheets tab laid
// out as Date, Description, Amount, Category, Type, User (columns A to F).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendcast/internal/core"
	"spendcast/internal/source"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	defaultUser   string
	logger        *slog.Logger
}

var (
	_ source.TransactionSource = (*Client)(nil)
	_ source.TransactionWriter = (*Client)(nil)
)

// Options configure the client. SpreadsheetID is required.
type Options struct {
	SpreadsheetID string
	SheetName     string // default "Transactions"
	DefaultUserID string // owner of rows whose User cell is empty
	Logger        *slog.Logger
}

// New creates a Sheets client authenticated with a service account taken from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Transactions"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	creds, err := credentialsFromEnv(ctx, opts.Logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	opts.Logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID, "sheet", opts.SheetName)
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         opts.SheetName,
		defaultUser:   opts.DefaultUserID,
		logger:        opts.Logger,
	}, nil
}

func credentialsFromEnv(ctx context.Context, logger *slog.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ListTransactions reads the whole tab and applies q locally.
func (c *Client) ListTransactions(ctx context.Context, q source.Query) ([]core.Transaction, error) {
	rng := fmt.Sprintf("%s!A:F", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txs, skipped := parseRows(resp.Values, c.defaultUser)
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unparseable sheet rows", "sheet", c.sheet, "count", skipped)
	}
	return source.Apply(q, txs), nil
}

// AppendTransaction adds a row after the last one and returns the updated range.
func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	rng := fmt.Sprintf("%s!A:F", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{toRow(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}
	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}
