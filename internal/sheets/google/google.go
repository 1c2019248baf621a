package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/diogoviieira/register-track-bot/internal/core"
	ports "github.com/diogoviieira/register-track-bot/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultCacheValidDuration = 5 * time.Minute

var errNotInitialized = errors.New("sheets service not initialized")

// Options selects the spreadsheet and the naming of its tabs.
type Options struct {
	SpreadsheetID string
	// SheetName is an optional base inserted in tab names: "<year> <base> Expenses".
	SheetName string
	// CacheValidDuration bounds how long a tab's id-to-row index is trusted.
	CacheValidDuration time.Duration
}

type tabIndex struct {
	rows      map[int64]int
	next      int
	expiresAt time.Time
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu                 sync.Mutex
	knownTabs          map[string]bool
	index              map[string]*tabIndex
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var (
	_ ports.Mirror    = (*Client)(nil)
	_ ports.RowLister = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	ttl := opts.CacheValidDuration
	if ttl <= 0 {
		ttl = defaultCacheValidDuration
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      strings.TrimSpace(opts.SpreadsheetID),
		sheetBase:          strings.TrimSpace(opts.SheetName),
		knownTabs:          make(map[string]bool),
		index:              make(map[string]*tabIndex),
		cacheValidDuration: ttl,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// tabName returns e.g. "2025 Expenses" or "2025 Finance Incomes".
func (c *Client) tabName(kind core.Kind, year int) string {
	name := kind.Label() + "s"
	if c.sheetBase != "" {
		name = c.sheetBase + " " + name
	}
	return yearPrefixedName(name, year)
}

// Upsert writes e to its row, appending a row the first time the entry is seen.
func (c *Client) Upsert(ctx context.Context, e core.Entry) error {
	if c.svc == nil {
		return errNotInitialized
	}
	tab := c.tabName(e.Kind, e.OccurredOn.Year())
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	if err := c.loadIndex(ctx, tab); err != nil {
		return err
	}
	row, exists := c.rowFor(tab, e.ID)

	rng := a1(tab, fmt.Sprintf("A%d:H%d", row, row))
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(e)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.invalidate(tab)
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}

	c.remember(tab, e.ID, row)
	slog.InfoContext(ctx, "Entry mirrored to sheet", "tab", tab, "row", row, "entry_id", e.ID, "updated", exists)
	return nil
}

// Remove clears the row of e. A row that is already gone is not an error.
func (c *Client) Remove(ctx context.Context, e core.Entry) error {
	if c.svc == nil {
		return errNotInitialized
	}
	tab := c.tabName(e.Kind, e.OccurredOn.Year())
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	if err := c.loadIndex(ctx, tab); err != nil {
		return err
	}
	row, ok := c.rowFor(tab, e.ID)
	if !ok {
		slog.DebugContext(ctx, "Entry not in sheet, nothing to remove", "tab", tab, "entry_id", e.ID)
		return nil
	}

	rng := a1(tab, fmt.Sprintf("A%d:H%d", row, row))
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		c.invalidate(tab)
		return fmt.Errorf("failed to clear %s: %w", rng, err)
	}

	c.forget(tab, e.ID)
	slog.InfoContext(ctx, "Entry removed from sheet", "tab", tab, "row", row, "entry_id", e.ID)
	return nil
}

// Rows reads back the mirrored entries of one kind and year.
func (c *Client) Rows(ctx context.Context, kind core.Kind, year int) ([]core.Entry, error) {
	if c.svc == nil {
		return nil, errNotInitialized
	}
	rng := a1(c.tabName(kind, year), "A:H")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values, kind), nil
}

// ensureTab creates the tab with its header row when the spreadsheet lacks it.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	known := c.knownTabs[tab]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			c.markKnown(tab)
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}

	rng := a1(tab, "A1:H1")
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Created sheet tab", "tab", tab)
	c.markKnown(tab)
	return nil
}

// loadIndex makes sure the id-to-row index of a tab is fresh, reading
// column A when the cached copy expired.
func (c *Client) loadIndex(ctx context.Context, tab string) error {
	c.mu.Lock()
	idx, ok := c.index[tab]
	fresh := ok && time.Now().Before(idx.expiresAt)
	c.mu.Unlock()
	if fresh {
		return nil
	}

	rng := a1(tab, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get sheet dimensions for %s: %w", tab, err)
	}

	c.setIndex(tab, resp.Values)
	return nil
}

func (c *Client) setIndex(tab string, values [][]any) {
	idx := &tabIndex{
		rows:      indexRows(values),
		next:      len(values) + 1,
		expiresAt: time.Now().Add(c.cacheValidDuration),
	}
	if idx.next < 2 {
		idx.next = 2 // row 1 holds the header
	}

	c.mu.Lock()
	c.index[tab] = idx
	c.mu.Unlock()
}

// rowFor returns the row of id, or the next free row when id is not mirrored yet.
func (c *Client) rowFor(tab string, id int64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.index[tab]
	if !ok {
		return 2, false
	}
	if row, ok := idx.rows[id]; ok {
		return row, true
	}
	return idx.next, false
}

func (c *Client) remember(tab string, id int64, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.index[tab]
	if !ok {
		return
	}
	idx.rows[id] = row
	if row >= idx.next {
		idx.next = row + 1
	}
}

func (c *Client) forget(tab string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.index[tab]; ok {
		delete(idx.rows, id)
	}
}

func (c *Client) invalidate(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.index, tab)
}

func (c *Client) markKnown(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knownTabs[tab] = true
}

// InvalidateRowCache drops every cached row index so the next write re-reads
// the sheet. Call it after the sheet was edited by hand.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*tabIndex)
}
