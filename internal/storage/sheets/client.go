package sheets

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

const backendName = "sheets"

// Client exposes a spreadsheet as a set of tables. Row 1 of every sheet holds
// the headers; data rows start at position 2.
type Client struct {
	api API
	// ensured caches the sheet id of every table whose header row has been
	// checked in this process.
	ensured *cache.Cache
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	// ensureLocks is separate from locks: writers call EnsureSheet while
	// holding their table lock.
	ensureLocks map[string]*sync.Mutex
}

func NewClient(api API, m *metrics.Metrics) *Client {
	return &Client{
		api:     api,
		ensured: cache.New(cache.NoExpiration, 0),
		metrics: m,
		locks:   make(map[string]*sync.Mutex),

		ensureLocks: make(map[string]*sync.Mutex),
	}
}

// WithTableLock serializes fn against other writers of the same table in
// this process. Callers hold it across read-locate-write sequences.
func (c *Client) WithTableLock(name string, fn func() error) error {
	l := c.mutex(c.locks, name)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (c *Client) mutex(set map[string]*sync.Mutex, name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := set[name]
	if !ok {
		l = &sync.Mutex{}
		set[name] = l
	}
	return l
}

// Ping checks that the spreadsheet is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.SheetIDs(ctx); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to reach spreadsheet: %w", err))
	}
	return nil
}

// EnsureSheet creates the sheet or rewrites its header row when it differs
// from headers. It talks to the API once per table per process; concurrent
// first callers wait for the one doing the work.
func (c *Client) EnsureSheet(ctx context.Context, name string, headers []string) (sheetID int64, err error) {
	if id, ok := c.ensured.Get(name); ok {
		return id.(int64), nil
	}

	l := c.mutex(c.ensureLocks, name)
	l.Lock()
	defer l.Unlock()
	if id, ok := c.ensured.Get(name); ok {
		return id.(int64), nil
	}
	defer c.metrics.ObserveStorage(backendName, name, "ensure_sheet", time.Now(), &err)

	ids, err := c.api.SheetIDs(ctx)
	if err != nil {
		return 0, apperrors.Storage(fmt.Errorf("failed to list sheets: %w", err))
	}

	sheetID, exists := ids[name]
	if !exists {
		sheetID, exists, err = c.addSheet(ctx, name)
		if err != nil {
			return 0, err
		}
	}

	headerRange := rowRange(name, len(headers), 1)
	current, err := c.api.GetValues(ctx, headerRange)
	if err != nil {
		return 0, apperrors.Storage(fmt.Errorf("failed to read headers of %s: %w", name, err))
	}
	if len(current) == 0 || !equalRow(current[0], headers) {
		if err := c.api.UpdateValues(ctx, headerRange, [][]string{headers}); err != nil {
			return 0, apperrors.Storage(fmt.Errorf("failed to write headers of %s: %w", name, err))
		}
		if exists {
			log.Warn().Str("sheet", name).Strs("found", firstRow(current)).Msg("header drift, rewrote header row")
		}
	}

	c.ensured.Set(name, sheetID, cache.NoExpiration)
	return sheetID, nil
}

// addSheet creates the sheet. When another process created it first, the
// existing sheet is used and exists is true.
func (c *Client) addSheet(ctx context.Context, name string) (sheetID int64, exists bool, err error) {
	sheetID, addErr := c.api.AddSheet(ctx, name)
	if addErr == nil {
		log.Info().Str("sheet", name).Msg("created sheet")
		return sheetID, false, nil
	}

	ids, err := c.api.SheetIDs(ctx)
	if err != nil {
		return 0, false, apperrors.Storage(fmt.Errorf("failed to create sheet %s: %w", name, addErr))
	}
	if sheetID, ok := ids[name]; ok {
		log.Debug().Str("sheet", name).Err(addErr).Msg("sheet created concurrently")
		return sheetID, true, nil
	}
	return 0, false, apperrors.Storage(fmt.Errorf("failed to create sheet %s: %w", name, addErr))
}

// GetRows returns every row including the header row.
func (c *Client) GetRows(ctx context.Context, name string, headers []string) (rows [][]string, err error) {
	if _, err := c.EnsureSheet(ctx, name, headers); err != nil {
		return nil, err
	}
	defer c.metrics.ObserveStorage(backendName, name, "get_rows", time.Now(), &err)

	rows, err = c.api.GetValues(ctx, A1(name, "A:"+ColumnLetter(len(headers))))
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to read %s: %w", name, err))
	}
	return rows, nil
}

func (c *Client) AppendRow(ctx context.Context, name string, headers []string, row []string) (err error) {
	if _, err := c.EnsureSheet(ctx, name, headers); err != nil {
		return err
	}
	defer c.metrics.ObserveStorage(backendName, name, "append", time.Now(), &err)

	if err := c.api.AppendValues(ctx, A1(name, "A:"+ColumnLetter(len(headers))), [][]string{row}); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to append to %s: %w", name, err))
	}
	return nil
}

// UpdateRow overwrites the row at the 1-based position pos after checking
// that it still holds expectedID in column A.
func (c *Client) UpdateRow(ctx context.Context, name string, headers []string, pos int, expectedID string, row []string) (err error) {
	if pos < 2 {
		return apperrors.BadRequest(fmt.Sprintf("invalid row position %d", pos), nil)
	}
	if _, err := c.EnsureSheet(ctx, name, headers); err != nil {
		return err
	}
	defer c.metrics.ObserveStorage(backendName, name, "update", time.Now(), &err)

	ids, err := c.readIDColumn(ctx, name)
	if err != nil {
		return err
	}
	if err := c.verify(name, ids, pos, expectedID); err != nil {
		return err
	}

	if err := c.api.UpdateValues(ctx, rowRange(name, len(headers), pos), [][]string{row}); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to update %s row %d: %w", name, pos, err))
	}
	return nil
}

// DeleteRows removes the rows at the given 1-based positions. expected maps
// each position to the id it must still hold.
func (c *Client) DeleteRows(ctx context.Context, name string, headers []string, expected map[int]string) (err error) {
	if len(expected) == 0 {
		return nil
	}
	sheetID, err := c.EnsureSheet(ctx, name, headers)
	if err != nil {
		return err
	}
	defer c.metrics.ObserveStorage(backendName, name, "delete", time.Now(), &err)

	ids, err := c.readIDColumn(ctx, name)
	if err != nil {
		return err
	}

	positions := make([]int, 0, len(expected))
	for pos, id := range expected {
		if pos < 2 {
			return apperrors.BadRequest(fmt.Sprintf("invalid row position %d", pos), nil)
		}
		if err := c.verify(name, ids, pos, id); err != nil {
			return err
		}
		positions = append(positions, pos)
	}

	if err := c.api.DeleteRows(ctx, sheetID, descendingRanges(positions)); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to delete rows from %s: %w", name, err))
	}
	return nil
}

func (c *Client) readIDColumn(ctx context.Context, name string) ([][]string, error) {
	ids, err := c.api.GetValues(ctx, A1(name, "A:A"))
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to read ids of %s: %w", name, err))
	}
	return ids, nil
}

func (c *Client) verify(name string, ids [][]string, pos int, expectedID string) error {
	var got string
	if pos-1 < len(ids) && len(ids[pos-1]) > 0 {
		got = ids[pos-1][0]
	}
	if got != expectedID {
		if c.metrics != nil {
			c.metrics.SheetConflicts.WithLabelValues(name).Inc()
		}
		return apperrors.Conflict(
			fmt.Sprintf("row %d of %s no longer holds %s, retry the request", pos, name, expectedID), nil)
	}
	return nil
}

// descendingRanges turns 1-based positions into zero-based single-row ranges
// ordered bottom-up so earlier deletions do not shift later ones.
func descendingRanges(positions []int) []RowRange {
	sorted := append([]int(nil), positions...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	ranges := make([]RowRange, 0, len(sorted))
	for i, pos := range sorted {
		if i > 0 && sorted[i-1] == pos {
			continue
		}
		ranges = append(ranges, RowRange{Start: int64(pos - 1), End: int64(pos)})
	}
	return ranges
}

func equalRow(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func firstRow(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
