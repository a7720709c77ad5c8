// Package sheetstest provides an in-memory spreadsheet for tests.
package sheetstest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jwalitptl/dental-api/internal/storage/sheets"
)

var cellsPattern = regexp.MustCompile(`^([A-Z]+)(\d*)(?::([A-Z]+)(\d*))?$`)

// Spreadsheet implements sheets.API in memory. Calls counts requests per
// method; Err, when set, fails every call.
type Spreadsheet struct {
	mu     sync.Mutex
	sheets map[string]*sheet
	nextID int64
	Calls  map[string]int
	Err    error
}

type sheet struct {
	id   int64
	rows [][]string
}

var _ sheets.API = (*Spreadsheet)(nil)

func New() *Spreadsheet {
	return &Spreadsheet{
		sheets: make(map[string]*sheet),
		Calls:  make(map[string]int),
	}
}

// Rows returns a copy of a sheet's rows, header included.
func (s *Spreadsheet) Rows(title string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[title]
	if !ok {
		return nil
	}
	out := make([][]string, len(sh.rows))
	for i, r := range sh.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// SetRows replaces a sheet's content, creating it when needed. Used to
// simulate edits made outside the process.
func (s *Spreadsheet) SetRows(title string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.sheetLocked(title)
	sh.rows = rows
}

func (s *Spreadsheet) sheetLocked(title string) *sheet {
	sh, ok := s.sheets[title]
	if !ok {
		sh = &sheet{id: s.nextID}
		s.nextID++
		s.sheets[title] = sh
	}
	return sh
}

func (s *Spreadsheet) call(name string) error {
	s.Calls[name]++
	return s.Err
}

func (s *Spreadsheet) SheetIDs(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("SheetIDs"); err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(s.sheets))
	for title, sh := range s.sheets {
		ids[title] = sh.id
	}
	return ids, nil
}

func (s *Spreadsheet) AddSheet(_ context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("AddSheet"); err != nil {
		return 0, err
	}
	if _, ok := s.sheets[title]; ok {
		return 0, fmt.Errorf("sheet %s already exists", title)
	}
	return s.sheetLocked(title).id, nil
}

func (s *Spreadsheet) GetValues(_ context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("GetValues"); err != nil {
		return nil, err
	}
	title, r, err := parseRange(rng)
	if err != nil {
		return nil, err
	}
	sh, ok := s.sheets[title]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", rng)
	}

	var out [][]string
	for i, row := range sh.rows {
		pos := i + 1
		if r.firstRow > 0 && (pos < r.firstRow || pos > r.lastRow) {
			continue
		}
		cells := make([]string, 0, r.lastCol-r.firstCol+1)
		for c := r.firstCol; c <= r.lastCol && c <= len(row); c++ {
			cells = append(cells, row[c-1])
		}
		out = append(out, trimRight(cells))
	}
	return trimRows(out), nil
}

func (s *Spreadsheet) UpdateValues(_ context.Context, rng string, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("UpdateValues"); err != nil {
		return err
	}
	title, r, err := parseRange(rng)
	if err != nil {
		return err
	}
	sh, ok := s.sheets[title]
	if !ok {
		return fmt.Errorf("unknown sheet %s", title)
	}
	start := r.firstRow
	if start == 0 {
		start = 1
	}
	for i, vals := range values {
		pos := start + i
		for len(sh.rows) < pos {
			sh.rows = append(sh.rows, nil)
		}
		row := sh.rows[pos-1]
		for len(row) < r.firstCol-1+len(vals) {
			row = append(row, "")
		}
		copy(row[r.firstCol-1:], vals)
		sh.rows[pos-1] = row
	}
	return nil
}

func (s *Spreadsheet) AppendValues(_ context.Context, rng string, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("AppendValues"); err != nil {
		return err
	}
	title, _, err := parseRange(rng)
	if err != nil {
		return err
	}
	sh, ok := s.sheets[title]
	if !ok {
		return fmt.Errorf("unknown sheet %s", title)
	}
	for _, v := range values {
		sh.rows = append(sh.rows, append([]string(nil), v...))
	}
	return nil
}

func (s *Spreadsheet) DeleteRows(_ context.Context, sheetID int64, ranges []sheets.RowRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call("DeleteRows"); err != nil {
		return err
	}
	var sh *sheet
	for _, candidate := range s.sheets {
		if candidate.id == sheetID {
			sh = candidate
		}
	}
	if sh == nil {
		return fmt.Errorf("unknown sheet id %d", sheetID)
	}
	for _, r := range ranges {
		if r.Start < 0 || r.End > int64(len(sh.rows)) || r.Start >= r.End {
			return fmt.Errorf("invalid range [%d, %d)", r.Start, r.End)
		}
		sh.rows = append(sh.rows[:r.Start], sh.rows[r.End:]...)
	}
	return nil
}

type cellRange struct {
	firstCol, lastCol int
	firstRow, lastRow int
}

func parseRange(rng string) (string, cellRange, error) {
	idx := strings.LastIndex(rng, "!")
	if idx < 0 {
		return "", cellRange{}, fmt.Errorf("range %q has no sheet", rng)
	}
	title := strings.Trim(rng[:idx], "'")
	title = strings.ReplaceAll(title, "''", "'")

	m := cellsPattern.FindStringSubmatch(rng[idx+1:])
	if m == nil {
		return "", cellRange{}, fmt.Errorf("unsupported range %q", rng)
	}
	r := cellRange{firstCol: column(m[1]), lastCol: column(m[1])}
	if m[3] != "" {
		r.lastCol = column(m[3])
	}
	if m[2] != "" {
		r.firstRow, _ = strconv.Atoi(m[2])
		r.lastRow = r.firstRow
		if m[4] != "" {
			r.lastRow, _ = strconv.Atoi(m[4])
		}
	}
	return title, r, nil
}

func column(letters string) int {
	n := 0
	for _, ch := range letters {
		n = n*26 + int(ch-'A'+1)
	}
	return n
}

func trimRight(cells []string) []string {
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func trimRows(rows [][]string) [][]string {
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows
}
