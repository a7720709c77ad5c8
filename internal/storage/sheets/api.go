package sheets

import (
	"context"
	"fmt"
	"strings"
)

// API is the subset of the Google Sheets API the client needs. Ranges use A1
// notation including the sheet name.
type API interface {
	// SheetIDs maps sheet titles to their numeric ids.
	SheetIDs(ctx context.Context) (map[string]int64, error)
	AddSheet(ctx context.Context, title string) (int64, error)
	GetValues(ctx context.Context, rng string) ([][]string, error)
	UpdateValues(ctx context.Context, rng string, values [][]string) error
	AppendValues(ctx context.Context, rng string, values [][]string) error
	// DeleteRows removes the given zero-based [start, end) row ranges in one
	// request, applied in the order given.
	DeleteRows(ctx context.Context, sheetID int64, ranges []RowRange) error
}

type RowRange struct {
	Start int64
	End   int64
}

// A1 builds a quoted A1 range such as 'Visits'!A2:C2.
func A1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// ColumnLetter converts a 1-based column number to its letter form.
func ColumnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func rowRange(sheet string, width, pos int) string {
	return A1(sheet, fmt.Sprintf("A%d:%s%d", pos, ColumnLetter(width), pos))
}
