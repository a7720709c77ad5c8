package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw    = "RAW"
	insertDataRows   = "INSERT_ROWS"
	dimensionRows    = "ROWS"
	sheetPropsFields = "sheets.properties(sheetId,title)"
)

type Credentials struct {
	SpreadsheetID string
	ClientEmail   string
	PrivateKey    string
}

type googleAPI struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleAPI authenticates as a service account and returns an API bound to
// one spreadsheet.
func NewGoogleAPI(ctx context.Context, creds Credentials, opts ...option.ClientOption) (API, error) {
	conf := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx))}, opts...)
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &googleAPI{svc: svc, spreadsheetID: creds.SpreadsheetID}, nil
}

func (g *googleAPI) SheetIDs(ctx context.Context) (map[string]int64, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields(sheetPropsFields).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return ids, nil
}

func (g *googleAPI) AddSheet(ctx context.Context, title string) (int64, error) {
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func (g *googleAPI) GetValues(ctx context.Context, rng string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows, nil
}

func (g *googleAPI) UpdateValues(ctx context.Context, rng string, values [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, valueRange(values)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	return err
}

func (g *googleAPI) AppendValues(ctx context.Context, rng string, values [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, valueRange(values)).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertDataRows).
		Context(ctx).
		Do()
	return err
}

func (g *googleAPI) DeleteRows(ctx context.Context, sheetID int64, ranges []RowRange) error {
	requests := make([]*sheetsapi.Request, 0, len(ranges))
	for _, r := range ranges {
		requests = append(requests, &sheetsapi.Request{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  dimensionRows,
					StartIndex: r.Start,
					EndIndex:   r.End,
					// The first sheet has id 0, which would otherwise be dropped.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}

	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

func valueRange(values [][]string) *sheetsapi.ValueRange {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		rows[i] = make([]interface{}, len(row))
		for j, cell := range row {
			rows[i][j] = cell
		}
	}
	return &sheetsapi.ValueRange{Values: rows}
}
