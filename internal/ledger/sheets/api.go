package sheets

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// valuesAPI is the slice of the Sheets API the store uses
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	// Append returns the A1 range the row landed in
	Append(ctx context.Context, rng string, row []any) (string, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	// DeleteRow removes a 1-based physical row of a tab
	DeleteRow(ctx context.Context, tab string, row int) error
}

// service adapts *sheets.Service to valuesAPI
type service struct {
	svc           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// newService authenticates with service-account JSON
func newService(ctx context.Context, spreadsheetID string, credentials []byte) (*service, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentials, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}
	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &service{svc: svc, spreadsheetID: spreadsheetID, sheetIDs: make(map[string]int64)}, nil
}

func (s *service) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *service) Append(ctx context.Context, rng string, row []any) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

func (s *service) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (s *service) DeleteRow(ctx context.Context, tab string, row int) error {
	sheetID, err := s.sheetID(ctx, tab)
	if err != nil {
		return err
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),

					// sheet 0 is a valid ID and must not be dropped as empty
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

// sheetID resolves a tab title to its numeric ID, cached after the first lookup
func (s *service) sheetID(ctx context.Context, tab string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[tab]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok = s.sheetIDs[tab]
	if !ok {
		return 0, fmt.Errorf("tab %q not found", tab)
	}
	return id, nil
}
