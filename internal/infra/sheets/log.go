// Package sheets provides a RowLog backed by one tab of a Google
// Spreadsheet, accessed through the Sheets v4 API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

var tracer = otel.Tracer("sheets")

// NewService builds a Sheets API client from a service-account credentials
// file. Extra options are appended, which lets tests point it elsewhere.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*sheetsapi.Service, error) {
	base := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if credentialsFile != "" {
		base = append(base, option.WithCredentialsFile(credentialsFile))
	}
	return sheetsapi.NewService(ctx, append(base, opts...)...)
}

// Log is a RowLog over one spreadsheet tab. Row numbers are the sheet's own
// 1-based row numbers.
type Log struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
	cb            *gobreaker.CircuitBreaker
	cfg           resilience.Config
	bulkhead      *resilience.Bulkhead
	logger        *zap.Logger

	mu      sync.Mutex
	sheetID *int64
}

// NewLog creates a RowLog over tab. The bulkhead is shared by every tab of
// the spreadsheet so the API quota is not exceeded by parallel calls.
func NewLog(svc *sheetsapi.Service, spreadsheetID, tab string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, bulkhead *resilience.Bulkhead, logger *zap.Logger) *Log {
	return &Log{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tab:           tab,
		cb:            cb,
		cfg:           cfg,
		bulkhead:      bulkhead,
		logger:        logger,
	}
}

// ReadRows returns every row of the tab as formatted strings.
func (l *Log) ReadRows(ctx context.Context) ([][]string, error) {
	ctx, span := tracer.Start(ctx, "Sheets.ReadRows")
	defer span.End()
	span.SetAttributes(attribute.String("sheet.tab", l.tab))

	var rows [][]string
	err := l.call(ctx, "read", func() error {
		resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, l.tab).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		rows = make([][]string, len(resp.Values))
		for i, values := range resp.Values {
			row := make([]string, len(values))
			for j, v := range values {
				row[j] = fmt.Sprint(v)
			}
			rows[i] = row
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// AppendRow adds row after the last non-empty row.
func (l *Log) AppendRow(ctx context.Context, row []string) error {
	ctx, span := tracer.Start(ctx, "Sheets.AppendRow")
	defer span.End()
	span.SetAttributes(attribute.String("sheet.tab", l.tab))

	return l.callOnce(ctx, "append", func() error {
		_, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, l.tab+"!A1", valueRange(row)).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

// InsertRow inserts an empty row at rowNumber and writes row into it.
func (l *Log) InsertRow(ctx context.Context, rowNumber int, row []string) error {
	ctx, span := tracer.Start(ctx, "Sheets.InsertRow")
	defer span.End()
	span.SetAttributes(attribute.String("sheet.tab", l.tab), attribute.Int("row", rowNumber))

	sheetID, err := l.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	err = l.callOnce(ctx, "insert", func() error {
		_, err := l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				InsertDimension: &sheetsapi.InsertDimensionRequest{
					Range: rowRange(sheetID, rowNumber),
				},
			}},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}
	return l.UpdateRow(ctx, rowNumber, row)
}

// UpdateRow overwrites the cells of rowNumber starting at column A.
func (l *Log) UpdateRow(ctx context.Context, rowNumber int, row []string) error {
	ctx, span := tracer.Start(ctx, "Sheets.UpdateRow")
	defer span.End()
	span.SetAttributes(attribute.String("sheet.tab", l.tab), attribute.Int("row", rowNumber))

	if rowNumber < 1 {
		return &domain.ErrInvalidIndex{Index: rowNumber}
	}
	return l.call(ctx, "update", func() error {
		_, err := l.svc.Spreadsheets.Values.Update(l.spreadsheetID, fmt.Sprintf("%s!A%d", l.tab, rowNumber), valueRange(row)).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
}

// DeleteRow removes rowNumber, shifting later rows up.
func (l *Log) DeleteRow(ctx context.Context, rowNumber int) error {
	ctx, span := tracer.Start(ctx, "Sheets.DeleteRow")
	defer span.End()
	span.SetAttributes(attribute.String("sheet.tab", l.tab), attribute.Int("row", rowNumber))

	if rowNumber < 1 {
		return &domain.ErrInvalidIndex{Index: rowNumber}
	}
	sheetID, err := l.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	return l.callOnce(ctx, "delete", func() error {
		_, err := l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: rowRange(sheetID, rowNumber),
				},
			}},
		}).Context(ctx).Do()
		return err
	})
}

// resolveSheetID looks up the numeric id of the tab once; dimension
// requests address tabs by id rather than title.
func (l *Log) resolveSheetID(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sheetID != nil {
		return *l.sheetID, nil
	}

	var id int64
	err := l.call(ctx, "lookup", func() error {
		sp, err := l.svc.Spreadsheets.Get(l.spreadsheetID).
			Fields("sheets.properties").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		for _, s := range sp.Sheets {
			if s.Properties != nil && s.Properties.Title == l.tab {
				id = s.Properties.SheetId
				return nil
			}
		}
		return resilience.Permanent(&domain.ErrNotFound{Resource: "sheet", ID: l.tab})
	})
	if err != nil {
		return 0, err
	}
	l.sheetID = &id
	return id, nil
}

// call runs fn inside the bulkhead, circuit breaker and retry loop, and
// translates failures into domain errors.
func (l *Log) call(ctx context.Context, op string, fn func() error) error {
	return l.run(ctx, op, l.cfg, fn)
}

// callOnce is call without retries, for appends and row inserts or
// deletes. A lost response to one of those may still have been applied,
// and sending it again would add or remove a second row.
func (l *Log) callOnce(ctx context.Context, op string, fn func() error) error {
	cfg := l.cfg
	cfg.MaxRetries = 0
	return l.run(ctx, op, cfg, fn)
}

func (l *Log) run(ctx context.Context, op string, cfg resilience.Config, fn func() error) error {
	if err := l.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "sheets/" + op}
	}
	defer l.bulkhead.Release()

	_, err := l.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, cfg, func() error {
			return classify(fn(), l.tab)
		})
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "sheets"}
	}
	if inner, ok := resilience.AsPermanent(err); ok {
		return inner
	}

	l.logger.Warn("sheets: call failed",
		zap.String("op", op),
		zap.String("tab", l.tab),
		zap.Error(err),
	)
	return &domain.ErrExternalService{Service: "sheets/" + op, Err: err}
}

// classify marks API answers that retrying cannot change as permanent.
func classify(err error, tab string) error {
	if err == nil {
		return nil
	}
	if _, ok := resilience.AsPermanent(err); ok {
		return err
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusNotFound:
		return resilience.Permanent(&domain.ErrNotFound{Resource: "sheet", ID: tab})
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return resilience.Permanent(&domain.ErrForbidden{Action: "access sheet " + tab})
	case apiErr.Code == http.StatusRequestTimeout || apiErr.Code == http.StatusTooManyRequests:
		return err
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return resilience.Permanent(&domain.ErrValidation{Field: tab, Message: apiErr.Message})
	}
	return err
}

func valueRange(row []string) *sheetsapi.ValueRange {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return &sheetsapi.ValueRange{Values: [][]interface{}{values}}
}

func rowRange(sheetID int64, rowNumber int) *sheetsapi.DimensionRange {
	return &sheetsapi.DimensionRange{
		SheetId:    sheetID,
		Dimension:  "ROWS",
		StartIndex: int64(rowNumber - 1),
		EndIndex:   int64(rowNumber),
		// Zero values are dropped by omitempty unless forced.
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}
