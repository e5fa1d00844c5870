// Package bulk translates CSV batches into lifecycle operations and renders
// verification results back to CSV. Rows are processed strictly one at a
// time; the lifecycle engine's invariant checks assume no concurrent writers
// on a version chain.
package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"credvault/internal/claim/models"
	"credvault/internal/claim/service"
	"credvault/internal/platform/metrics"
	dErrors "credvault/pkg/domain-errors"
)

// Progress is invoked after each processed row.
type Progress func(done, total int)

// RowResult records the outcome of one import row.
type RowResult struct {
	Line       int    `json:"line"`
	Identifier string `json:"identifier"`
	ClaimID    string `json:"claimId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ImportReport summarizes a whole batch. A batch with row failures is still
// a successful import of the remaining rows; callers inspect Rows for
// per-row errors.
type ImportReport struct {
	Issued  int         `json:"issued"`
	Failed  int         `json:"failed"`
	Dropped int         `json:"dropped"`
	Rows    []RowResult `json:"rows"`
}

// Importer drives CSV claim issuance through the lifecycle engine.
type Importer struct {
	engine  *service.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type ImporterOption func(*Importer)

func WithImportMetrics(m *metrics.Metrics) ImporterOption {
	return func(im *Importer) { im.metrics = m }
}

func NewImporter(engine *service.Service, logger *slog.Logger, opts ...ImporterOption) *Importer {
	im := &Importer{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// importColumns maps header names to row indices. Header matching is
// case-insensitive; column order is free.
type importColumns struct {
	identifier int
	name       int
	kind       int
	value      int
	date       int
}

func parseHeader(header []string) (importColumns, error) {
	cols := importColumns{identifier: -1, name: -1, kind: -1, value: -1, date: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "identifier":
			cols.identifier = i
		case "name":
			cols.name = i
		case "kind":
			cols.kind = i
		case "value":
			cols.value = i
		case "date":
			cols.date = i
		}
	}
	if cols.identifier < 0 {
		return cols, dErrors.New(dErrors.CodeBadRequest, "CSV header is missing the identifier column")
	}
	if cols.kind < 0 || cols.value < 0 {
		return cols, dErrors.New(dErrors.CodeBadRequest, "CSV header is missing the kind or value column")
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Import reads the whole CSV and issues one claim per usable row. Rows with
// an empty identifier are dropped without being reported as failures; any
// other row error is collected per row rather than aborting the batch.
func (im *Importer) Import(ctx context.Context, r io.Reader, issuer string, progress Progress) (ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return ImportReport{}, dErrors.Wrap(dErrors.CodeBadRequest, "parse CSV", err)
	}
	if len(records) == 0 {
		return ImportReport{}, dErrors.New(dErrors.CodeBadRequest, "CSV input is empty")
	}

	cols, err := parseHeader(records[0])
	if err != nil {
		return ImportReport{}, err
	}

	rows := records[1:]
	report := ImportReport{}
	for i, record := range rows {
		line := i + 2
		identifier := field(record, cols.identifier)
		if identifier == "" {
			report.Dropped++
			im.metrics.RecordBulkRow("dropped")
			if progress != nil {
				progress(i+1, len(rows))
			}
			continue
		}

		claimID, err := im.importRow(ctx, cols, record, identifier, issuer)
		result := RowResult{Line: line, Identifier: identifier, ClaimID: claimID}
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			im.metrics.RecordBulkRow("failed")
			im.logger.WarnContext(ctx, "bulk import row failed",
				slog.Int("line", line),
				slog.String("identifier", identifier),
				slog.String("error", err.Error()))
		} else {
			report.Issued++
			im.metrics.RecordBulkRow("issued")
		}
		report.Rows = append(report.Rows, result)
		if progress != nil {
			progress(i+1, len(rows))
		}
	}
	return report, nil
}

func (im *Importer) importRow(ctx context.Context, cols importColumns, record []string, identifier, issuer string) (string, error) {
	kind, err := models.ParseKind(field(record, cols.kind))
	if err != nil {
		return "", err
	}

	value := field(record, cols.value)
	if value == "" {
		return "", errors.New("value column is empty")
	}

	var issuedOn time.Time
	if raw := field(record, cols.date); raw != "" {
		issuedOn, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return "", fmt.Errorf("date column: %w", err)
		}
	}

	if name := field(record, cols.name); name != "" {
		if _, err := im.engine.GetHolder(ctx, identifier); dErrors.Is(err, dErrors.CodeNotFound) {
			if err := im.engine.RegisterHolder(ctx, models.Holder{ID: identifier, Name: name}); err != nil {
				return "", err
			}
		}
	}

	claim, err := im.engine.Issue(ctx, service.IssueRequest{
		HolderID: identifier,
		Kind:     kind,
		Value:    value,
		Issuer:   issuer,
		IssuedOn: issuedOn,
	})
	if err != nil {
		return "", err
	}
	return claim.ID, nil
}
