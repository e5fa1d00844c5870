package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"credvault/internal/verify"
)

// ClaimCellDelimiter separates kind:value pairs inside the Claims cell.
const ClaimCellDelimiter = " | "

// Exporter renders per-identifier verification results as CSV, one row per
// queried identifier. Identifiers with no match produce a row with empty
// credential fields so input and output rows stay 1:1.
type Exporter struct {
	verifier *verify.Verifier
}

func NewExporter(verifier *verify.Verifier) *Exporter {
	return &Exporter{verifier: verifier}
}

var exportHeader = []string{"Identifier", "Name", "Batch", "Dept", "Claims"}

// Export runs a direct verification per identifier and streams the CSV to w.
func (e *Exporter) Export(ctx context.Context, w io.Writer, identifiers []string, progress Progress) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for i, id := range identifiers {
		result, err := e.verifier.VerifyHolder(ctx, id)
		if err != nil {
			return fmt.Errorf("verify %s: %w", id, err)
		}
		if err := writer.Write(exportRow(id, result)); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		if progress != nil {
			progress(i+1, len(identifiers))
		}
	}

	writer.Flush()
	return writer.Error()
}

func exportRow(id string, result verify.Result) []string {
	cells := make([]string, 0, len(result.Claims))
	for _, c := range result.Claims {
		cells = append(cells, c.Kind+":"+c.Value)
	}
	return []string{
		id,
		result.HolderName,
		result.Attributes["batch"],
		result.Attributes["dept"],
		strings.Join(cells, ClaimCellDelimiter),
	}
}
