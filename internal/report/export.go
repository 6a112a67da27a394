package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"finbot/internal/storage"
)

// ExportCSV writes the given transactions as UTF-8 CSV. A BOM is emitted
// first so spreadsheet tools pick up the Vietnamese category names.
func ExportCSV(w io.Writer, rows []storage.TransactionRow) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	header := []string{"id", "date", "category", "amount", "currency", "type", "note"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.Date.Format(time.RFC3339),
			row.CategoryName,
			row.Amount.String(),
			row.Currency,
			string(row.Type),
			row.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write transaction %d: %w", row.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}
