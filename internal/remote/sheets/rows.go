package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"anwarfarm/internal/core"
)

// header is written as the first row so the sheet stays readable by hand.
var header = []any{"id", "date", "description", "income", "outcome", "createdAt"}

// buildRows renders the ledger as a header row plus one row per transaction.
func buildRows(records []core.Transaction) [][]any {
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, header)
	for _, tx := range records {
		rows = append(rows, []any{tx.ID, tx.Date.String(), tx.Description, tx.Income, tx.Outcome, tx.CreatedAt})
	}
	return rows
}

// parseRows converts a values matrix back into transactions. A leading header
// row and fully blank rows are skipped; any malformed row fails the whole read.
func parseRows(values [][]any) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, row := range values {
		if i == 0 && len(row) > 0 && strings.EqualFold(cellString(row[0]), "id") {
			continue
		}
		if blank(row) {
			continue
		}
		tx, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRow(row []any) (core.Transaction, error) {
	var tx core.Transaction
	tx.ID = cellString(safeGet(row, 0))
	if tx.ID == "" {
		return tx, fmt.Errorf("missing id")
	}
	if s := cellString(safeGet(row, 1)); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return tx, err
		}
		tx.Date = d
	}
	tx.Description = cellString(safeGet(row, 2))

	var err error
	if tx.Income, err = cellInt(safeGet(row, 3)); err != nil {
		return tx, fmt.Errorf("income: %w", err)
	}
	if tx.Outcome, err = cellInt(safeGet(row, 4)); err != nil {
		return tx, fmt.Errorf("outcome: %w", err)
	}
	if tx.CreatedAt, err = cellInt(safeGet(row, 5)); err != nil {
		return tx, fmt.Errorf("createdAt: %w", err)
	}
	return tx, nil
}

func safeGet(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// cellInt accepts the numeric forms the Sheets API hands back: JSON numbers
// decode as float64, RAW text cells as strings.
func cellInt(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(math.Round(n)), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %v", core.ErrInvalidAmount, v)
	}
}

func blank(row []any) bool {
	for _, c := range row {
		if cellString(c) != "" {
			return false
		}
	}
	return true
}
