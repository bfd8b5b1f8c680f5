package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date layout used on the wire and in forms.
const DateLayout = "2006-01-02"

const (
	Guest Role = "guest"
	Admin Role = "admin"
)

const (
	TypeAll     TxType = "all"
	TypeIncome  TxType = "income"
	TypeOutcome TxType = "outcome"
)

type (
	// Role gates mutation rights. Guests are read-only.
	Role string

	// TxType selects which leg a filter looks at.
	TxType string

	// Date is a calendar date without a time component, always UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is the only ledger entity. Field names on the wire match the
	// blob the farm app has always written to local storage.
	Transaction struct {
		ID          string `json:"id"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Income      int64  `json:"income"`
		Outcome     int64  `json:"outcome"`
		// CreatedAt is epoch milliseconds; zero marks a legacy record.
		CreatedAt int64 `json:"createdAt,omitempty"`

		// rounded is set when a stored amount was fractional and got rounded on decode.
		rounded bool
	}

	// TransactionInput carries the mutable fields submitted by the form.
	TransactionInput struct {
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Income      int64  `json:"income"`
		Outcome     int64  `json:"outcome"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrNoAmount         = errors.New("income or outcome is required")
	ErrEmptyDescription = errors.New("empty description")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. Longer ISO strings are truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare orders two dates by calendar day.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (r Role) IsAdmin() bool {
	return r == Admin
}

// ParseTxType maps a query value to a TxType. Unknown values select everything.
func ParseTxType(s string) TxType {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome
	case TypeOutcome:
		return TypeOutcome
	default:
		return TypeAll
	}
}

// Net is the signed contribution of the transaction to the running balance.
func (t Transaction) Net() int64 {
	return t.Income - t.Outcome
}

// UnmarshalJSON accepts fractional or null amounts, which older clients could
// store, rounding them to the nearest integer.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var w struct {
		ID          string      `json:"id"`
		Date        Date        `json:"date"`
		Description string      `json:"description"`
		Income      json.Number `json:"income"`
		Outcome     json.Number `json:"outcome"`
		CreatedAt   json.Number `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	income, r1, err := wholeNumber(w.Income)
	if err != nil {
		return fmt.Errorf("transaction %q income: %w", w.ID, err)
	}
	outcome, r2, err := wholeNumber(w.Outcome)
	if err != nil {
		return fmt.Errorf("transaction %q outcome: %w", w.ID, err)
	}
	createdAt, _, err := wholeNumber(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("transaction %q createdAt: %w", w.ID, err)
	}

	*t = Transaction{
		ID:          w.ID,
		Date:        w.Date,
		Description: w.Description,
		Income:      income,
		Outcome:     outcome,
		CreatedAt:   createdAt,
		rounded:     r1 || r2,
	}
	return nil
}

// AmountsRounded reports whether decoding had to round a fractional amount.
func (t Transaction) AmountsRounded() bool {
	return t.rounded
}

// wholeNumber converts a JSON number to int64, rounding half away from zero.
// An absent or null value is zero.
func wholeNumber(n json.Number) (int64, bool, error) {
	if n == "" {
		return 0, false, nil
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v, false, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false, fmt.Errorf("%w: %s", ErrInvalidAmount, n)
	}
	v := int64(math.Round(f))
	return v, float64(v) != f, nil
}

// CountRounded returns how many records had fractional amounts rounded on decode.
func CountRounded(records []Transaction) int {
	n := 0
	for _, r := range records {
		if r.rounded {
			n++
		}
	}
	return n
}

// Apply replaces every mutable field, keeping ID and CreatedAt.
func (t Transaction) Apply(in TransactionInput) Transaction {
	t.rounded = false
	t.Date = in.Date
	t.Description = in.Description
	t.Income = in.Income
	t.Outcome = in.Outcome
	return t
}

// Input returns the mutable fields of the transaction.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Date:        t.Date,
		Description: t.Description,
		Income:      t.Income,
		Outcome:     t.Outcome,
	}
}

// Validate enforces the form rules. The ledger itself accepts anything, since
// imported history may not satisfy them.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	if in.Income < 0 || in.Outcome < 0 {
		return ErrNegativeAmount
	}
	if in.Income == 0 && in.Outcome == 0 {
		return ErrNoAmount
	}
	return nil
}
