package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-05", NewDate(2024, 3, 5), true},
		{" 2024-12-31 ", NewDate(2024, 12, 31), true},
		{"2024-03-05T10:00:00.000Z", NewDate(2024, 3, 5), true},
		{"05/03/2024", Date{}, false},
		{"2024-13-01", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 9))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-09"` {
		t.Fatalf("unexpected json %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-01-09"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-01-09" {
		t.Fatalf("unexpected date %s", d)
	}
	if err := json.Unmarshal([]byte(`""`), &d); err != nil || !d.IsZero() {
		t.Fatalf("empty string should give zero date, got %v (err=%v)", d, err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &d); err == nil {
		t.Fatalf("expected error for garbage date")
	}
}

func TestTransactionJSONFieldNames(t *testing.T) {
	tx := Transaction{
		ID:          "a1",
		Date:        NewDate(2024, 2, 1),
		Description: "Jual telur",
		Income:      500,
		CreatedAt:   1706745600000,
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"a1","date":"2024-02-01","description":"Jual telur","income":500,"outcome":0,"createdAt":1706745600000}`
	if string(b) != want {
		t.Fatalf("expected %s, got %s", want, b)
	}

	var legacy Transaction
	if err := json.Unmarshal([]byte(`{"id":"x","date":"2023-05-01","description":"Pakan","income":0,"outcome":75}`), &legacy); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if legacy.CreatedAt != 0 || legacy.Outcome != 75 {
		t.Fatalf("unexpected legacy record %+v", legacy)
	}
}

func TestTransactionUnmarshalRoundsAmounts(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		income  int64
		outcome int64
		rounded bool
	}{
		{"integers", `{"income":1500,"outcome":0}`, 1500, 0, false},
		{"whole float", `{"income":20.0,"outcome":0}`, 20, 0, false},
		{"half rounds up", `{"income":2.5,"outcome":0}`, 3, 0, true},
		{"below half rounds down", `{"income":0,"outcome":7.4}`, 0, 7, true},
		{"null is zero", `{"income":null,"outcome":5}`, 0, 5, false},
		{"absent is zero", `{"outcome":5}`, 0, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx Transaction
			if err := json.Unmarshal([]byte(tt.body), &tx); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if tx.Income != tt.income || tx.Outcome != tt.outcome || tx.AmountsRounded() != tt.rounded {
				t.Fatalf("expected %d/%d rounded=%v, got %d/%d rounded=%v",
					tt.income, tt.outcome, tt.rounded, tx.Income, tx.Outcome, tx.AmountsRounded())
			}
		})
	}

	var tx Transaction
	if err := json.Unmarshal([]byte(`{"income":1e300}`), &tx); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for out-of-range amount, got %v", err)
	}

	var records []Transaction
	if err := json.Unmarshal([]byte(`[{"id":"a","income":1},{"id":"b","outcome":0.6}]`), &records); err != nil {
		t.Fatalf("unmarshal ledger: %v", err)
	}
	if n := CountRounded(records); n != 1 {
		t.Fatalf("expected 1 rounded record, got %d", n)
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{Date: NewDate(2024, 1, 1), Description: "Beli pakan", Outcome: 120}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		in   TransactionInput
		want error
	}{
		{TransactionInput{Date: NewDate(2024, 1, 1), Description: "  ", Income: 1}, ErrEmptyDescription},
		{TransactionInput{Date: Date{Time: time.Time{}}, Description: "a", Income: 1}, ErrInvalidDate},
		{TransactionInput{Date: NewDate(2024, 1, 1), Description: "a", Income: -1}, ErrNegativeAmount},
		{TransactionInput{Date: NewDate(2024, 1, 1), Description: "a", Outcome: -5, Income: 10}, ErrNegativeAmount},
		{TransactionInput{Date: NewDate(2024, 1, 1), Description: "a"}, ErrNoAmount},
	}
	for i, tc := range cases {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestTransactionApplyKeepsIdentity(t *testing.T) {
	tx := Transaction{ID: "id-1", Date: NewDate(2024, 1, 1), Description: "old", Income: 10, CreatedAt: 42}
	got := tx.Apply(TransactionInput{Date: NewDate(2024, 2, 2), Description: "new", Outcome: 7})
	if got.ID != "id-1" || got.CreatedAt != 42 {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.Description != "new" || got.Income != 0 || got.Outcome != 7 || got.Date.String() != "2024-02-02" {
		t.Fatalf("fields not replaced: %+v", got)
	}
	if got.Net() != -7 {
		t.Fatalf("expected net -7, got %d", got.Net())
	}
}

func TestParseTxType(t *testing.T) {
	cases := map[string]TxType{
		"income":  TypeIncome,
		"OUTCOME": TypeOutcome,
		"all":     TypeAll,
		"":        TypeAll,
		"bogus":   TypeAll,
	}
	for in, want := range cases {
		if got := ParseTxType(in); got != want {
			t.Fatalf("%q expected %s, got %s", in, want, got)
		}
	}
}
