package remote

import (
	"errors"
	"testing"

	"anwarfarm/internal/core"
)

func TestDecodeDocument(t *testing.T) {
	good := `  [{"id":"a","date":"2024-01-01","description":"Modal","income":100,"outcome":0}]`
	records, err := DecodeDocument([]byte(good))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].ID != "a" || records[0].CreatedAt != 0 {
		t.Fatalf("unexpected records %+v", records)
	}

	empty, err := DecodeDocument([]byte(`[]`))
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (err=%v)", empty, err)
	}

	for _, bad := range []string{`{"records":[]}`, `null`, `"[]"`, ``, `42`} {
		if _, err := DecodeDocument([]byte(bad)); !errors.Is(err, ErrNotArray) {
			t.Fatalf("%q expected ErrNotArray, got %v", bad, err)
		}
	}

	if _, err := DecodeDocument([]byte(`[1,2,3]`)); err == nil || errors.Is(err, ErrNotArray) {
		t.Fatalf("expected decode error for array of numbers, got %v", err)
	}
	if _, err := DecodeDocument([]byte(`[{"id":"x","date":"soon"}]`)); err == nil {
		t.Fatalf("expected error for unparsable date")
	}
}

func TestDecodeDocumentRoundsFractionalAmounts(t *testing.T) {
	doc := `[{"id":"a","date":"2024-01-01","description":"Modal","income":100,"outcome":0},` +
		`{"id":"b","date":"2024-01-02","description":"Pakan","income":0,"outcome":49.6}]`
	records, err := DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("one fractional amount must not reject the document: %v", err)
	}
	if len(records) != 2 || records[1].Outcome != 50 || core.CountRounded(records) != 1 {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestEncodeDocument(t *testing.T) {
	b, err := EncodeDocument(nil)
	if err != nil || string(b) != "[]" {
		t.Fatalf("expected [], got %s (err=%v)", b, err)
	}

	b, err = EncodeDocument([]core.Transaction{{ID: "a", Date: core.NewDate(2024, 1, 1), Description: "x", Outcome: 3, CreatedAt: 9}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeDocument(b)
	if err != nil || len(back) != 1 || back[0].Outcome != 3 || back[0].CreatedAt != 9 {
		t.Fatalf("unexpected round trip %+v (err=%v)", back, err)
	}
}
