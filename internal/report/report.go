// Package report renders the ledger view as downloadable files.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"anwarfarm/internal/core"
	"anwarfarm/internal/ledger"
)

const fileStem = "Laporan_Keuangan_"

// Header is the first CSV line.
var Header = []string{"Tanggal", "Keterangan", "Uang Masuk", "Uang Keluar", "Saldo"}

// FileName names an export made at now, e.g. Laporan_Keuangan_2024-01-05.csv.
func FileName(now time.Time, ext string) string {
	return fileStem + now.UTC().Format(core.DateLayout) + "." + ext
}

// chronological returns view rows oldest first. View rows are in display
// order, which is the exact reverse.
func chronological(v ledger.View) []ledger.Row {
	rows := make([]ledger.Row, len(v.Rows))
	for i, r := range v.Rows {
		rows[len(rows)-1-i] = r
	}
	return rows
}

// WriteCSV writes the view oldest first. The description is always quoted;
// numbers are plain integers. Lines are joined by \n without a trailing one.
func WriteCSV(w io.Writer, v ledger.View) error {
	var b strings.Builder
	b.WriteString(strings.Join(Header, ","))
	for _, r := range chronological(v) {
		b.WriteByte('\n')
		b.WriteString(r.Date.String())
		b.WriteByte(',')
		b.WriteString(quote(r.Description))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(r.Income, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(r.Outcome, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(r.Balance, 10))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CSV renders the view to bytes.
func CSV(v ledger.View) []byte {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, v)
	return buf.Bytes()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SaveFiles writes the CSV and XLSX exports of v into dir and returns their paths.
// Each file is written to a temporary name first so readers never see a partial file.
func SaveFiles(dir string, v ledger.View, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	outputs := []struct {
		ext   string
		write func(io.Writer, ledger.View) error
	}{
		{"csv", WriteCSV},
		{"xlsx", WriteXLSX},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(dir, FileName(now, out.ext))
		if err := writeAtomic(path, func(w io.Writer) error { return out.write(w, v) }); err != nil {
			return paths, fmt.Errorf("write %s report: %w", out.ext, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
