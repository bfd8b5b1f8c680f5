// Package format renders amounts and dates the way the farm's books are read:
// Indonesian locale, amounts kept in thousands of rupiah.
package format

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"anwarfarm/internal/core"
)

// thousandsSuffix is appended because stored amounts are in thousands of rupiah.
const thousandsSuffix = ".000"

var printer = message.NewPrinter(language.Indonesian)

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// Rupiah formats an amount as "Rp. 1.500.000" for 1500, with a leading minus for negatives.
func Rupiah(amount int64) string {
	sign := ""
	abs := uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = uint64(-(amount + 1)) + 1
	}
	return sign + "Rp. " + Grouped(abs) + thousandsSuffix
}

// Grouped writes n with id-ID thousand separators.
func Grouped(n uint64) string {
	return printer.Sprintf("%d", n)
}

// Amount renders one leg of a table row: the Rupiah value, or "-" for an empty leg.
func Amount(amount int64) string {
	if amount <= 0 {
		return "-"
	}
	return Rupiah(amount)
}

// Date renders a calendar date as "05 Januari 2024".
func Date(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	day := strconv.Itoa(d.Day())
	if len(day) == 1 {
		day = "0" + day
	}
	return day + " " + months[d.Month()-1] + " " + strconv.Itoa(d.Year())
}

// Percent renders a whole percentage such as "63%".
func Percent(p int) string {
	return strconv.Itoa(p) + "%"
}
