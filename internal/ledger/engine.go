package ledger

import (
	"math"
	"sort"
	"strings"

	"anwarfarm/internal/core"
)

// TrendWindow is how many date buckets a trend keeps.
const TrendWindow = 7

// Filter selects transactions for display. The zero value matches everything.
// All set criteria must match.
type Filter struct {
	Search string
	Type   core.TxType
	// Start and End are inclusive; a zero date leaves that side open.
	Start core.Date
	End   core.Date
}

// Row is a transaction together with the running balance at its chronological position.
type Row struct {
	core.Transaction
	Balance int64 `json:"balance"`
}

// View is the display list for a filter.
type View struct {
	Rows     []Row       `json:"rows"`
	Totals   core.Totals `json:"totals"`
	Filtered bool        `json:"filtered"`
}

// Active reports whether any criterion narrows the result.
func (f Filter) Active() bool {
	return f.Search != "" || (f.Type != "" && f.Type != core.TypeAll) || !f.Start.IsZero() || !f.End.IsZero()
}

// Match reports whether tx passes every set criterion.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(f.Search)) {
		return false
	}
	switch f.Type {
	case core.TypeIncome:
		if tx.Income <= 0 {
			return false
		}
	case core.TypeOutcome:
		if tx.Outcome <= 0 {
			return false
		}
	}
	if !f.Start.IsZero() && tx.Date.Compare(f.Start) < 0 {
		return false
	}
	if !f.End.IsZero() && tx.Date.Compare(f.End) > 0 {
		return false
	}
	return true
}

// Chronological returns a copy sorted by date, then createdAt, then original position.
func Chronological(records []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// DisplayOrder returns a copy with the most recent transaction first. It is the
// exact reverse of Chronological, so same-day entries show newest first.
func DisplayOrder(records []core.Transaction) []core.Transaction {
	out := Chronological(records)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RunningBalances maps each id to the ledger balance right after that transaction.
func RunningBalances(records []core.Transaction) map[string]int64 {
	balances := make(map[string]int64, len(records))
	var balance int64
	for _, tx := range Chronological(records) {
		balance += tx.Net()
		balances[tx.ID] = balance
	}
	return balances
}

// Apply returns the records that pass f, in display order.
func Apply(records []core.Transaction, f Filter) []core.Transaction {
	matched := make([]core.Transaction, 0, len(records))
	for _, tx := range records {
		if f.Match(tx) {
			matched = append(matched, tx)
		}
	}
	return DisplayOrder(matched)
}

// Totals sums both legs over records.
func Totals(records []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range records {
		t.Income += tx.Income
		t.Outcome += tx.Outcome
	}
	t.Net = t.Income - t.Outcome
	return t
}

// Trend buckets records by date and keeps the last n buckets in chronological order.
func Trend(records []core.Transaction, n int) []core.TrendBucket {
	if n <= 0 {
		return []core.TrendBucket{}
	}
	byDate := make(map[string]*core.TrendBucket)
	for _, tx := range records {
		key := tx.Date.String()
		b, ok := byDate[key]
		if !ok {
			b = &core.TrendBucket{Date: tx.Date}
			byDate[key] = b
		}
		b.Income += tx.Income
		b.Outcome += tx.Outcome
	}

	buckets := make([]core.TrendBucket, 0, len(byDate))
	for _, b := range byDate {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Compare(buckets[j].Date) < 0
	})
	if len(buckets) > n {
		buckets = buckets[len(buckets)-n:]
	}
	return buckets
}

// SplitOf computes the income/outcome share of their combined volume.
// Both shares are zero when there is no volume at all.
func SplitOf(t core.Totals) core.Split {
	total := t.Income + t.Outcome
	if total <= 0 {
		return core.Split{}
	}
	in := int(math.Floor(float64(t.Income)/float64(total)*100 + 0.5))
	return core.Split{IncomePercent: in, OutcomePercent: 100 - in}
}

// BuildView filters records and attaches balances computed over the whole ledger.
func BuildView(records []core.Transaction, f Filter) View {
	balances := RunningBalances(records)
	shown := Apply(records, f)
	rows := make([]Row, len(shown))
	for i, tx := range shown {
		rows[i] = Row{Transaction: tx, Balance: balances[tx.ID]}
	}
	return View{
		Rows:     rows,
		Totals:   Totals(shown),
		Filtered: f.Active(),
	}
}
