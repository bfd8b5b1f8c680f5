package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anwarfarm/internal/core"
)

func tx(id, date string, income, outcome, createdAt int64) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{ID: id, Date: d, Description: "entry " + id, Income: income, Outcome: outcome, CreatedAt: createdAt}
}

func ids(records []core.Transaction) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRunningBalancesTwoDays(t *testing.T) {
	records := []core.Transaction{
		tx("tx1", "2024-01-01", 100, 0, 0),
		tx("tx2", "2024-01-02", 0, 40, 0),
	}

	assert.Equal(t, map[string]int64{"tx1": 100, "tx2": 60}, RunningBalances(records))
	assert.Equal(t, core.Totals{Income: 100, Outcome: 40, Net: 60}, Totals(records))
}

func TestRunningBalancesSameDayUsesCreatedAt(t *testing.T) {
	records := []core.Transaction{
		tx("second", "2024-03-01", 50, 0, 2000),
		tx("first", "2024-03-01", 0, 20, 1000),
	}

	assert.Equal(t, []string{"first", "second"}, ids(Chronological(records)))
	assert.Equal(t, map[string]int64{"first": -20, "second": 30}, RunningBalances(records))
}

func TestRunningBalancesIgnoreInputOrder(t *testing.T) {
	records := []core.Transaction{
		tx("a", "2024-01-03", 10, 0, 5),
		tx("b", "2024-01-01", 0, 3, 1),
		tx("c", "2024-01-02", 7, 2, 9),
		tx("d", "2024-01-01", 4, 0, 2),
	}
	want := RunningBalances(records)

	assert.Equal(t, want, RunningBalances(DisplayOrder(records)))
	reversed := []core.Transaction{records[3], records[2], records[1], records[0]}
	assert.Equal(t, want, RunningBalances(reversed))

	chrono := Chronological(records)
	last := chrono[len(chrono)-1]
	assert.Equal(t, Totals(records).Net, want[last.ID])
}

func TestChronologicalKeepsInsertionOrderOnFullTie(t *testing.T) {
	records := []core.Transaction{
		tx("x", "2024-02-01", 1, 0, 0),
		tx("y", "2024-02-01", 2, 0, 0),
		tx("z", "2024-02-01", 3, 0, 0),
	}
	assert.Equal(t, []string{"x", "y", "z"}, ids(Chronological(records)))
	assert.Equal(t, []string{"z", "y", "x"}, ids(DisplayOrder(records)))
	assert.Equal(t, []string{"x", "y", "z"}, ids(records), "input must not be reordered")
}

func TestFilterByType(t *testing.T) {
	records := []core.Transaction{
		tx("in", "2024-01-01", 100, 0, 1),
		tx("out", "2024-01-02", 0, 40, 2),
	}

	assert.Equal(t, []string{"in"}, ids(Apply(records, Filter{Type: core.TypeIncome})))
	assert.Equal(t, []string{"out"}, ids(Apply(records, Filter{Type: core.TypeOutcome})))
}

func TestDefaultFilterReturnsEverything(t *testing.T) {
	records := []core.Transaction{
		tx("a", "2024-01-05", 1, 0, 1),
		tx("b", "2023-12-31", 0, 1, 2),
		tx("c", "2024-01-01", 0, 0, 3),
	}

	f := Filter{Type: core.TypeAll}
	assert.False(t, f.Active())
	assert.ElementsMatch(t, records, Apply(records, f))
	assert.ElementsMatch(t, records, Apply(records, Filter{}))
}

func TestFilterSearchAndRange(t *testing.T) {
	records := []core.Transaction{
		{ID: "1", Date: core.NewDate(2024, 1, 1), Description: "Jual Telur Ayam", Income: 300},
		{ID: "2", Date: core.NewDate(2024, 1, 10), Description: "Beli pakan", Outcome: 120},
		{ID: "3", Date: core.NewDate(2024, 1, 20), Description: "jual telur bebek", Income: 80},
		{ID: "4", Date: core.NewDate(2024, 2, 1), Description: "Obat", Outcome: 15},
	}

	f := Filter{Search: "TELUR"}
	assert.True(t, f.Active())
	assert.Equal(t, []string{"3", "1"}, ids(Apply(records, f)))

	ranged := Filter{Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 1, 20)}
	assert.Equal(t, []string{"3", "2"}, ids(Apply(records, ranged)), "bounds are inclusive")

	openEnd := Filter{Start: core.NewDate(2024, 1, 15)}
	assert.Equal(t, []string{"4", "3"}, ids(Apply(records, openEnd)))

	combined := Filter{Search: "telur", Type: core.TypeIncome, End: core.NewDate(2024, 1, 5)}
	assert.Equal(t, []string{"1"}, ids(Apply(records, combined)))

	assert.Empty(t, Apply(records, Filter{Search: "sapi"}))
}

func TestBuildViewUsesWholeLedgerBalances(t *testing.T) {
	records := []core.Transaction{
		tx("a", "2024-01-01", 100, 0, 1),
		tx("b", "2024-01-02", 0, 30, 2),
		tx("c", "2024-01-03", 50, 0, 3),
	}

	view := BuildView(records, Filter{Type: core.TypeIncome})
	require.Len(t, view.Rows, 2)
	assert.True(t, view.Filtered)
	assert.Equal(t, "c", view.Rows[0].ID)
	assert.Equal(t, int64(120), view.Rows[0].Balance)
	assert.Equal(t, "a", view.Rows[1].ID)
	assert.Equal(t, int64(100), view.Rows[1].Balance)
	assert.Equal(t, core.Totals{Income: 150, Outcome: 0, Net: 150}, view.Totals)
}

func TestEmptyInputs(t *testing.T) {
	assert.Empty(t, RunningBalances(nil))
	assert.Equal(t, core.Totals{}, Totals(nil))
	assert.Empty(t, Apply(nil, Filter{}))
	assert.Empty(t, Trend(nil, TrendWindow))
	assert.Equal(t, core.Split{}, SplitOf(core.Totals{}))

	view := BuildView(nil, Filter{})
	assert.Empty(t, view.Rows)
	assert.False(t, view.Filtered)
}

func TestTrendKeepsLastSevenDates(t *testing.T) {
	var records []core.Transaction
	for day := 1; day <= 9; day++ {
		records = append(records, core.Transaction{
			ID:     string(rune('a' + day)),
			Date:   core.NewDate(2024, 5, day),
			Income: int64(day),
		})
	}
	records = append(records, core.Transaction{ID: "extra", Date: core.NewDate(2024, 5, 9), Outcome: 4})

	buckets := Trend(records, TrendWindow)
	require.Len(t, buckets, TrendWindow)
	assert.Equal(t, "2024-05-03", buckets[0].Date.String())
	assert.Equal(t, "2024-05-09", buckets[6].Date.String())
	assert.Equal(t, int64(9), buckets[6].Income)
	assert.Equal(t, int64(4), buckets[6].Outcome)
}

func TestSplitOf(t *testing.T) {
	cases := []struct {
		totals core.Totals
		want   core.Split
	}{
		{core.Totals{Income: 100, Outcome: 0}, core.Split{IncomePercent: 100, OutcomePercent: 0}},
		{core.Totals{Income: 1, Outcome: 2}, core.Split{IncomePercent: 33, OutcomePercent: 67}},
		{core.Totals{Income: 1, Outcome: 1}, core.Split{IncomePercent: 50, OutcomePercent: 50}},
		{core.Totals{Income: 5, Outcome: 3}, core.Split{IncomePercent: 63, OutcomePercent: 37}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SplitOf(tc.totals))
	}
}
