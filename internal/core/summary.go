package core

// Totals aggregates a set of transactions.
type Totals struct {
	Income  int64 `json:"totalIncome"`
	Outcome int64 `json:"totalOutcome"`
	Net     int64 `json:"netBalance"`
}

// TrendBucket sums both legs for one calendar date.
type TrendBucket struct {
	Date    Date  `json:"date"`
	Income  int64 `json:"income"`
	Outcome int64 `json:"outcome"`
}

// Split is the share of income and outcome in their combined volume, in whole percent.
type Split struct {
	IncomePercent  int `json:"incomePercent"`
	OutcomePercent int `json:"outcomePercent"`
}
