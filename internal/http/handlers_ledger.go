package http

import (
	"errors"
	"io"
	"net/http"

	"anwarfarm/internal/core"
	"anwarfarm/internal/format"
	"anwarfarm/internal/ledger"
	applog "anwarfarm/internal/log"
	"anwarfarm/internal/report"
)

// txDTO is a transaction plus its display labels.
type txDTO struct {
	core.Transaction
	DateLabel    string `json:"dateLabel"`
	IncomeLabel  string `json:"incomeLabel"`
	OutcomeLabel string `json:"outcomeLabel"`
}

type rowDTO struct {
	txDTO
	Balance      int64  `json:"balance"`
	BalanceLabel string `json:"balanceLabel"`
}

type totalsDTO struct {
	core.Totals
	IncomeLabel  string `json:"incomeLabel"`
	OutcomeLabel string `json:"outcomeLabel"`
	NetLabel     string `json:"netLabel"`
}

type listBody struct {
	Rows     []rowDTO  `json:"rows"`
	Totals   totalsDTO `json:"totals"`
	Filtered bool      `json:"filtered"`
	Count    int       `json:"count"`
}

type summaryBody struct {
	Totals totalsDTO  `json:"totals"`
	Split  core.Split `json:"split"`
	Count  int        `json:"count"`
}

type trendBucketDTO struct {
	core.TrendBucket
	Label string `json:"label"`
}

func newTxDTO(tx core.Transaction) txDTO {
	return txDTO{
		Transaction:  tx,
		DateLabel:    format.Date(tx.Date),
		IncomeLabel:  format.Amount(tx.Income),
		OutcomeLabel: format.Amount(tx.Outcome),
	}
}

func newTotalsDTO(t core.Totals) totalsDTO {
	return totalsDTO{
		Totals:       t,
		IncomeLabel:  format.Rupiah(t.Income),
		OutcomeLabel: format.Rupiah(t.Outcome),
		NetLabel:     format.Rupiah(t.Net),
	}
}

func (s *Server) role(r *http.Request) core.Role {
	if s.gate == nil {
		return core.Guest
	}
	return s.gate.RoleFromRequest(r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.View(ParseFilter(r.URL.Query()))

	body := listBody{
		Rows:     make([]rowDTO, len(v.Rows)),
		Totals:   newTotalsDTO(v.Totals),
		Filtered: v.Filtered,
		Count:    len(v.Rows),
	}
	for i, row := range v.Rows {
		body.Rows[i] = rowDTO{
			txDTO:        newTxDTO(row.Transaction),
			Balance:      row.Balance,
			BalanceLabel: format.Rupiah(row.Balance),
		}
	}
	NewJSONResponse().Body(body).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	role := s.role(r)
	if !role.IsAdmin() {
		s.ignoreGuest(w, r, applog.OpCreate)
		return
	}

	in, ok := s.parseInput(w, r)
	if !ok {
		return
	}
	tx, applied, err := s.ledger.Create(r.Context(), role, in)
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	s.writeMutation(w, http.StatusCreated, applied, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	role := s.role(r)
	if !role.IsAdmin() {
		s.ignoreGuest(w, r, applog.OpUpdate)
		return
	}

	in, ok := s.parseInput(w, r)
	if !ok {
		return
	}
	tx, applied, err := s.ledger.Update(r.Context(), role, r.PathValue("id"), in)
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	s.writeMutation(w, http.StatusOK, applied, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	role := s.role(r)
	if !role.IsAdmin() {
		s.ignoreGuest(w, r, applog.OpDelete)
		return
	}
	applied := s.ledger.Delete(r.Context(), role, r.PathValue("id"))
	NewJSONResponse().Body(mutationBody{Applied: applied}).Write(w)
}

func (s *Server) parseInput(w http.ResponseWriter, r *http.Request) (core.TransactionInput, bool) {
	in, err := ParseTransactionInput(NewRequestBodyParser(w, r))
	switch {
	case err == nil:
		return in, true
	case errors.Is(err, errBadBody):
		BadRequestError("malformed request body").Write(w)
	default:
		UnprocessableEntityError(validationMessage(err)).Write(w)
	}
	return core.TransactionInput{}, false
}

func (s *Server) writeMutation(w http.ResponseWriter, status int, applied bool, tx core.Transaction) {
	body := mutationBody{Applied: applied}
	if applied {
		dto := newTxDTO(tx)
		body.Transaction = &dto
	} else {
		status = http.StatusOK
	}
	NewJSONResponse().Status(status).Body(body).Write(w)
}

func (s *Server) ignoreGuest(w http.ResponseWriter, r *http.Request, op string) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Guest mutation ignored",
		applog.FieldOperation, op, applog.FieldRole, core.Guest)
	NewJSONResponse().Body(mutationBody{Applied: false}).Write(w)
}

// validationMessage maps input errors to the messages the form shows.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return "Keterangan wajib diisi"
	case errors.Is(err, core.ErrInvalidDate):
		return "Tanggal tidak valid"
	case errors.Is(err, core.ErrNegativeAmount):
		return "Nominal tidak boleh negatif"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Nominal tidak valid"
	case errors.Is(err, core.ErrNoAmount):
		return "Isi uang masuk atau uang keluar"
	default:
		return err.Error()
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.ledger.Summary()
	NewJSONResponse().Body(summaryBody{
		Totals: newTotalsDTO(sum.Totals),
		Split:  sum.Split,
		Count:  sum.Count,
	}).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	buckets := s.ledger.Trend(ParseFilter(r.URL.Query()))
	out := make([]trendBucketDTO, len(buckets))
	for i, b := range buckets {
		out[i] = trendBucketDTO{TrendBucket: b, Label: format.Date(b.Date)}
	}
	NewJSONResponse().Body(map[string]any{"buckets": out}).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", "text/csv; charset=utf-8", report.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report.WriteXLSX)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, ledger.View) error) {
	v := s.ledger.View(ParseFilter(r.URL.Query()))
	name := report.FileName(s.now(), ext)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := write(w, v); err != nil {
		s.audit.LogError(r.Context(), "Export failed", err, applog.ComponentReport, applog.OpExport, nil)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		applog.FieldOperation, applog.OpExport, applog.FieldCount, len(v.Rows), "file", name)
}
