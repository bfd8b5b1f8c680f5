package http

import (
	"net/http"

	applog "anwarfarm/internal/log"
	"anwarfarm/internal/services"
)

type pullBody struct {
	Applied bool                `json:"applied"`
	Status  services.SyncStatus `json:"status"`
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.ledger.Sync().Status()).Write(w)
}

// handleSyncPull replaces the local ledger with the remote document on demand.
func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if !s.role(r).IsAdmin() {
		s.ignoreGuest(w, r, applog.OpPull)
		return
	}
	sync := s.ledger.Sync()
	applied := sync.Pull(r.Context())
	NewJSONResponse().Body(pullBody{Applied: applied, Status: sync.Status()}).Write(w)
}
