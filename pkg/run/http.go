package run

import (
	"encoding/json"
	"net/http"

	"github.com/contadata/balancesync/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

// Handler exposes the live run state while a long extraction campaign is
// in flight.
type Handler struct {
	orc *Orchestrator
}

func NewHandler(orc *Orchestrator) *Handler {
	return &Handler{orc: orc}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":  h.orc.RunID(),
		"targets": h.orc.Snapshot(),
	})
}
