package handler

import (
	"log/slog"
	"net/http"

	"github.com/pausalabs/pausa/internal/scanner"
	"github.com/pausalabs/pausa/internal/scheduled"
)

// CronHandler exposes the periodic jobs to the external scheduler that
// invokes them. Both endpoints return the run summary.
type CronHandler struct {
	scanner   *scanner.Scanner
	processor *scheduled.Processor
	logger    *slog.Logger
}

func NewCronHandler(sc *scanner.Scanner, pr *scheduled.Processor, logger *slog.Logger) *CronHandler {
	return &CronHandler{scanner: sc, processor: pr, logger: logger}
}

// ScanTimers handles POST /api/cron/scan-timers
func (h *CronHandler) ScanTimers(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scanner.Run(r.Context())
	if err != nil {
		h.logger.Error("timer scan run", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ProcessScheduled handles POST /api/cron/process-scheduled
func (h *CronHandler) ProcessScheduled(w http.ResponseWriter, r *http.Request) {
	summary, err := h.processor.Run(r.Context())
	if err != nil {
		h.logger.Error("scheduled notification run", "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
