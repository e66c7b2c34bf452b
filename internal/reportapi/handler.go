package reportapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kitchen-ledger/internal/archive"
	"kitchen-ledger/internal/ledger"
	"kitchen-ledger/pkg/logger"
)

// Handler exposes the read-only reporting endpoints: live ledger stats and
// the archive's daily reports. It never mutates anything.
type Handler struct {
	ledger  *ledger.Ledger
	archive *archive.Archive
	logger  *logger.Logger
}

func NewHandler(led *ledger.Ledger, arch *archive.Archive, log *logger.Logger) *Handler {
	return &Handler{
		ledger:  led,
		archive: arch,
		logger:  log,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", h.GetStats)
	mux.HandleFunc("/report/", h.GetReport)
	mux.HandleFunc("/report/dates", h.GetDates)
	return mux
}

// GetStats returns the live ledger counters.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := requestIDFrom(r)
	h.logger.Debug(requestID, "request_received", "Get live stats request")

	writeJSON(w, h.ledger.Stats())
}

// GetReport returns the daily report for /report/today or
// /report/{YYYY-MM-DD}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := strings.TrimPrefix(r.URL.Path, "/report/")
	if date == "" {
		http.Error(w, "Date is required", http.StatusBadRequest)
		return
	}
	if date == "today" {
		date = archive.Today()
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "Invalid date format, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	requestID := requestIDFrom(r)
	h.logger.Debug(requestID, "request_received", "Daily report request for "+date)

	writeJSON(w, h.archive.DailyReport(date))
}

// GetDates lists every day with archived business.
func (h *Handler) GetDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.archive.Dates())
}

func requestIDFrom(r *http.Request) string {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = "req-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return requestID
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
