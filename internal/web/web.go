package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"worksched/internal/config"
	"worksched/internal/graph"
	"worksched/internal/hours"
	"worksched/internal/ics"
	appLog "worksched/internal/log"
	"worksched/internal/model"
	"worksched/internal/recur"
	"worksched/internal/schedule"
	"worksched/internal/validate"
	"worksched/internal/wallclock"
)

// maxBodyBytes bounds request bodies (JSON forms and ICS uploads).
const maxBodyBytes = 1 << 20

// Server exposes the scheduling and hours API.
type Server struct {
	cfg *config.Config
	svc *schedule.Service
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *schedule.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="worksched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, svc *schedule.Service) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /api/duration", s.handleDuration)
	s.mux.HandleFunc("POST /api/weekly-hours", s.handleWeeklyHours)
	s.mux.HandleFunc("POST /api/participants/{id}/schedule", s.handleCreateSchedule)
	s.mux.HandleFunc("GET /api/participants/{id}/schedule.ics", s.handleScheduleICS)
	s.mux.HandleFunc("GET /api/participants/{id}/hours", s.handleParticipantHours)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// occurrencesResponse is the JSON response shape for occurrence previews
// and created schedules.
type occurrencesResponse struct {
	Algorithm   recur.Algorithm    `json:"algorithm"`
	Count       int                `json:"count"`
	Truncated   bool               `json:"truncated"`
	Occurrences []model.Occurrence `json:"occurrences"`
}

func newOccurrencesResponse(res recur.Result) occurrencesResponse {
	occ := res.Occurrences
	if occ == nil {
		occ = []model.Occurrence{}
	}
	return occurrencesResponse{
		Algorithm:   res.Algorithm,
		Count:       len(occ),
		Truncated:   res.Truncated,
		Occurrences: occ,
	}
}

// handleOccurrences previews the occurrences a schedule form would create,
// without storing anything.
//
// POST /api/occurrences  body: RecurrenceSpec
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	var spec model.RecurrenceSpec
	if !decodeJSON(w, r, &spec) {
		return
	}
	if err := recur.Validate(spec, s.cfg.MaxRecurrenceWeeks); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res := recur.Generate(spec, s.svc.RecurOptions())
	writeJSON(w, http.StatusOK, newOccurrencesResponse(res))
}

type durationResponse struct {
	In    string  `json:"in"`
	Out   string  `json:"out"`
	Hours float64 `json:"hours"`
}

// handleDuration returns scheduled hours between two wall-clock times.
//
// GET /api/duration?in=09:00&out=17:30
func (s *Server) handleDuration(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in, out := q.Get("in"), q.Get("out")
	if !wallclock.IsClock(in) || !wallclock.IsClock(out) {
		writeError(w, http.StatusUnprocessableEntity, "in and out must be times of day such as 09:00")
		return
	}
	writeJSON(w, http.StatusOK, durationResponse{
		In:    in,
		Out:   out,
		Hours: wallclock.Duration(in, out),
	})
}

type checkInDTO struct {
	Start       string  `json:"start" validate:"required"`
	HoursWorked float64 `json:"hours_worked" validate:"gte=0"`
}

type weeklyHoursRequest struct {
	CheckIns            []checkInDTO `json:"check_ins" validate:"dive"`
	RequiredWeeklyHours *float64     `json:"required_weekly_hours" validate:"omitempty,gte=0"`
}

// handleWeeklyHours aggregates caller-supplied check-ins into week buckets
// with a compliance comparison. The body is either JSON (weeklyHoursRequest)
// or an iCalendar attendance export (Content-Type: text/calendar).
//
// POST /api/weekly-hours
func (s *Server) handleWeeklyHours(w http.ResponseWriter, r *http.Request) {
	required := s.svc.RequiredWeeklyHours()
	var checkIns []model.CheckIn

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/calendar" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		checkIns, err = ics.ParseCheckIns(body, s.svc.Location())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid calendar: "+err.Error())
			return
		}
	} else {
		var req weeklyHoursRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if req.RequiredWeeklyHours != nil {
			required = *req.RequiredWeeklyHours
		}
		checkIns = make([]model.CheckIn, 0, len(req.CheckIns))
		for _, c := range req.CheckIns {
			checkIns = append(checkIns, model.CheckIn{
				Start:       wallclock.ParseInstantIn(c.Start, s.svc.Location()),
				HoursWorked: c.HoursWorked,
			})
		}
	}

	writeJSON(w, http.StatusOK, hours.BuildReport(checkIns, s.svc.WeekStart(), s.svc.Location(), required))
}

// handleCreateSchedule expands and stores a participant's work schedule.
//
// POST /api/participants/{id}/schedule  body: RecurrenceSpec
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var spec model.RecurrenceSpec
	if !decodeJSON(w, r, &spec) {
		return
	}

	res, err := s.svc.CreateWorkSchedule(r.Context(), id, spec)
	if err != nil {
		s.writeServiceError(w, "create schedule", id, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOccurrencesResponse(res))
}

// handleScheduleICS exports the participant's stored appointments.
//
// GET /api/participants/{id}/schedule.ics
func (s *Server) handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	occ, err := s.svc.Appointments(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, "export schedule", id, err)
		return
	}

	body := ics.Export(occ, ics.ExportOptions{
		Name:      "Work schedule " + id,
		UIDPrefix: id,
		Summary:   "Community work",
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleParticipantHours returns the participant's weekly compliance report.
//
// GET /api/participants/{id}/hours
func (s *Server) handleParticipantHours(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	report, err := s.svc.WeeklyReport(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, "weekly report", id, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeServiceError(w http.ResponseWriter, op, participantID string, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidSchedule), errors.Is(err, schedule.ErrMissingParticipant):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, graph.ErrNotFound):
		writeError(w, http.StatusNotFound, "participant not found")
	default:
		appLog.Error("api: "+op+" failed", err, "participant", participantID)
		writeError(w, http.StatusBadGateway, "backend unavailable")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
