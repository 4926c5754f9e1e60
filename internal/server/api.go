package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/logging"
	"github.com/teemow/meetgate/internal/orchestrator"
)

// maxBodyBytes caps request bodies on the JSON API.
const maxBodyBytes = 1 << 20

// StartRequest is the body of POST /api/start.
type StartRequest struct {
	InitialMessage string `json:"initialMessage,omitempty"`
	Requester      string `json:"requester,omitempty"`
}

// StartResponse is returned by POST /api/start.
type StartResponse struct {
	JobID string `json:"jobId"`
}

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	JobID   string `json:"jobId"`
	Content string `json:"content"`
}

// CompleteRequest is the body of POST /api/complete.
type CompleteRequest struct {
	JobID string         `json:"jobId"`
	Form  map[string]any `json:"form"`
	Slot  *job.Slot      `json:"slot,omitempty"`
}

// FormSubmitRequest is the body of POST /api/form/submit.
type FormSubmitRequest struct {
	JobID  string         `json:"jobId"`
	FormID string         `json:"formId"`
	Values map[string]any `json:"values"`
	Slot   *job.Slot      `json:"slot,omitempty"`
}

// OKResponse acknowledges a message.
type OKResponse struct {
	OK bool `json:"ok"`
}

// BookingResponse is returned by both submission endpoints.
type BookingResponse struct {
	OK    bool         `json:"ok"`
	Event *job.Booking `json:"event"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// API serves the meeting request endpoints.
type API struct {
	sc     *ServerContext
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewAPI creates the API handlers over sc's orchestrator.
func NewAPI(sc *ServerContext) *API {
	return &API{
		sc:     sc,
		orch:   sc.Orchestrator(),
		logger: logging.WithComponent(sc.Logger(), "api"),
	}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/start", a.handleStart)
	mux.HandleFunc("GET /api/events", a.handleEvents)
	mux.HandleFunc("GET /api/events/{jobId}", a.handleEvents)
	mux.HandleFunc("POST /api/message", a.handleMessage)
	mux.HandleFunc("POST /api/complete", a.handleComplete)
	mux.HandleFunc("POST /api/form/submit", a.handleFormSubmit)
	mux.HandleFunc("GET /api/jobs", a.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{jobId}", a.handleGetJob)
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		a.sendError(w, r, err)
		return
	}
	j, err := a.orch.Start(r.Context(), orchestrator.StartRequest{
		InitialMessage: req.InitialMessage,
		Requester:      req.Requester,
	})
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StartResponse{JobID: j.ID})
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		a.sendError(w, r, err)
		return
	}
	if err := requireFields("jobId", req.JobID, "content", req.Content); err != nil {
		a.sendError(w, r, err)
		return
	}
	if err := a.orch.ReceiveMessage(r.Context(), req.JobID, req.Content); err != nil {
		a.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (a *API) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		a.sendError(w, r, err)
		return
	}
	if err := requireFields("jobId", req.JobID); err != nil {
		a.sendError(w, r, err)
		return
	}
	if req.Form == nil {
		a.sendError(w, r, fmt.Errorf("%w: form is required", job.ErrInvalidInput))
		return
	}
	booking, err := a.orch.SubmitDetails(r.Context(), req.JobID, req.Form, req.Slot)
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{OK: true, Event: booking})
}

func (a *API) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	var req FormSubmitRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		a.sendError(w, r, err)
		return
	}
	if err := requireFields("jobId", req.JobID); err != nil {
		a.sendError(w, r, err)
		return
	}
	if req.Values == nil {
		a.sendError(w, r, fmt.Errorf("%w: values is required", job.ErrInvalidInput))
		return
	}
	booking, err := a.orch.SubmitForm(r.Context(), req.JobID, req.FormID, req.Values, req.Slot)
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookingResponse{OK: true, Event: booking})
}

func (a *API) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := a.orch.Get(r.Context(), r.PathValue("jobId"))
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (a *API) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ids, err := a.orch.List(r.Context())
	if err != nil {
		a.sendError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"jobIds": ids})
}

// statusFor maps orchestrator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, job.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, job.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, job.ErrProvider), errors.Is(err, job.ErrOracleUnavailable), errors.Is(err, job.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes a JSON error. Internal errors are logged and not echoed.
func (a *API) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, logging.Err(err))
		msg = "internal server error"
	} else {
		a.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, logging.Err(err))
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body into v. An empty body is accepted
// only when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: request body is required", job.ErrInvalidInput)
	case err != nil:
		return fmt.Errorf("%w: invalid JSON body: %v", job.ErrInvalidInput, err)
	}
	return nil
}

// requireFields takes name/value pairs and rejects blank values, naming every
// absent field.
func requireFields(pairs ...string) error {
	var absent []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			absent = append(absent, pairs[i])
		}
	}
	if len(absent) > 0 {
		return fmt.Errorf("%w: %s required", job.ErrInvalidInput, strings.Join(absent, " and "))
	}
	return nil
}
