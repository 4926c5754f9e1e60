package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetgate/internal/calendar"
	"github.com/teemow/meetgate/internal/events"
	"github.com/teemow/meetgate/internal/job"
	"github.com/teemow/meetgate/internal/oracle"
	"github.com/teemow/meetgate/internal/orchestrator"
	"github.com/teemow/meetgate/internal/store"
)

const (
	approvedMessage = "Can we have a meeting about Q4 strategy with the team to align on resourcing?"
	declinedMessage = "How do I reset my password?"
	testOrigin      = "http://localhost:5173"
)

func newTestServer(t *testing.T) (*HTTPServer, *ServerContext) {
	t.Helper()
	st := store.NewMemoryStore()
	reg := events.NewRegistry(nil, nil)
	cal, err := calendar.NewDryRunProvider(calendar.DefaultSettings())
	require.NoError(t, err)
	h := oracle.NewHeuristicOracle()

	orch, err := orchestrator.New(orchestrator.DefaultConfig(), orchestrator.Deps{
		Store:     st,
		Events:    reg,
		Decider:   h,
		Responder: h,
		Calendar:  cal,
	})
	require.NoError(t, err)

	sc := NewServerContext(context.Background(), orch, reg, st, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return NewHTTPServer(sc, HTTPServerConfig{CORSOrigins: []string{testOrigin}}), sc
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func startJob(t *testing.T, h http.Handler, initial string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/start", StartRequest{InitialMessage: initial})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	return resp.JobID
}

func getJob(t *testing.T, h http.Handler, id string) *job.Job {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var j job.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &j))
	return &j
}

func TestAPI_StartAndGet(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	id := startJob(t, h, "Hello there")
	j := getJob(t, h, id)
	assert.Equal(t, job.StateAwaitingInput, j.State)
	require.Len(t, j.Messages, 1)
	assert.Equal(t, "Hello there", j.Messages[0].Content)

	// An empty body is a valid start.
	rec := do(t, h, http.MethodPost, "/api/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list["jobIds"], 2)
}

func TestAPI_MessageErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := startJob(t, h, "")

	tests := []struct {
		name   string
		body   any
		status int
		want   string
	}{
		{"missing both", MessageRequest{}, http.StatusBadRequest, "jobId and content required"},
		{"missing content", MessageRequest{JobID: id}, http.StatusBadRequest, "content required"},
		{"invalid json", "{", http.StatusBadRequest, "invalid JSON body"},
		{"empty body", nil, http.StatusBadRequest, "request body is required"},
		{"unknown job", MessageRequest{JobID: "nope", Content: "hi"}, http.StatusNotFound, "job not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/message", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestAPI_DeclinedMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := startJob(t, h, "")

	rec := do(t, h, http.MethodPost, "/api/message", MessageRequest{JobID: id, Content: declinedMessage})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	j := getJob(t, h, id)
	assert.Equal(t, job.StateAwaitingInput, j.State)
	require.NotNil(t, j.LastDecision)
	assert.Equal(t, job.Decline, j.LastDecision.Decision)
	assert.Nil(t, j.FormSchema)

	// Details are not accepted for a declined request.
	rec = do(t, h, http.MethodPost, "/api/complete", CompleteRequest{
		JobID: id,
		Form:  map[string]any{"topic": "reset", "attendees": "a@x.com", "desiredTimeframe": "today"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_FormSubmitBooksMeeting(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := startJob(t, h, "")

	rec := do(t, h, http.MethodPost, "/api/message", MessageRequest{JobID: id, Content: approvedMessage})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	j := getJob(t, h, id)
	require.Equal(t, job.StateApprovedNeedsDetails, j.State)
	require.NotNil(t, j.FormSchema)

	rec = do(t, h, http.MethodPost, "/api/form/submit", FormSubmitRequest{JobID: id, FormID: "other", Values: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/form/submit", FormSubmitRequest{JobID: id, FormID: j.FormSchema.ID, Values: map[string]any{"topic": "Q4"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "attendees")

	rec = do(t, h, http.MethodPost, "/api/form/submit", FormSubmitRequest{
		JobID:  id,
		FormID: j.FormSchema.ID,
		Values: map[string]any{
			"topic":            "Q4 strategy",
			"attendees":        "a@x.com, b@x.com",
			"desiredTimeframe": "next week",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Event)
	assert.True(t, strings.HasPrefix(resp.Event.EventID, "dryrun-"))

	j = getJob(t, h, id)
	assert.Equal(t, job.StateNotified, j.State)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, j.Form.Attendees)

	// The job is finished.
	rec = do(t, h, http.MethodPost, "/api/message", MessageRequest{JobID: id, Content: "one more thing"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CompleteValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/complete", CompleteRequest{JobID: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/complete", CompleteRequest{Form: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/form/submit", FormSubmitRequest{JobID: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type sseFrame struct {
	Event string
	Data  string
}

func readFrame(t *testing.T, r *bufio.Reader) sseFrame {
	t.Helper()
	var f sseFrame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if f.Event != "" {
				return f
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			f.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestAPI_EventStream(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/start", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	var started StartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events?jobId="+started.JobID, nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	r := bufio.NewReader(stream.Body)
	assert.Equal(t, sseFrame{Event: "log", Data: `{"msg":"ready"}`}, readFrame(t, r))
	assert.Equal(t, sseFrame{Event: "state", Data: `{"state":"awaiting_input"}`}, readFrame(t, r))

	body := fmt.Sprintf(`{"jobId":%q,"content":%q}`, started.JobID, declinedMessage)
	resp, err = http.Post(ts.URL+"/api/message", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	var decision job.Decision
	for range 8 {
		f := readFrame(t, r)
		names = append(names, f.Event)
		if f.Event == string(events.TypeDecision) {
			require.NoError(t, json.Unmarshal([]byte(f.Data), &decision))
		}
	}
	assert.Equal(t, []string{"state", "chat", "tool", "tool", "decision", "agent", "chat", "state"}, names)
	assert.Equal(t, job.Decline, decision.Decision)
	assert.NotNil(t, decision.Missing)
}

func TestAPI_EventStreamErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/events/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CORS(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/start", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/start", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_Health(t *testing.T) {
	srv, sc := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", nil).Code)

	rec := do(t, h, http.MethodGet, "/healthz/detailed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detailed DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	assert.Equal(t, 0, detailed.Subscribers)
	assert.Equal(t, 0, detailed.Jobs)
	assert.Equal(t, healthStatusOK, detailed.Checks["store"])

	startJob(t, h, "Hello there")
	rec = do(t, h, http.MethodGet, "/healthz/detailed", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailed))
	assert.Equal(t, 1, detailed.Jobs)

	srv.Health().SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", nil).Code)
	srv.Health().SetReady(true)

	require.NoError(t, sc.Shutdown())
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
}

type failingStore struct{ store.Store }

func (failingStore) List(context.Context) ([]string, error) {
	return nil, errors.New("disk gone")
}

func TestHealth_StoreFailure(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, events.NewRegistry(nil, nil), failingStore{store.NewMemoryStore()}, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusNotReady, resp.Status)
	assert.Equal(t, healthStatusFailing, resp.Checks["store"])

	rec = httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", job.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", job.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: x", job.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: x", job.ErrProvider), http.StatusBadGateway},
		{job.ErrOracleUnavailable, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRequestMetricsPassThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	assert.NotNil(t, requestMetrics(next, nil))

	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	next.ServeHTTP(sr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, sr.status)
	sr.Flush()
	assert.True(t, rec.Flushed)
}
