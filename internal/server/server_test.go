package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
	"extendwork/recommend-service/internal/recommend"
	"extendwork/recommend-service/internal/server"
)

// fakeRunner plays back a scripted event sequence through the sink.
type fakeRunner struct {
	events []model.ProgressEvent
	result *model.Result
	err    error

	lastReq recommend.Request
}

func (f *fakeRunner) Run(ctx context.Context, req recommend.Request, sink recommend.Sink) (*model.Result, error) {
	f.lastReq = req
	for _, ev := range f.events {
		_ = sink.Emit(ev)
	}
	return f.result, f.err
}

func (f *fakeRunner) Recommend(ctx context.Context, req recommend.Request) (*model.Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func newServer(t *testing.T, runner server.Runner) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server.NewHandler(runner, zap.NewNop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func validBody() string {
	return `{"profile":{"fullName":"Ada Example","skills":["go"]},"preferences":{"targetRoles":["Go Developer"]}}`
}

// ── SSE route ──────────────────────────────────────────────────────────────

func TestRecommendations_StreamsEvents(t *testing.T) {
	runner := &fakeRunner{
		events: []model.ProgressEvent{
			{Stage: model.StageAuth, Message: "authorized", Progress: 5},
			{Stage: model.StageScoring, Message: "matches scored", Progress: 95},
			{Stage: model.StageComplete, Message: "recommendations ready", Progress: 100,
				Data: &model.Result{Cached: false}},
		},
	}
	srv := newServer(t, runner)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/recommendations", strings.NewReader(validBody()))
	req.Header.Set("x-user-id", "user-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	frames := readFrames(t, resp)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Stage != model.StageAuth || frames[0].Progress != 5 {
		t.Errorf("first frame = %+v", frames[0])
	}
	last := frames[len(frames)-1]
	if last.Stage != model.StageComplete || last.Progress != 100 {
		t.Errorf("terminal frame = %+v", last)
	}
	if last.Data == nil {
		t.Error("terminal frame must carry the result payload")
	}

	if runner.lastReq.UserID != "user-1" {
		t.Errorf("user id not forwarded, got %q", runner.lastReq.UserID)
	}
	if runner.lastReq.Profile.FullName != "Ada Example" {
		t.Errorf("profile not forwarded, got %+v", runner.lastReq.Profile)
	}
}

func TestRecommendations_ErrorEventIsStillAStream(t *testing.T) {
	runner := &fakeRunner{
		events: []model.ProgressEvent{
			{Stage: model.StageAuth, Message: "checking your plan", Progress: 0},
			{Stage: model.StageError, Message: "you are not authorized", Progress: 0,
				Error: "you are not authorized"},
		},
		err: errors.New("authorize: quota exhausted"),
	}
	srv := newServer(t, runner)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/recommendations", strings.NewReader(validBody()))
	req.Header.Set("x-user-id", "user-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	// Pipeline errors surface as an error frame, not as an HTTP status.
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	frames := readFrames(t, resp)
	if frames[len(frames)-1].Stage != model.StageError {
		t.Errorf("last frame = %+v, want stage=error", frames[len(frames)-1])
	}
}

// ── Request validation ─────────────────────────────────────────────────────

func TestRecommendations_RequiresUserHeader(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	resp, err := http.Post(srv.URL+"/api/recommendations", "application/json", strings.NewReader(validBody()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRecommendations_RejectsBadJSON(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/recommendations", strings.NewReader("{not json"))
	req.Header.Set("x-user-id", "user-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRecommendations_RejectsGet(t *testing.T) {
	srv := newServer(t, &fakeRunner{})

	resp, err := http.Get(srv.URL + "/api/recommendations")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

// ── Sync route ─────────────────────────────────────────────────────────────

func TestRecommendationsSync_ReturnsResult(t *testing.T) {
	runner := &fakeRunner{result: &model.Result{
		Recommendations: []model.ScoredListing{{CompatibilityScore: 87}},
		Cached:          true,
	}}
	srv := newServer(t, runner)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/recommendations/sync", strings.NewReader(validBody()))
	req.Header.Set("x-user-id", "user-2")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result model.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Cached || len(result.Recommendations) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestRecommendationsSync_PipelineError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("catalog search: connection refused")}
	srv := newServer(t, runner)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/recommendations/sync", strings.NewReader(validBody()))
	req.Header.Set("x-user-id", "user-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

// readFrames collects the "data:" SSE frames from a finished response body.
func readFrames(t *testing.T, resp *http.Response) []model.ProgressEvent {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var frames []model.ProgressEvent
	for _, line := range strings.Split(string(body), "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev model.ProgressEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, ev)
	}
	return frames
}
