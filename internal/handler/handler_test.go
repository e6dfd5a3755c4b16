package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/model"
	"github.com/pixelrelay/vote-system/internal/repository"
	"github.com/pixelrelay/vote-system/internal/service"
)

type fakeEngine struct {
	submitErr error
	retryErr  error
	resetErr  error
	lastID    string
}

func (f *fakeEngine) Status(_ context.Context, id string) model.VoteStatus {
	f.lastID = id
	return model.VoteStatus{ContestantID: id, HasVoted: true, VotedForThis: id == "c1", VotedContestantID: "c1"}
}

func (f *fakeEngine) SubmitVote(_ context.Context, id string) (*model.VoteRecord, error) {
	f.lastID = id
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return model.NewVoteRecord(id, time.UnixMilli(1700000000000)), nil
}

func (f *fakeEngine) Retry(_ context.Context, id string) (*model.VoteRecord, error) {
	f.lastID = id
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	return model.NewVoteRecord(id, time.UnixMilli(1700000000000)), nil
}

func (f *fakeEngine) ResetVote(context.Context) error { return f.resetErr }

type fakeSnapshots struct {
	state   model.RefreshState
	refetch bool
}

func (f *fakeSnapshots) State() model.RefreshState { return f.state }
func (f *fakeSnapshots) Refetch() bool             { return f.refetch }

func newVoteApp(engine VoteEngine) *fiber.App {
	h := NewVoteHandler(engine, zerolog.Nop())
	app := fiber.New()
	app.Get("/api/contestants/:contestantId/vote", h.Status)
	app.Post("/api/contestants/:contestantId/vote", h.Submit)
	app.Post("/api/contestants/:contestantId/vote/retry", h.Retry)
	app.Delete("/api/vote", h.Reset)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestVoteHandler_SubmitSuccess(t *testing.T) {
	engine := &fakeEngine{}
	status, body := doRequest(t, newVoteApp(engine), http.MethodPost, "/api/contestants/c2/vote")

	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	rec, _ := body["record"].(map[string]any)
	if rec["contestantId"] != "c2" || rec["hasVoted"] != true {
		t.Errorf("record = %v", rec)
	}
}

func TestVoteHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already voted", service.ErrAlreadyVoted, fiber.StatusConflict, service.CodeAlreadyVoted},
		{"window closed", service.ErrWindowClosed, fiber.StatusForbidden, service.CodeWindowClosed},
		{"in progress", service.ErrSubmitInProgress, fiber.StatusTooManyRequests, service.CodeSubmitInProgress},
		{"network", fmt.Errorf("%w: timeout", service.ErrNetwork), fiber.StatusServiceUnavailable, service.CodeNetworkError},
		{"storage", fmt.Errorf("write: %w", repository.ErrStorage), fiber.StatusInternalServerError, service.CodeStorageError},
		{"unknown contestant", service.ErrUnknownContestant, fiber.StatusNotFound, service.CodeUnknownContestant},
		{"unexpected", service.ErrUnexpected, fiber.StatusInternalServerError, service.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newVoteApp(&fakeEngine{submitErr: tt.err})
			status, body := doRequest(t, app, http.MethodPost, "/api/contestants/c1/vote")
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if got := errorCode(body); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestVoteHandler_RejectsInvalidContestantID(t *testing.T) {
	engine := &fakeEngine{}
	status, body := doRequest(t, newVoteApp(engine), http.MethodPost, "/api/contestants/bad%20id!/vote")

	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if errorCode(body) != "INVALID_FIELD" {
		t.Errorf("code = %q, want INVALID_FIELD", errorCode(body))
	}
	if engine.lastID != "" {
		t.Errorf("engine called with %q", engine.lastID)
	}
}

func TestVoteHandler_Status(t *testing.T) {
	engine := &fakeEngine{}
	status, body := doRequest(t, newVoteApp(engine), http.MethodGet, "/api/contestants/c2/vote")

	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["hasVoted"] != true || body["votedForThis"] != false || body["votedContestantId"] != "c1" {
		t.Errorf("body = %v", body)
	}
}

func TestVoteHandler_Retry(t *testing.T) {
	app := newVoteApp(&fakeEngine{retryErr: service.ErrNothingToRetry})
	status, body := doRequest(t, app, http.MethodPost, "/api/contestants/c1/vote/retry")
	if status != fiber.StatusConflict || errorCode(body) != service.CodeNothingToRetry {
		t.Errorf("status = %d code = %q", status, errorCode(body))
	}

	app = newVoteApp(&fakeEngine{})
	status, body = doRequest(t, app, http.MethodPost, "/api/contestants/c1/vote/retry")
	if status != fiber.StatusOK || body["success"] != true {
		t.Errorf("status = %d body = %v", status, body)
	}
}

func TestVoteHandler_Reset(t *testing.T) {
	app := newVoteApp(&fakeEngine{resetErr: service.ErrResetDisabled})
	status, body := doRequest(t, app, http.MethodDelete, "/api/vote")
	if status != fiber.StatusForbidden || errorCode(body) != service.CodeResetDisabled {
		t.Errorf("status = %d code = %q", status, errorCode(body))
	}
}

func TestSnapshotHandler(t *testing.T) {
	src := &fakeSnapshots{
		state: model.RefreshState{
			Snapshot: &model.Snapshot{
				Contestants:  []model.Contestant{{ID: "c1", Name: "One", VoteCount: 7, IsActive: true}},
				VotingWindow: model.VotingWindow{IsOpen: true},
			},
			Live: true,
		},
		refetch: true,
	}
	h := NewSnapshotHandler(src)
	app := fiber.New()
	app.Get("/api/snapshot", h.Get)
	app.Post("/api/snapshot/refetch", h.Refetch)

	status, body := doRequest(t, app, http.MethodGet, "/api/snapshot")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	snap, _ := body["snapshot"].(map[string]any)
	contestants, _ := snap["contestants"].([]any)
	if len(contestants) != 1 || body["loading"] != false {
		t.Errorf("body = %v", body)
	}

	status, body = doRequest(t, app, http.MethodPost, "/api/snapshot/refetch")
	if status != fiber.StatusAccepted || body["started"] != true {
		t.Errorf("refetch status = %d body = %v", status, body)
	}

	src.refetch = false
	_, body = doRequest(t, app, http.MethodPost, "/api/snapshot/refetch")
	if body["started"] != false {
		t.Errorf("busy refetch body = %v", body)
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	store := repository.NewMemoryStore()
	h := NewHealthHandler(store, repository.DriverMemory, nil, nil)
	app := fiber.New()
	app.Get("/health/ready", h.Ready)

	status, body := doRequest(t, app, http.MethodGet, "/health/ready")
	if status != fiber.StatusOK || body["status"] != "healthy" {
		t.Fatalf("status = %d body = %v", status, body)
	}
	checks, _ := body["checks"].(map[string]any)
	redisCheck, _ := checks["redis"].(map[string]any)
	if redisCheck["status"] != "disabled" {
		t.Errorf("redis check = %v, want disabled", redisCheck)
	}

	store.FailReads(true)
	status, body = doRequest(t, app, http.MethodGet, "/health/ready")
	if status != fiber.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("status = %d body = %v", status, body)
	}
}

func TestStatusFor_WrappedErrors(t *testing.T) {
	err := fmt.Errorf("submit c1: %w", fmt.Errorf("%w: dial", service.ErrNetwork))
	if got := StatusFor(err); got != fiber.StatusServiceUnavailable {
		t.Errorf("StatusFor = %d, want 503", got)
	}
}
