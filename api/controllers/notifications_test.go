package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/souvikree/notifly-backend/internal/ingest"
	"github.com/souvikree/notifly-backend/pkg/enums"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

type fakeIngestService struct {
	result     *ingest.SubmitResult
	err        error
	lastParams ingest.SubmitParams
	calls      int
}

func (f *fakeIngestService) Submit(_ context.Context, params ingest.SubmitParams) (*ingest.SubmitResult, error) {
	f.calls++
	f.lastParams = params
	return f.result, f.err
}

func (f *fakeIngestService) Status(context.Context, string, uuid.UUID) (*ingest.StatusResult, error) {
	return nil, nil
}

func (f *fakeIngestService) List(context.Context, ingest.ListParams) (*ingest.ListResult, error) {
	return nil, nil
}

func postNotification(t *testing.T, svc ingest.Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	SubmitNotification(svc, logg)(rec, req)
	return rec
}

func TestSubmitNotification_AnswersAccepted(t *testing.T) {
	svc := &fakeIngestService{result: &ingest.SubmitResult{
		RequestID: uuid.New(),
		Status:    enums.RequestStatusAccepted,
	}}

	rec := postNotification(t, svc, `{"eventType":"order.shipped","recipient":"user@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestSubmitNotification_ReplayAnswersAccepted(t *testing.T) {
	svc := &fakeIngestService{result: &ingest.SubmitResult{
		RequestID: uuid.New(),
		Status:    enums.RequestStatusAccepted,
		Replayed:  true,
	}}

	rec := postNotification(t, svc, `{"eventType":"order.shipped","recipient":"user@example.com","idempotencyKey":"key-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("replay must answer 202 as well, got %d", rec.Code)
	}
}

func TestSubmitNotification_UserIDIsOptional(t *testing.T) {
	svc := &fakeIngestService{result: &ingest.SubmitResult{
		RequestID: uuid.New(),
		Status:    enums.RequestStatusAccepted,
	}}

	rec := postNotification(t, svc, `{"eventType":"order.shipped","recipient":"user@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 without userId, got %d", rec.Code)
	}
	if svc.calls != 1 {
		t.Fatal("expected the service to be called")
	}
	if svc.lastParams.UserID != "" {
		t.Fatalf("expected empty user id, got %q", svc.lastParams.UserID)
	}
}
