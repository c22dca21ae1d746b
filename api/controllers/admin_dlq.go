package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/souvikree/notifly-backend/api/middleware"
	"github.com/souvikree/notifly-backend/api/responses"
	"github.com/souvikree/notifly-backend/api/validators"
	"github.com/souvikree/notifly-backend/internal/dlq"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

type dlqListResponse struct {
	Items  []models.FailedNotification `json:"items"`
	Cursor string                      `json:"cursor,omitempty"`
}

// AdminDLQList returns parked notifications, newest first.
func AdminDLQList(svc *dlq.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var cursor *pagination.Cursor
		if raw := r.URL.Query().Get("cursor"); raw != "" {
			cursor, err = pagination.ParseCursor(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
				return
			}
		}

		params := dlq.ListParams{
			TenantID:       r.URL.Query().Get("tenantId"),
			Channel:        enums.Channel(r.URL.Query().Get("channel")),
			ErrorCode:      r.URL.Query().Get("errorCode"),
			Search:         r.URL.Query().Get("search"),
			IncludeRetried: r.URL.Query().Get("includeRetried") == "true",
			Limit:          limit,
			Cursor:         cursor,
		}
		if raw := r.URL.Query().Get("unrecoverable"); raw != "" {
			flag := raw == "true"
			params.Unrecoverable = &flag
		}

		items, next, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := dlqListResponse{Items: items}
		if next != nil {
			resp.Cursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// AdminDLQRetry replays one parked notification through the main topic.
func AdminDLQRetry(svc *dlq.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "requestId must be a valid uuid"))
			return
		}

		if err := svc.RetryOne(ctx, middleware.ActorFromContext(ctx), requestID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"requestId": requestID.String(),
			"status":    "RETRY_ENQUEUED",
		})
	}
}

type dlqRetryBatchRequest struct {
	TenantID  string `json:"tenantId" validate:"omitempty,max=128"`
	Channel   string `json:"channel" validate:"omitempty,oneof=EMAIL SMS PUSH WEBHOOK"`
	ErrorCode string `json:"errorCode" validate:"omitempty,max=128"`
	Search    string `json:"search" validate:"omitempty,max=256"`
}

type dlqRetryBatchResponse struct {
	Attempted int      `json:"attempted"`
	Enqueued  int      `json:"enqueued"`
	Errors    []string `json:"errors,omitempty"`
}

// AdminDLQRetryBatch replays every recoverable parked notification matching
// the filter, reporting per-request failures without aborting the batch.
func AdminDLQRetryBatch(svc *dlq.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req dlqRetryBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		attempted, enqueued, err := svc.RetryBatch(ctx, middleware.ActorFromContext(ctx), dlq.ListParams{
			TenantID:  req.TenantID,
			Channel:   enums.Channel(req.Channel),
			ErrorCode: req.ErrorCode,
			Search:    req.Search,
		})
		resp := dlqRetryBatchResponse{
			Attempted: attempted,
			Enqueued:  enqueued,
		}
		if err != nil {
			resp.Errors = append(resp.Errors, batchErrorMessages(err)...)
		}
		responses.WriteSuccessStatus(w, http.StatusMultiStatus, resp)
	}
}

func batchErrorMessages(err error) []string {
	errs := multierr.Errors(err)
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	return messages
}

// AdminDLQMarkUnrecoverable permanently parks a request.
func AdminDLQMarkUnrecoverable(svc *dlq.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "requestId must be a valid uuid"))
			return
		}

		if err := svc.MarkUnrecoverable(ctx, middleware.ActorFromContext(ctx), requestID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"requestId": requestID.String(),
			"status":    "UNRECOVERABLE",
		})
	}
}
