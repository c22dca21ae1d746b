package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/souvikree/notifly-backend/api/middleware"
	"github.com/souvikree/notifly-backend/api/responses"
	"github.com/souvikree/notifly-backend/api/validators"
	"github.com/souvikree/notifly-backend/internal/ingest"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/pagination"
)

type submitRequest struct {
	EventType      string          `json:"eventType" validate:"required,min=1,max=128"`
	UserID         string          `json:"userId" validate:"omitempty,max=128"`
	Recipient      string          `json:"recipient" validate:"required,min=1,max=512"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"omitempty,min=1,max=256"`
}

// SubmitNotification accepts a notification for asynchronous delivery.
func SubmitNotification(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req submitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Submit(ctx, ingest.SubmitParams{
			TenantID:       middleware.TenantIDFromContext(ctx),
			IdempotencyKey: req.IdempotencyKey,
			EventType:      req.EventType,
			UserID:         req.UserID,
			Recipient:      req.Recipient,
			Payload:        req.Payload,
			CorrelationID:  middleware.CorrelationIDFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Idempotent replays answer 202 as well, echoing the original request.
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// NotificationStatus returns a request with its delivery history.
func NotificationStatus(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "requestId must be a valid uuid"))
			return
		}

		result, err := svc.Status(ctx, middleware.TenantIDFromContext(ctx), requestID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListNotifications returns the tenant's requests, newest first.
func ListNotifications(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.List(ctx, ingest.ListParams{
			TenantID:  middleware.TenantIDFromContext(ctx),
			EventType: r.URL.Query().Get("eventType"),
			Status:    r.URL.Query().Get("status"),
			Limit:     limit,
			Cursor:    r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
