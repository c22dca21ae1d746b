package providers

import (
	"context"
	"strings"
	"unicode"

	"github.com/souvikree/notifly-backend/pkg/logger"
)

// The email, SMS and push providers validate the recipient and log the
// dispatch. Wiring a real upstream (SendGrid, Twilio, FCM) replaces the
// logDispatch call without touching the pipeline.

type EmailProvider struct {
	logg *logger.Logger
}

func NewEmailProvider(logg *logger.Logger) *EmailProvider {
	return &EmailProvider{logg: logg}
}

func (p *EmailProvider) Name() string {
	return "email"
}

func (p *EmailProvider) Send(ctx context.Context, msg Message) error {
	addr := strings.TrimSpace(msg.Recipient)
	at := strings.Index(addr, "@")
	if at <= 0 || at == len(addr)-1 || strings.ContainsAny(addr, " \t") {
		return Terminal("invalid email recipient", nil)
	}
	logDispatch(ctx, p.logg, "EMAIL", msg)
	return nil
}

type SMSProvider struct {
	logg *logger.Logger
}

func NewSMSProvider(logg *logger.Logger) *SMSProvider {
	return &SMSProvider{logg: logg}
}

func (p *SMSProvider) Name() string {
	return "sms"
}

func (p *SMSProvider) Send(ctx context.Context, msg Message) error {
	number := strings.TrimSpace(msg.Recipient)
	number = strings.TrimPrefix(number, "+")
	if number == "" || len(number) < 7 {
		return Terminal("invalid sms recipient", nil)
	}
	for _, r := range number {
		if !unicode.IsDigit(r) {
			return Terminal("invalid sms recipient", nil)
		}
	}
	logDispatch(ctx, p.logg, "SMS", msg)
	return nil
}

type PushProvider struct {
	logg *logger.Logger
}

func NewPushProvider(logg *logger.Logger) *PushProvider {
	return &PushProvider{logg: logg}
}

func (p *PushProvider) Name() string {
	return "push"
}

func (p *PushProvider) Send(ctx context.Context, msg Message) error {
	token := strings.TrimSpace(msg.Recipient)
	if len(token) < 8 {
		return Terminal("invalid device token", nil)
	}
	logDispatch(ctx, p.logg, "PUSH", msg)
	return nil
}

func logDispatch(ctx context.Context, logg *logger.Logger, channel string, msg Message) {
	if logg == nil {
		return
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"channel":    channel,
		"request_id": msg.RequestID.String(),
		"tenant_id":  msg.TenantID,
		"event_type": msg.EventType,
	})
	logg.Info(logCtx, "notification dispatched")
}
