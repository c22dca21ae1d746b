package delivery

import (
	"context"
	"time"

	"github.com/souvikree/notifly-backend/internal/delivery/providers"
	"github.com/souvikree/notifly-backend/internal/fallback"
	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/enums"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
	"github.com/souvikree/notifly-backend/pkg/metrics"
	"github.com/souvikree/notifly-backend/pkg/outbox"
)

// Publisher republishes tier messages. The ordering key keeps all messages
// for one request on the same partition so tiers never interleave.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg outbox.TierMessage, orderingKey string) error
}

// ProcessorParams wires the delivery processor dependencies.
type ProcessorParams struct {
	Repo               Repository
	Resolver           fallback.Resolver
	Providers          providers.Registry
	Publisher          Publisher
	Topology           Topology
	Metrics            *metrics.DeliveryMetrics
	Logger             *logger.Logger
	MaxAttempts        int
	ProviderTimeout    time.Duration
	StopOnFirstSuccess bool
}

// Processor executes delivery for one tier message across the fallback chain.
type Processor struct {
	repo               Repository
	resolver           fallback.Resolver
	providers          providers.Registry
	publisher          Publisher
	topology           Topology
	metrics            *metrics.DeliveryMetrics
	logg               *logger.Logger
	maxAttempts        int
	providerTimeout    time.Duration
	stopOnFirstSuccess bool
}

// NewProcessor validates and wires the processor.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery repository required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fallback resolver required")
	}
	if len(params.Providers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider registry required")
	}
	if params.Publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "publisher required")
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = 3
	}
	if params.ProviderTimeout <= 0 {
		params.ProviderTimeout = 10 * time.Second
	}
	return &Processor{
		repo:               params.Repo,
		resolver:           params.Resolver,
		providers:          params.Providers,
		publisher:          params.Publisher,
		topology:           params.Topology,
		metrics:            params.Metrics,
		logg:               params.Logger,
		maxAttempts:        params.MaxAttempts,
		providerTimeout:    params.ProviderTimeout,
		stopOnFirstSuccess: params.StopOnFirstSuccess,
	}, nil
}

// Process walks the fallback chain for one message. Returning an error nacks
// the message for broker-level redelivery; business failures are absorbed
// into the attempt log and the retry tiers instead.
func (p *Processor) Process(ctx context.Context, msg outbox.TierMessage) error {
	logCtx := p.logContext(ctx, msg)

	failed, err := p.repo.FindFailed(ctx, msg.RequestID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load failure record")
	}
	if failed != nil && failed.IsUnrecoverable {
		p.info(logCtx, "request marked unrecoverable, dropping")
		return nil
	}

	order, err := p.resolver.ResolveOrder(ctx, msg.TenantID, msg.EventType)
	if err != nil {
		return err
	}

	delivered := false
	retryNeeded := false
	lastError := ""
	var lastChannel enums.Channel

	for _, channel := range order {
		outcome, err := p.attemptChannel(ctx, logCtx, msg, channel)
		if err != nil {
			return err
		}
		switch outcome.kind {
		case outcomeDelivered:
			delivered = true
		case outcomeRetryable:
			retryNeeded = true
			lastError = outcome.detail
			lastChannel = outcome.channel
		case outcomeTerminal:
			if err := p.recordTerminal(ctx, logCtx, msg, outcome.channel, outcome.detail); err != nil {
				return err
			}
			return nil
		}
		if delivered && p.stopOnFirstSuccess {
			break
		}
	}

	if delivered || !retryNeeded {
		return nil
	}
	return p.escalate(ctx, logCtx, msg, lastChannel, lastError)
}

type outcomeKind int

const (
	outcomeSkipped outcomeKind = iota
	outcomeDelivered
	outcomeRetryable
	outcomeTerminal
)

type channelOutcome struct {
	kind    outcomeKind
	channel enums.Channel
	detail  string
}

func (p *Processor) attemptChannel(ctx context.Context, logCtx context.Context, msg outbox.TierMessage, channel enums.Channel) (channelOutcome, error) {
	enabled, err := p.resolver.ChannelEnabled(ctx, msg.TenantID, msg.UserID, channel)
	if err != nil {
		return channelOutcome{}, err
	}
	if !enabled {
		p.info(p.withChannel(logCtx, channel), "channel disabled by preference, skipping")
		return channelOutcome{kind: outcomeSkipped}, nil
	}

	alreadySent, err := p.repo.HasSentAttempt(ctx, msg.TenantID, msg.RequestID, channel)
	if err != nil {
		return channelOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sent attempts")
	}
	if alreadySent {
		return channelOutcome{kind: outcomeDelivered}, nil
	}

	provider, ok := p.providers.Get(channel)
	if !ok {
		p.info(p.withChannel(logCtx, channel), "no provider for channel, skipping")
		return channelOutcome{kind: outcomeSkipped}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	start := time.Now()
	sendErr := provider.Send(sendCtx, providers.Message{
		TenantID:      msg.TenantID,
		RequestID:     msg.RequestID,
		EventType:     msg.EventType,
		UserID:        msg.UserID,
		Recipient:     msg.Recipient,
		Payload:       msg.Payload,
		CorrelationID: msg.CorrelationID,
	})
	latency := time.Since(start)
	cancel()

	attempt := &models.DeliveryAttempt{
		TenantID:     msg.TenantID,
		RequestID:    msg.RequestID,
		Channel:      channel,
		TierAttempt:  msg.RetryCount,
		ProviderName: provider.Name(),
		LatencyMS:    latency.Milliseconds(),
	}

	switch {
	case sendErr == nil:
		attempt.Status = enums.AttemptStatusSent
	case providers.IsTerminal(sendErr) || msg.RetryCount >= p.maxAttempts:
		attempt.Status = enums.AttemptStatusFailed
		detail := sendErr.Error()
		attempt.ErrorMessage = &detail
	default:
		attempt.Status = enums.AttemptStatusRetrying
		detail := sendErr.Error()
		attempt.ErrorMessage = &detail
	}

	inserted, err := p.repo.RecordAttempt(ctx, attempt)
	if err != nil {
		return channelOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery attempt")
	}
	if inserted {
		p.metrics.ObserveAttempt(string(channel), string(attempt.Status), latency)
	}

	attemptCtx := p.withChannel(logCtx, channel)
	switch {
	case sendErr == nil:
		p.info(attemptCtx, "delivery succeeded")
		return channelOutcome{kind: outcomeDelivered}, nil
	case providers.IsTerminal(sendErr):
		p.error(attemptCtx, "terminal delivery failure", sendErr)
		return channelOutcome{kind: outcomeTerminal, channel: channel, detail: sendErr.Error()}, nil
	default:
		p.error(attemptCtx, "retryable delivery failure", sendErr)
		return channelOutcome{kind: outcomeRetryable, channel: channel, detail: sendErr.Error()}, nil
	}
}

// escalate republishes the whole message to the next retry tier, or hands it
// to the dead letter topic once the tiers are exhausted.
func (p *Processor) escalate(ctx context.Context, logCtx context.Context, msg outbox.TierMessage, lastChannel enums.Channel, lastError string) error {
	next := msg
	next.RetryCount = msg.RetryCount + 1

	topic, hasTier := p.topology.NextTopic(msg.RetryCount, p.maxAttempts)
	if err := p.publisher.Publish(ctx, topic, outbox.NewTierMessage(next), msg.RequestID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish to next tier")
	}

	escalateCtx := logCtx
	if p.logg != nil {
		escalateCtx = p.logg.WithFields(logCtx, map[string]any{
			"next_topic": topic,
			"last_error": lastError,
		})
	}
	if hasTier {
		p.info(escalateCtx, "escalated to retry tier")
		return nil
	}

	// The dead letter envelope carries no channel, so the exhaustion record is
	// written here where the last failing channel is still known. The DLQ
	// consumer's park is a merge, not a second row.
	failure := &models.FailedNotification{
		RequestID:       msg.RequestID,
		TenantID:        msg.TenantID,
		EventType:       msg.EventType,
		UserID:          msg.UserID,
		Recipient:       msg.Recipient,
		Payload:         msg.Payload,
		Channel:         lastChannel,
		ErrorCode:       string(pkgerrors.CodeRetryExhausted),
		ErrorMessage:    lastError,
		RetryCount:      next.RetryCount,
		IsUnrecoverable: false,
		CorrelationID:   msg.CorrelationID,
	}
	if err := p.repo.RecordFailure(ctx, failure); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exhausted failure")
	}

	p.metrics.IncDLQ(string(pkgerrors.CodeRetryExhausted))
	p.info(escalateCtx, "retries exhausted, sent to dead letter topic")
	return nil
}

func (p *Processor) recordTerminal(ctx context.Context, logCtx context.Context, msg outbox.TierMessage, channel enums.Channel, reason string) error {
	failure := &models.FailedNotification{
		RequestID:       msg.RequestID,
		TenantID:        msg.TenantID,
		EventType:       msg.EventType,
		UserID:          msg.UserID,
		Recipient:       msg.Recipient,
		Payload:         msg.Payload,
		Channel:         channel,
		ErrorCode:       string(pkgerrors.CodeDeliveryFailed),
		ErrorMessage:    reason,
		RetryCount:      msg.RetryCount,
		IsUnrecoverable: true,
		CorrelationID:   msg.CorrelationID,
	}
	if err := p.repo.RecordFailure(ctx, failure); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record terminal failure")
	}
	p.metrics.IncDLQ("TERMINAL")
	p.info(logCtx, "request parked as unrecoverable")
	return nil
}

func (p *Processor) logContext(ctx context.Context, msg outbox.TierMessage) context.Context {
	if p.logg == nil {
		return ctx
	}
	return p.logg.WithFields(ctx, map[string]any{
		"request_id":     msg.RequestID.String(),
		"tenant_id":      msg.TenantID,
		"event_type":     msg.EventType,
		"retry_count":    msg.RetryCount,
		"correlation_id": msg.CorrelationID,
	})
}

func (p *Processor) withChannel(ctx context.Context, channel enums.Channel) context.Context {
	if p.logg == nil {
		return ctx
	}
	return p.logg.WithChannel(ctx, string(channel))
}

func (p *Processor) info(ctx context.Context, msg string) {
	if p.logg != nil {
		p.logg.Info(ctx, msg)
	}
}

func (p *Processor) error(ctx context.Context, msg string, err error) {
	if p.logg != nil {
		p.logg.Error(ctx, msg, err)
	}
}
