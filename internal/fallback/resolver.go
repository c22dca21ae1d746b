package fallback

import (
	"context"

	"github.com/souvikree/notifly-backend/pkg/enums"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
)

// Resolver decides which channels a request may use and in what order.
type Resolver interface {
	ResolveOrder(ctx context.Context, tenantID, eventType string) ([]enums.Channel, error)
	ChannelEnabled(ctx context.Context, tenantID, userID string, channel enums.Channel) (bool, error)
}

type resolver struct {
	repo Repository
}

// NewResolver wires the fallback resolver.
func NewResolver(repo Repository) (Resolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fallback repository required")
	}
	return &resolver{repo: repo}, nil
}

// ResolveOrder prefers an event-specific policy, then the tenant-wide policy,
// then the platform default order.
func (r *resolver) ResolveOrder(ctx context.Context, tenantID, eventType string) ([]enums.Channel, error) {
	if eventType != "" {
		policy, err := r.repo.FindPolicy(ctx, tenantID, eventType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load channel policy")
		}
		if policy != nil && len(policy.FallbackOrder) > 0 {
			return []enums.Channel(policy.FallbackOrder), nil
		}
	}

	policy, err := r.repo.FindPolicy(ctx, tenantID, "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant channel policy")
	}
	if policy != nil && len(policy.FallbackOrder) > 0 {
		return []enums.Channel(policy.FallbackOrder), nil
	}

	order := make([]enums.Channel, len(enums.DefaultFallbackOrder))
	copy(order, enums.DefaultFallbackOrder)
	return order, nil
}

// ChannelEnabled reports whether the user has opted out of the channel.
// A missing preference row means enabled. Anonymous requests carry no user id
// and therefore no preference rows, so every channel stays enabled.
func (r *resolver) ChannelEnabled(ctx context.Context, tenantID, userID string, channel enums.Channel) (bool, error) {
	if userID == "" {
		return true, nil
	}
	pref, err := r.repo.FindPreference(ctx, tenantID, userID, channel)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load channel preference")
	}
	if pref == nil {
		return true, nil
	}
	return pref.Enabled, nil
}
