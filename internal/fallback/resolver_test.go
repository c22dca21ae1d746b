package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	dbtypes "github.com/souvikree/notifly-backend/pkg/db/types"
	"github.com/souvikree/notifly-backend/pkg/enums"
)

type fakeRepository struct {
	policies map[string]*models.ChannelPolicy
	prefs    map[string]*models.ChannelPreference
	err      error
}

func (f *fakeRepository) FindPolicy(_ context.Context, tenantID, eventType string) (*models.ChannelPolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies[tenantID+"|"+eventType], nil
}

func (f *fakeRepository) FindPreference(_ context.Context, tenantID, userID string, channel enums.Channel) (*models.ChannelPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs[tenantID+"|"+userID+"|"+string(channel)], nil
}

func TestResolveOrder_DefaultWhenNoPolicy(t *testing.T) {
	resolver, err := NewResolver(&fakeRepository{})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	order, err := resolver.ResolveOrder(context.Background(), "tenant-a", "order.shipped")
	if err != nil {
		t.Fatalf("ResolveOrder: %v", err)
	}
	if len(order) != len(enums.DefaultFallbackOrder) {
		t.Fatalf("expected default order, got %v", order)
	}
	if order[0] != enums.ChannelEmail {
		t.Fatalf("expected EMAIL first, got %s", order[0])
	}
}

func TestResolveOrder_EventPolicyWinsOverTenantPolicy(t *testing.T) {
	repo := &fakeRepository{
		policies: map[string]*models.ChannelPolicy{
			"tenant-a|": {
				FallbackOrder: dbtypes.ChannelArray{enums.ChannelSMS, enums.ChannelEmail},
			},
			"tenant-a|order.shipped": {
				FallbackOrder: dbtypes.ChannelArray{enums.ChannelPush},
			},
		},
	}
	resolver, _ := NewResolver(repo)

	order, err := resolver.ResolveOrder(context.Background(), "tenant-a", "order.shipped")
	if err != nil {
		t.Fatalf("ResolveOrder: %v", err)
	}
	if len(order) != 1 || order[0] != enums.ChannelPush {
		t.Fatalf("expected event policy [PUSH], got %v", order)
	}

	order, err = resolver.ResolveOrder(context.Background(), "tenant-a", "invoice.created")
	if err != nil {
		t.Fatalf("ResolveOrder tenant-wide: %v", err)
	}
	if len(order) != 2 || order[0] != enums.ChannelSMS {
		t.Fatalf("expected tenant policy [SMS EMAIL], got %v", order)
	}
}

func TestChannelEnabled(t *testing.T) {
	repo := &fakeRepository{
		prefs: map[string]*models.ChannelPreference{
			"tenant-a|user-1|SMS": {Enabled: false},
		},
	}
	resolver, _ := NewResolver(repo)

	enabled, err := resolver.ChannelEnabled(context.Background(), "tenant-a", "user-1", enums.ChannelSMS)
	if err != nil {
		t.Fatalf("ChannelEnabled: %v", err)
	}
	if enabled {
		t.Fatal("expected SMS to be disabled by preference")
	}

	enabled, err = resolver.ChannelEnabled(context.Background(), "tenant-a", "user-1", enums.ChannelEmail)
	if err != nil {
		t.Fatalf("ChannelEnabled: %v", err)
	}
	if !enabled {
		t.Fatal("missing preference row should mean enabled")
	}
}

func TestChannelEnabled_AnonymousUser(t *testing.T) {
	// A broken repository proves the lookup is skipped entirely.
	resolver, _ := NewResolver(&fakeRepository{err: errors.New("boom")})

	enabled, err := resolver.ChannelEnabled(context.Background(), "tenant-a", "", enums.ChannelSMS)
	if err != nil {
		t.Fatalf("ChannelEnabled: %v", err)
	}
	if !enabled {
		t.Fatal("requests without a user id have no preferences to honor")
	}
}

func TestResolverDependencyErrors(t *testing.T) {
	resolver, _ := NewResolver(&fakeRepository{err: errors.New("boom")})

	if _, err := resolver.ResolveOrder(context.Background(), "tenant-a", "x"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := resolver.ChannelEnabled(context.Background(), "tenant-a", "user-1", enums.ChannelEmail); err == nil {
		t.Fatal("expected error")
	}
}
