package tenants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
)

type fakeKeyRepo struct {
	keys     map[string]*models.APIKey
	touched  []uuid.UUID
	touchErr error
}

func (f *fakeKeyRepo) FindByKeyHash(_ context.Context, keyHash string) (*models.APIKey, error) {
	return f.keys[keyHash], nil
}

func (f *fakeKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.touched = append(f.touched, id)
	return f.touchErr
}

func (f *fakeKeyRepo) Insert(context.Context, *models.APIKey) error { return nil }

func (f *fakeKeyRepo) Revoke(context.Context, uuid.UUID, time.Time) error { return nil }

func assertInvalidKey(t *testing.T, err error) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeInvalidAPIKey {
		t.Fatalf("expected invalid api key error, got %v", err)
	}
}

func TestVerify_ResolvesActiveKey(t *testing.T) {
	stored := &models.APIKey{ID: uuid.New(), TenantID: "tenant-a", Active: true}
	repo := &fakeKeyRepo{keys: map[string]*models.APIKey{HashKey("sk_live_abc"): stored}}
	v, err := NewVerifier(VerifierParams{Repo: repo})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	key, err := v.Verify(context.Background(), "sk_live_abc")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if key.TenantID != "tenant-a" {
		t.Fatalf("expected tenant-a, got %s", key.TenantID)
	}
	if len(repo.touched) != 1 || repo.touched[0] != stored.ID {
		t.Fatalf("expected last_used touch, got %v", repo.touched)
	}
}

func TestVerify_RejectsUnknownKey(t *testing.T) {
	repo := &fakeKeyRepo{keys: map[string]*models.APIKey{}}
	v, _ := NewVerifier(VerifierParams{Repo: repo})

	_, err := v.Verify(context.Background(), "sk_live_nope")
	assertInvalidKey(t, err)
	if len(repo.touched) != 0 {
		t.Fatal("unknown key must not be touched")
	}
}

func TestVerify_RejectsRevokedKey(t *testing.T) {
	now := time.Now()
	repo := &fakeKeyRepo{keys: map[string]*models.APIKey{
		HashKey("sk_live_old"): {ID: uuid.New(), TenantID: "tenant-a", Active: false, RevokedAt: &now},
	}}
	v, _ := NewVerifier(VerifierParams{Repo: repo})

	_, err := v.Verify(context.Background(), "sk_live_old")
	assertInvalidKey(t, err)
}

func TestVerify_RejectsEmptyKey(t *testing.T) {
	v, _ := NewVerifier(VerifierParams{Repo: &fakeKeyRepo{}})
	_, err := v.Verify(context.Background(), "   ")
	assertInvalidKey(t, err)
}

func TestVerify_TouchFailureDoesNotReject(t *testing.T) {
	stored := &models.APIKey{ID: uuid.New(), TenantID: "tenant-a", Active: true}
	repo := &fakeKeyRepo{
		keys:     map[string]*models.APIKey{HashKey("sk_live_abc"): stored},
		touchErr: errors.New("db down"),
	}
	v, _ := NewVerifier(VerifierParams{Repo: repo})

	key, err := v.Verify(context.Background(), "sk_live_abc")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if key == nil {
		t.Fatal("expected key despite touch failure")
	}
}
