package tenants

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	pkgerrors "github.com/souvikree/notifly-backend/pkg/errors"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

const invalidKeyMessage = "invalid api key"

// Verifier resolves a raw API key to its tenant.
type Verifier interface {
	Verify(ctx context.Context, rawKey string) (*models.APIKey, error)
}

type verifier struct {
	repo Repository
	logg *logger.Logger
}

// VerifierParams bundles the dependencies required to build a Verifier.
type VerifierParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewVerifier constructs an API key verifier.
func NewVerifier(params VerifierParams) (Verifier, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "api key repository is required")
	}
	return &verifier{repo: params.Repo, logg: params.Logger}, nil
}

// HashKey returns the hex-encoded SHA-256 digest stored for a raw key.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func (v *verifier) Verify(ctx context.Context, rawKey string) (*models.APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAPIKey, invalidKeyMessage)
	}

	key, err := v.repo.FindByKeyHash(ctx, HashKey(rawKey))
	if err != nil {
		return nil, err
	}
	if key == nil || !key.Active || key.RevokedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAPIKey, invalidKeyMessage)
	}

	// Best effort; a failed touch must not reject the request.
	if err := v.repo.TouchLastUsed(ctx, key.ID, time.Now().UTC()); err != nil && v.logg != nil {
		v.logg.Warn(v.logg.WithFields(ctx, map[string]any{
			"tenant_id": key.TenantID,
			"error":     err.Error(),
		}), "api key last_used update failed")
	}
	return key, nil
}
