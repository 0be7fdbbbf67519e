// Package apikeys manages partner credentials: issuing, validating,
// regenerating and revoking keys, with per-day usage limits. Lookups go
// through the Redis cache when available to keep the hot path off MySQL.
package apikeys

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/apex/log"

	"crop-analyze-pipeline/cache"
	"crop-analyze-pipeline/database"
	"crop-analyze-pipeline/metrics"
)

var (
	ErrInvalidKey    = errors.New("unknown api key")
	ErrKeyInactive   = errors.New("api key is inactive")
	ErrLimitExceeded = errors.New("daily request limit exceeded")
	ErrPartnerExists = errors.New("partner already has a key")
)

const keyPrefix = "ca_"

// Manager issues and validates partner API keys.
type Manager struct {
	db    *database.Database
	cache *cache.Cache
}

func NewManager(db *database.Database, c *cache.Cache) *Manager {
	return &Manager{db: db, cache: c}
}

// generateKey returns a fresh 256-bit key with a recognizable prefix.
func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

// Issue creates a key for a partner. One key per partner.
func (m *Manager) Issue(ctx context.Context, partner string, dailyLimit int) (*database.APIKey, error) {
	if existing, err := m.db.GetAPIKeyByPartner(ctx, partner); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrPartnerExists
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	if dailyLimit <= 0 {
		dailyLimit = 1000
	}
	if err := m.db.CreateAPIKey(ctx, key, partner, dailyLimit); err != nil {
		return nil, err
	}
	m.refreshActiveGauge(ctx)
	return m.db.GetAPIKey(ctx, key)
}

// Validate resolves a key to its partner record, enforcing the active flag
// and the daily limit. Usage is recorded for the given endpoint on success.
func (m *Manager) Validate(ctx context.Context, key, endpoint string) (*database.APIKey, error) {
	record, err := m.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidKey
	}
	if !record.IsActive {
		return nil, ErrKeyInactive
	}

	used, err := m.db.UsageToday(ctx, record.Partner)
	if err != nil {
		// Usage accounting must not block analysis; log and allow.
		log.WithError(err).WithField("partner", record.Partner).Warn("usage lookup failed")
	} else if record.DailyLimit > 0 && used >= record.DailyLimit {
		return nil, ErrLimitExceeded
	}

	if err := m.db.RecordUsage(ctx, record.Partner, endpoint); err != nil {
		log.WithError(err).WithField("partner", record.Partner).Warn("usage record failed")
	}
	metrics.APIKeyUsageTotal.WithLabelValues(record.Partner, endpoint).Inc()
	return record, nil
}

func (m *Manager) resolve(ctx context.Context, key string) (*database.APIKey, error) {
	var cached database.APIKey
	if m.cache.GetAPIKey(ctx, key, &cached) {
		return &cached, nil
	}

	record, err := m.db.GetAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil {
		m.cache.SetAPIKey(ctx, key, record)
	}
	return record, nil
}

// List returns every partner key.
func (m *Manager) List(ctx context.Context) ([]database.APIKey, error) {
	return m.db.ListAPIKeys(ctx)
}

// Update changes a partner's active flag or daily limit.
func (m *Manager) Update(ctx context.Context, partner string, isActive *bool, dailyLimit *int) (*database.APIKey, error) {
	existing, err := m.db.GetAPIKeyByPartner(ctx, partner)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrInvalidKey
	}
	if err := m.db.UpdateAPIKey(ctx, partner, isActive, dailyLimit); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	m.cache.InvalidateAPIKey(ctx, existing.Key)
	m.refreshActiveGauge(ctx)
	return m.db.GetAPIKeyByPartner(ctx, partner)
}

// Regenerate replaces a partner's key value; the old key stops working.
func (m *Manager) Regenerate(ctx context.Context, partner string) (*database.APIKey, error) {
	existing, err := m.db.GetAPIKeyByPartner(ctx, partner)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrInvalidKey
	}

	newKey, err := generateKey()
	if err != nil {
		return nil, err
	}
	if err := m.db.ReplaceAPIKey(ctx, partner, newKey); err != nil {
		return nil, err
	}
	m.cache.InvalidateAPIKey(ctx, existing.Key)
	return m.db.GetAPIKey(ctx, newKey)
}

// Delete removes a partner's key entirely.
func (m *Manager) Delete(ctx context.Context, partner string) error {
	existing, err := m.db.GetAPIKeyByPartner(ctx, partner)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrInvalidKey
	}
	if err := m.db.DeleteAPIKey(ctx, partner); err != nil {
		return err
	}
	m.cache.InvalidateAPIKey(ctx, existing.Key)
	m.refreshActiveGauge(ctx)
	return nil
}

func (m *Manager) refreshActiveGauge(ctx context.Context) {
	n, err := m.db.CountActiveKeys(ctx)
	if err != nil {
		log.WithError(err).Warn("active key count failed")
		return
	}
	metrics.ActiveAPIKeys.Set(float64(n))
}
