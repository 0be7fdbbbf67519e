package soilmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/apex/log"

	"crop-analyze-pipeline/models"
)

const (
	// CacheGridSize is the grid size in meters for coordinate rounding.
	// Soil maps have coarse native resolution, so 250m is safe.
	CacheGridSize = 250.0
	// CacheTTL is how long cached soil-map results stay valid.
	CacheTTL = 90 * 24 * time.Hour
)

// CachedService wraps the SoilGrids client with database caching. Negative
// results (no coverage) are cached too, so dead coordinates do not hit the
// upstream API on every request.
type CachedService struct {
	client *Client
	db     *sql.DB
}

func NewCachedService(client *Client, db *sql.DB) *CachedService {
	return &CachedService{client: client, db: db}
}

// CreateCacheTable creates the soil map cache table if it doesn't exist.
func (s *CachedService) CreateCacheTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS soil_map_cache (
			id INT AUTO_INCREMENT PRIMARY KEY,
			lat_grid DOUBLE NOT NULL,
			lon_grid DOUBLE NOT NULL,
			has_coverage TINYINT(1) NOT NULL DEFAULT 1,
			soil_analysis JSON,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			UNIQUE KEY idx_lat_lon (lat_grid, lon_grid),
			INDEX idx_expires (expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create soil_map_cache table: %w", err)
	}
	log.Info("soil_map_cache table verified/created")
	return nil
}

// roundToGrid rounds a coordinate to the cache grid size so nearby
// coordinates share a cache entry.
func roundToGrid(coord float64) float64 {
	metersPerDegree := 111320.0
	gridDegrees := CacheGridSize / metersPerDegree
	return math.Round(coord/gridDegrees) * gridDegrees
}

// Lookup returns the soil assessment for a coordinate, using the cache when
// possible. A nil result with a nil error means no coverage.
func (s *CachedService) Lookup(ctx context.Context, lat, lon float64) (*models.SoilAnalysisResult, error) {
	latGrid := roundToGrid(lat)
	lonGrid := roundToGrid(lon)

	cached, hit, err := s.getFromCache(ctx, latGrid, lonGrid)
	if err == nil && hit {
		log.WithFields(log.Fields{"lat": lat, "lon": lon}).Debug("soil map cache hit")
		return cached, nil
	}
	if err != nil {
		log.WithError(err).Warn("soil map cache read failed, querying upstream")
	}

	result, err := s.client.Query(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	if err := s.saveToCache(ctx, latGrid, lonGrid, result); err != nil {
		// Cache write failure never fails the lookup.
		log.WithError(err).Warn("failed to cache soil map result")
	}
	return result, nil
}

// getFromCache returns (result, hit, err). A hit with a nil result is a
// cached no-coverage entry.
func (s *CachedService) getFromCache(ctx context.Context, latGrid, lonGrid float64) (*models.SoilAnalysisResult, bool, error) {
	var hasCoverage bool
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT has_coverage, soil_analysis
		FROM soil_map_cache
		WHERE lat_grid = ? AND lon_grid = ? AND expires_at > NOW()
	`, latGrid, lonGrid).Scan(&hasCoverage, &payload)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query soil map cache: %w", err)
	}
	if !hasCoverage {
		return nil, true, nil
	}

	var result models.SoilAnalysisResult
	if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached soil analysis: %w", err)
	}
	return &result, true, nil
}

func (s *CachedService) saveToCache(ctx context.Context, latGrid, lonGrid float64, result *models.SoilAnalysisResult) error {
	var payload interface{}
	hasCoverage := result != nil
	if hasCoverage {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal soil analysis: %w", err)
		}
		payload = string(b)
	}

	expiresAt := time.Now().Add(CacheTTL)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO soil_map_cache (lat_grid, lon_grid, has_coverage, soil_analysis, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			has_coverage = VALUES(has_coverage),
			soil_analysis = VALUES(soil_analysis),
			expires_at = VALUES(expires_at),
			created_at = NOW()
	`, latGrid, lonGrid, hasCoverage, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save soil map cache entry: %w", err)
	}
	return nil
}

// CleanExpiredCache removes expired cache entries.
func (s *CachedService) CleanExpiredCache(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM soil_map_cache WHERE expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired soil map cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
