package database

import (
	"fmt"

	"github.com/apex/log"
)

// CreateTables creates every table this service owns if it doesn't exist.
func (d *Database) CreateTables() error {
	for name, query := range map[string]string{
		"crop_analyses":     createCropAnalyses,
		"soil_analyses":     createSoilAnalyses,
		"yield_predictions": createYieldPredictions,
		"api_keys":          createAPIKeys,
		"api_key_usage":     createAPIKeyUsage,
	} {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", name, err)
		}
		log.Infof("%s table verified/created", name)
	}
	return nil
}

const createCropAnalyses = `
	CREATE TABLE IF NOT EXISTS crop_analyses (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		partner VARCHAR(255) NOT NULL,
		plant_status VARCHAR(32) NOT NULL,
		model VARCHAR(128),
		analysis JSON NOT NULL,
		raw_response MEDIUMTEXT,
		previous_analysis_id VARCHAR(36),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_partner_created (partner, created_at),
		INDEX idx_plant_status (plant_status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`

const createSoilAnalyses = `
	CREATE TABLE IF NOT EXISTS soil_analyses (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		partner VARCHAR(255) NOT NULL,
		soil_type VARCHAR(128),
		source VARCHAR(16) NOT NULL DEFAULT 'image',
		analysis JSON NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_partner_created (partner, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`

const createYieldPredictions = `
	CREATE TABLE IF NOT EXISTS yield_predictions (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		partner VARCHAR(255) NOT NULL,
		crop VARCHAR(128) NOT NULL,
		predicted_yield DOUBLE NOT NULL,
		source VARCHAR(16) NOT NULL DEFAULT 'model',
		prediction JSON NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_partner_created (partner, created_at),
		INDEX idx_crop (crop)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`

const createAPIKeys = `
	CREATE TABLE IF NOT EXISTS api_keys (
		api_key VARCHAR(64) NOT NULL PRIMARY KEY,
		partner VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		daily_limit INT NOT NULL DEFAULT 1000,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY idx_partner (partner)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`

const createAPIKeyUsage = `
	CREATE TABLE IF NOT EXISTS api_key_usage (
		partner VARCHAR(255) NOT NULL,
		usage_date DATE NOT NULL,
		endpoint VARCHAR(128) NOT NULL,
		requests INT NOT NULL DEFAULT 0,
		PRIMARY KEY (partner, usage_date, endpoint)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`
