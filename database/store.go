package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"crop-analyze-pipeline/models"
)

// SaveCropAnalysis stores an enriched crop analysis as JSON alongside the
// columns queries filter on.
func (d *Database) SaveCropAnalysis(ctx context.Context, partner string, a *models.CropAnalysis, previousID string) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal crop analysis: %w", err)
	}

	var prev sql.NullString
	if previousID != "" {
		prev = sql.NullString{String: previousID, Valid: true}
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO crop_analyses (id, partner, plant_status, model, analysis, raw_response, previous_analysis_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, partner, string(a.Status), a.Model, payload, a.RawResponse, prev)
	if err != nil {
		return fmt.Errorf("failed to save crop analysis: %w", err)
	}
	return nil
}

// GetAnalysis loads a stored crop analysis by id. A nil result with a nil
// error means the id is unknown.
func (d *Database) GetAnalysis(id string) (*models.CropAnalysis, error) {
	var payload []byte
	err := d.db.QueryRow(`SELECT analysis FROM crop_analyses WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load crop analysis %s: %w", id, err)
	}

	var a models.CropAnalysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal crop analysis %s: %w", id, err)
	}
	return &a, nil
}

// SaveSoilAnalysis stores a soil assessment.
func (d *Database) SaveSoilAnalysis(ctx context.Context, partner string, s *models.SoilAnalysisResult) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal soil analysis: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO soil_analyses (id, partner, soil_type, source, analysis)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, partner, s.SoilType, s.Source, payload)
	if err != nil {
		return fmt.Errorf("failed to save soil analysis: %w", err)
	}
	return nil
}

// SaveYieldPrediction stores a yield prediction.
func (d *Database) SaveYieldPrediction(ctx context.Context, partner string, y *models.YieldPredictionResult) error {
	payload, err := json.Marshal(y)
	if err != nil {
		return fmt.Errorf("failed to marshal yield prediction: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO yield_predictions (id, partner, crop, predicted_yield, source, prediction)
		VALUES (?, ?, ?, ?, ?, ?)
	`, y.ID, partner, y.Crop, y.PredictedYield, y.Source, payload)
	if err != nil {
		return fmt.Errorf("failed to save yield prediction: %w", err)
	}
	return nil
}

// Stats aggregates stored record counts for the /stats endpoint.
type Stats struct {
	CropAnalyses     int64            `json:"crop_analyses"`
	SoilAnalyses     int64            `json:"soil_analyses"`
	YieldPredictions int64            `json:"yield_predictions"`
	ByPlantStatus    map[string]int64 `json:"by_plant_status"`
}

// GetStats counts stored records overall and by plant status.
func (d *Database) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByPlantStatus: make(map[string]int64)}

	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crop_analyses`).Scan(&stats.CropAnalyses); err != nil {
		return nil, fmt.Errorf("failed to count crop analyses: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM soil_analyses`).Scan(&stats.SoilAnalyses); err != nil {
		return nil, fmt.Errorf("failed to count soil analyses: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM yield_predictions`).Scan(&stats.YieldPredictions); err != nil {
		return nil, fmt.Errorf("failed to count yield predictions: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT plant_status, COUNT(*) FROM crop_analyses GROUP BY plant_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByPlantStatus[status] = count
	}
	return stats, rows.Err()
}
