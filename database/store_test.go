package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-analyze-pipeline/models"
)

func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestSaveCropAnalysis(t *testing.T) {
	d, mock := newMockDB(t)

	a := &models.CropAnalysis{
		ID:     "abc-123",
		Status: models.StatusDiseased,
		Model:  "gemini-2.0-flash",
		Disease: &models.DiseaseAnalysis{
			Name: "Leaf Blight",
		},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WithArgs(a.ID, "partner-1", "diseased_plant", a.Model, sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, d.SaveCropAnalysis(context.Background(), "partner-1", a, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAnalysisRoundTrip(t *testing.T) {
	d, mock := newMockDB(t)

	stored := &models.CropAnalysis{
		ID:     "abc-123",
		Status: models.StatusDiseased,
		Disease: &models.DiseaseAnalysis{
			Name:     "Rust",
			Severity: &models.SeverityScore{Overall: 7},
		},
	}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT analysis FROM crop_analyses WHERE id = ?")).
		WithArgs("abc-123").
		WillReturnRows(sqlmock.NewRows([]string{"analysis"}).AddRow(payload))

	got, err := d.GetAnalysis("abc-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusDiseased, got.Status)
	require.NotNil(t, got.Disease)
	assert.Equal(t, 7, got.Disease.Severity.Overall)
}

func TestGetAnalysisUnknownIDIsNil(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT analysis FROM crop_analyses")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	got, err := d.GetAnalysis("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordUsageUpserts(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO api_key_usage")).
		WithArgs("partner-1", "/api/v1/analyze").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, d.RecordUsage(context.Background(), "partner-1", "/api/v1/analyze"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageTodayHandlesNullSum(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT SUM(requests) FROM api_key_usage")).
		WithArgs("partner-1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))

	n, err := d.UsageToday(context.Background(), "partner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdateAPIKeyNoMatchingPartner(t *testing.T) {
	d, mock := newMockDB(t)

	active := false
	mock.ExpectExec(regexp.QuoteMeta("UPDATE api_keys SET is_active = ? WHERE partner = ?")).
		WithArgs(false, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.UpdateAPIKey(context.Background(), "ghost", &active, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetStats(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM crop_analyses")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM soil_analyses")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM yield_predictions")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT plant_status, COUNT(*) FROM crop_analyses GROUP BY plant_status")).
		WillReturnRows(sqlmock.NewRows([]string{"plant_status", "count"}).
			AddRow("diseased_plant", 8).
			AddRow("healthy_plant", 4))

	stats, err := d.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.CropAnalyses)
	assert.Equal(t, int64(8), stats.ByPlantStatus["diseased_plant"])
}
