package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-analyze-pipeline/database"
	"crop-analyze-pipeline/models"
	"crop-analyze-pipeline/prediction"
)

type fakeLLM struct {
	imageResponse string
	textResponse  string
	err           error
	lastPrompt    string
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.imageResponse, nil
}

func (f *fakeLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.textResponse, nil
}

func (f *fakeLLM) SourceName() string { return "Fake" }

const diseasedResponse = `{
	"plant_status": "diseased_plant",
	"disease_name": "Leaf Blight",
	"confidence": 0.85,
	"symptoms_analysis": "Severe lesions covering most leaves.",
	"disease_stage": "Advanced",
	"impact_assessment": {"yield_impact": "High", "spread_risk": "High", "recovery_chance": "Low"}
}`

func newTestService(t *testing.T, llmClient *fakeLLM) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Service{
		db:        database.NewWithDB(db),
		llmClient: llmClient,
		estimator: prediction.NewEstimator(llmClient),
	}, mock
}

func TestAnalyzeCropEnrichesAndPersists(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{imageResponse: diseasedResponse})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.StatusDiseased, got.Status)
	require.NotNil(t, got.Disease)
	require.NotNil(t, got.Disease.Severity)
	assert.Equal(t, 10, got.Disease.Severity.Overall)
	assert.Nil(t, got.Progression)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyzeCropInferenceFailureSurfaces(t *testing.T) {
	svc, _ := newTestService(t, &fakeLLM{err: errors.New("model overloaded")})

	_, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), nil)
	assert.Error(t, err)
}

func TestAnalyzeCropSaveFailureDoesNotFailRequest(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{imageResponse: diseasedResponse})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnError(errors.New("connection lost"))

	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDiseased, got.Status)
}

func TestAnalyzeCropTracksProgression(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{imageResponse: diseasedResponse})

	previous := models.CropAnalysis{
		ID:     "prev-id",
		Status: models.StatusDiseased,
		Disease: &models.DiseaseAnalysis{
			Name:     "Leaf Blight",
			Severity: &models.SeverityScore{Overall: 4},
		},
	}
	payload, err := json.Marshal(previous)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT analysis FROM crop_analyses WHERE id = ?")).
		WithArgs("prev-id").
		WillReturnRows(sqlmock.NewRows([]string{"analysis"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fctx := &models.FarmerContext{PreviousAnalysisID: "prev-id"}
	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), fctx)
	require.NoError(t, err)

	require.NotNil(t, got.Progression)
	assert.Equal(t, "prev-id", got.Progression.PreviousAnalysisID)
	// Severity climbed from 4 to 10: worsened, and fast.
	assert.Equal(t, "worsened", got.Progression.Change)
	assert.Equal(t, "rapid", got.Progression.Rate)
}

func TestAnalyzeCropPreviousLookupFailureDegrades(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{imageResponse: diseasedResponse})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT analysis FROM crop_analyses WHERE id = ?")).
		WithArgs("prev-id").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fctx := &models.FarmerContext{PreviousAnalysisID: "prev-id"}
	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), fctx)
	require.NoError(t, err)

	require.NotNil(t, got.Progression)
	assert.Equal(t, "unknown", got.Progression.Change)
	assert.Equal(t, "previous analysis unavailable for comparison", got.Progression.Notes)
}

func TestAnalyzeCropMergesStoredContext(t *testing.T) {
	model := &fakeLLM{imageResponse: diseasedResponse}
	svc, mock := newTestService(t, model)

	previous := models.CropAnalysis{
		ID:      "prev-id",
		Status:  models.StatusDiseased,
		Disease: &models.DiseaseAnalysis{Name: "Leaf Blight"},
		Context: &models.FarmerContext{
			Location:     "Pune",
			PlantVariety: "rice",
		},
	}
	payload, err := json.Marshal(previous)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT analysis FROM crop_analyses WHERE id = ?")).
		WithArgs("prev-id").
		WillReturnRows(sqlmock.NewRows([]string{"analysis"}).AddRow(payload))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fctx := &models.FarmerContext{
		PreviousAnalysisID: "prev-id",
		Symptoms:           "brown spots spreading",
	}
	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), fctx)
	require.NoError(t, err)

	// Accumulated fields reach the prompt alongside the new symptoms.
	assert.Contains(t, model.lastPrompt, "Pune")
	assert.Contains(t, model.lastPrompt, "rice")
	assert.Contains(t, model.lastPrompt, "brown spots spreading")

	// The merged context is persisted on the new record for the next turn.
	require.NotNil(t, got.Context)
	assert.Equal(t, "Pune", got.Context.Location)
	assert.Equal(t, "rice", got.Context.PlantVariety)
	assert.Equal(t, "brown spots spreading", got.Context.Symptoms)
}

func TestAnalyzeCropGarbageResponseYieldsDefaultRecord(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{imageResponse: "sorry, I cannot analyze this image"})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := svc.AnalyzeCrop(context.Background(), "partner-1", []byte("jpeg"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDiseased, got.Status)
	require.NotNil(t, got.Disease)
	assert.Equal(t, "Unknown Condition", got.Disease.Name)
}

func TestAnalyzeSoilWithoutCoordinatesIsImageOnly(t *testing.T) {
	soilResponse := `{"soil_type": "Red Soil", "confidence": 0.7, "ph_level": "5.5-6.5"}`
	svc, mock := newTestService(t, &fakeLLM{imageResponse: soilResponse})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO soil_analyses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := svc.AnalyzeSoil(context.Background(), "partner-1", []byte("jpeg"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Red Soil", got.SoilType)
	assert.Equal(t, models.SoilSourceImage, got.Source)
	assert.NotEmpty(t, got.ID)
}

func TestPredictYieldPersistsAndReturns(t *testing.T) {
	svc, mock := newTestService(t, &fakeLLM{
		textResponse: `{"yield": 9, "unit": "tons", "confidence": 80}`,
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO yield_predictions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	got := svc.PredictYield(context.Background(), "partner-1", prediction.Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})

	assert.Equal(t, 9.0, got.PredictedYield)
	assert.Equal(t, "model", got.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
