package prediction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	response string
	err      error
	calls    int
}

func (f *fakeModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeModel) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	return f.GenerateText(ctx, prompt)
}

func (f *fakeModel) SourceName() string { return "fake" }

func yieldJSON(yield float64) string {
	return fmt.Sprintf(`{"yield": %g, "unit": "tons", "confidence": 80, "recommendations": ["Use certified seed"]}`, yield)
}

func TestEstimateCapsImplausibleModelYield(t *testing.T) {
	model := &fakeModel{response: yieldJSON(200)}
	e := NewEstimator(model)

	got := e.Estimate(context.Background(), Request{
		Crop:         "Rice",
		AreaAcres:    2,
		SoilType:     "Alluvial Soil",
		RainfallMM:   1500,
		TemperatureC: 28,
	})

	// Local plausible maximum is 7 * 2 * 1.0 = 14 tons; the cap is 1.5x that.
	assert.LessOrEqual(t, got.PredictedYield, 21.0)
	assert.Equal(t, 21.0, got.PredictedYield)
	assert.Equal(t, "model", got.Source)
	assert.Equal(t, 1, model.calls)
}

func TestEstimatePlausibleModelYieldPassesThrough(t *testing.T) {
	model := &fakeModel{response: yieldJSON(10)}
	e := NewEstimator(model)

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})

	assert.Equal(t, 10.0, got.PredictedYield)
	assert.Equal(t, []string{"Use certified seed"}, got.Recommendations)
	assert.Equal(t, 200000.0, got.PotentialIncome)
}

func TestEstimateIdealConditionsConfidence(t *testing.T) {
	e := NewEstimator(&fakeModel{response: yieldJSON(10)})

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})

	assert.Equal(t, 85.0, got.Confidence)
	assert.Equal(t, 0.85, got.ConfidenceScore)
}

func TestEstimateConfidencePenalties(t *testing.T) {
	e := NewEstimator(&fakeModel{response: yieldJSON(5)})

	// 45C is 10 degrees above rice's ideal max: full 15-point temperature
	// penalty after capping. 200mm is 800 below the minimum: full rainfall
	// penalty too.
	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 1, SoilType: "Alluvial Soil",
		RainfallMM: 200, TemperatureC: 45,
	})

	assert.Equal(t, 55.0, got.Confidence)
}

func TestEstimateDiseasePenaltyIsCapped(t *testing.T) {
	e := NewEstimator(&fakeModel{response: yieldJSON(5)})

	// Bacterial wilt's mean loss is 55%; the confidence penalty caps at 20.
	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
		Disease: "Bacterial Wilt",
	})

	assert.Equal(t, 65.0, got.Confidence)
	assert.Equal(t, 55.0, got.DiseaseLossPercent)
}

func TestEstimateConfidenceClampFloor(t *testing.T) {
	e := NewEstimator(&fakeModel{response: yieldJSON(1)})

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 1, SoilType: "Saline Soil",
		RainfallMM: 100, TemperatureC: 48,
		Disease: "Bacterial Wilt",
	})

	assert.GreaterOrEqual(t, got.Confidence, 20.0)
	assert.LessOrEqual(t, got.Confidence, 95.0)
}

func TestEstimateModelFailureFallsBackToLocal(t *testing.T) {
	model := &fakeModel{err: errors.New("overloaded")}
	e := NewEstimator(model)

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})

	// Midpoint of rice's 3-7 range times 2 acres at factor 1.0.
	assert.Equal(t, 10.0, got.PredictedYield)
	assert.Equal(t, "local", got.Source)
	assert.NotEmpty(t, got.Recommendations)
}

func TestEstimateNilModelUsesLocalPath(t *testing.T) {
	e := NewEstimator(nil)

	got := e.Estimate(context.Background(), Request{
		Crop: "Wheat", AreaAcres: 1, SoilType: "Loamy Soil",
		RainfallMM: 500, TemperatureC: 20,
	})

	assert.Equal(t, "local", got.Source)
	assert.Greater(t, got.PredictedYield, 0.0)
}

func TestEstimateLocalPathAppliesDiseaseLoss(t *testing.T) {
	e := NewEstimator(nil)

	healthy := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})
	sick := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
		Disease: "Blast",
	})

	assert.Less(t, sick.PredictedYield, healthy.PredictedYield)
	// Blast's mean loss is 35%.
	assert.Equal(t, 6.5, sick.PredictedYield)
}

func TestEstimateUnusableModelPayloadFallsBack(t *testing.T) {
	model := &fakeModel{response: "I cannot provide a yield number for this field."}
	e := NewEstimator(model)

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Alluvial Soil",
		RainfallMM: 1500, TemperatureC: 28,
	})

	assert.Equal(t, "local", got.Source)
	assert.Equal(t, 10.0, got.PredictedYield)
}

func TestEstimateTransparencyBlock(t *testing.T) {
	e := NewEstimator(&fakeModel{response: yieldJSON(10)})

	got := e.Estimate(context.Background(), Request{
		Crop: "Rice", AreaAcres: 2, SoilType: "Black Soil",
		RainfallMM: 1200, TemperatureC: 30,
	})

	require.NotNil(t, got.Conditions)
	assert.Equal(t, 20.0, got.Conditions.IdealTempMin)
	assert.Equal(t, 35.0, got.Conditions.IdealTempMax)
	assert.Equal(t, 30.0, got.Conditions.ActualTemp)
	assert.Equal(t, 0.95, got.Conditions.SoilFactor)
}

func TestEstimateUnknownCropStillProducesResult(t *testing.T) {
	e := NewEstimator(nil)

	got := e.Estimate(context.Background(), Request{
		Crop: "Dragonfruit", AreaAcres: 1,
	})

	assert.Greater(t, got.PredictedYield, 0.0)
	assert.NotEmpty(t, got.Recommendations)
}
