package soilfusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-analyze-pipeline/models"
)

func imageAnalysis() *models.SoilAnalysisResult {
	return &models.SoilAnalysisResult{
		SoilType:        "Alluvial Soil",
		ConfidenceScore: 0.7,
		Confidence:      70,
		PHRange:         "6.0-7.0",
		Nutrients: []models.NutrientAssessment{
			{Name: "Nitrogen", Level: models.NutrientLow, ConfidenceScore: 0.8},
			{Name: "Phosphorus", Level: models.NutrientMedium, ConfidenceScore: 0.5},
		},
		OrganicSolutions: []string{"Add compost"},
		SuitableCrops:    []string{"Rice", "Wheat"},
		Source:           models.SoilSourceImage,
	}
}

func mapAnalysis() *models.SoilAnalysisResult {
	return &models.SoilAnalysisResult{
		SoilType:        "Black Soil",
		ConfidenceScore: 0.9,
		Confidence:      90,
		PHRange:         "7.5-8.5",
		Nutrients: []models.NutrientAssessment{
			{Name: "Phosphorus", Level: models.NutrientHigh, ConfidenceScore: 0.9},
			{Name: "Potassium", Level: models.NutrientMedium, ConfidenceScore: 0.85},
		},
		ChemicalSolutions: []string{"Apply DAP at sowing"},
		SuitableCrops:     []string{"Cotton", "Soybean"},
		Location:          "Vidarbha",
		Source:            models.SoilSourceMap,
	}
}

func TestFuseIdentityWithoutMap(t *testing.T) {
	img := imageAnalysis()
	got := Fuse(img, nil)
	require.NotNil(t, got)
	assert.Equal(t, *img, *got)
	assert.NotSame(t, img, got)
}

func TestFuseMapOnly(t *testing.T) {
	m := mapAnalysis()
	got := Fuse(nil, m)
	require.NotNil(t, got)
	assert.Equal(t, models.SoilSourceMap, got.Source)
	assert.Equal(t, "Black Soil", got.SoilType)
}

func TestFuseNilBoth(t *testing.T) {
	assert.Nil(t, Fuse(nil, nil))
}

func TestFuseHigherConfidenceMapWins(t *testing.T) {
	got := Fuse(imageAnalysis(), mapAnalysis())
	require.NotNil(t, got)

	assert.Equal(t, models.SoilSourceFused, got.Source)
	assert.Equal(t, "Black Soil", got.SoilType)
	assert.Equal(t, "7.5-8.5", got.PHRange)
	assert.Equal(t, 0.9, got.ConfidenceScore)
	assert.Equal(t, 90.0, got.Confidence)
	assert.Equal(t, []string{"Cotton", "Soybean"}, got.SuitableCrops)
	assert.Equal(t, "Vidarbha", got.Location)
}

func TestFuseImageWinsWhenMoreConfident(t *testing.T) {
	img := imageAnalysis()
	img.ConfidenceScore = 0.95
	m := mapAnalysis()

	got := Fuse(img, m)
	require.NotNil(t, got)
	assert.Equal(t, "Alluvial Soil", got.SoilType)
	assert.Equal(t, "6.0-7.0", got.PHRange)
	assert.Equal(t, 0.95, got.ConfidenceScore)
}

func TestFuseTieFavorsImage(t *testing.T) {
	img := imageAnalysis()
	m := mapAnalysis()
	m.ConfidenceScore = img.ConfidenceScore

	got := Fuse(img, m)
	require.NotNil(t, got)
	assert.Equal(t, "Alluvial Soil", got.SoilType)
	assert.Equal(t, img.ConfidenceScore, got.ConfidenceScore)
}

func TestFuseNutrientsPerEntry(t *testing.T) {
	got := Fuse(imageAnalysis(), mapAnalysis())
	require.NotNil(t, got)
	require.Len(t, got.Nutrients, 3)

	byName := map[string]models.NutrientAssessment{}
	for _, n := range got.Nutrients {
		byName[n.Name] = n
	}

	// Image-only entry passes through.
	assert.Equal(t, models.NutrientLow, byName["Nitrogen"].Level)
	// Map reading wins on confidence for the shared nutrient.
	assert.Equal(t, models.NutrientHigh, byName["Phosphorus"].Level)
	assert.Equal(t, 0.9, byName["Phosphorus"].ConfidenceScore)
	// Map-only entry is appended.
	assert.Equal(t, models.NutrientMedium, byName["Potassium"].Level)
}

func TestFuseNutrientTieKeepsImageReading(t *testing.T) {
	img := imageAnalysis()
	m := mapAnalysis()
	m.Nutrients = []models.NutrientAssessment{
		{Name: "phosphorus", Level: models.NutrientHigh, ConfidenceScore: 0.5},
	}

	got := Fuse(img, m)
	require.NotNil(t, got)
	for _, n := range got.Nutrients {
		if n.Name == "Phosphorus" {
			assert.Equal(t, models.NutrientMedium, n.Level)
			return
		}
	}
	t.Fatal("phosphorus entry missing from fused nutrients")
}

func TestFuseUnionsSolutions(t *testing.T) {
	got := Fuse(imageAnalysis(), mapAnalysis())
	require.NotNil(t, got)
	assert.Equal(t, []string{"Add compost"}, got.OrganicSolutions)
	assert.Equal(t, []string{"Apply DAP at sowing"}, got.ChemicalSolutions)
}

func TestFuseDoesNotMutateInputs(t *testing.T) {
	img := imageAnalysis()
	m := mapAnalysis()
	_ = Fuse(img, m)

	assert.Equal(t, *imageAnalysis(), *img)
	assert.Equal(t, *mapAnalysis(), *m)
}
