package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crop-analyze-pipeline/models"
)

func TestScoreStageBaselines(t *testing.T) {
	tests := []struct {
		name  string
		stage models.DiseaseStage
		want  int
	}{
		{"early", models.StageEarly, 3},
		{"moderate", models.StageModerate, 6},
		{"advanced", models.StageAdvanced, 9},
		{"unknown", models.StageUnknown, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &models.DiseaseAnalysis{Stage: tt.stage}
			got := Score(d)
			assert.Equal(t, tt.want, got.Overall)
		})
	}
}

func TestScoreWorstCaseSaturates(t *testing.T) {
	d := &models.DiseaseAnalysis{
		Stage: models.StageAdvanced,
		Impact: models.ImpactAssessment{
			YieldImpact:    "High, potential total crop loss",
			SpreadRisk:     models.RiskHigh,
			RecoveryChance: models.RiskLow,
		},
	}
	got := Score(d)
	assert.Equal(t, 10, got.Overall)
	assert.Equal(t, 8, got.EconomicImpact)
	assert.Equal(t, 9, got.SpreadRate)
	assert.Equal(t, 8, got.TreatmentDifficulty)
}

func TestScoreGoodRecoveryReducesOverall(t *testing.T) {
	d := &models.DiseaseAnalysis{
		Stage: models.StageModerate,
		Impact: models.ImpactAssessment{
			YieldImpact:    "Low",
			RecoveryChance: models.RiskHigh,
		},
	}
	got := Score(d)
	assert.Equal(t, 5, got.Overall)
	assert.Equal(t, 3, got.EconomicImpact)
	assert.Equal(t, 4, got.TreatmentDifficulty)
}

func TestScoreOrganKeywords(t *testing.T) {
	tests := []struct {
		name     string
		symptoms string
		check    func(t *testing.T, s models.SeverityScore)
	}{
		{
			name:     "severe leaf damage",
			symptoms: "Severe necrotic lesions covering most leaves, margins curled.",
			check: func(t *testing.T, s models.SeverityScore) {
				assert.Equal(t, 8, s.LeafDamage)
			},
		},
		{
			name:     "moderate stem lesions",
			symptoms: "Moderate dark streaks along the stem near the base.",
			check: func(t *testing.T, s models.SeverityScore) {
				assert.Equal(t, 6, s.StemDamage)
			},
		},
		{
			name:     "bare fruit mention is mild",
			symptoms: "Small spots visible on a few pods.",
			check: func(t *testing.T, s models.SeverityScore) {
				assert.Equal(t, 3, s.FruitDamage)
			},
		},
		{
			name:     "wilt counts as root trouble",
			symptoms: "Plants show wilting despite adequate irrigation.",
			check: func(t *testing.T, s models.SeverityScore) {
				assert.Equal(t, 4, s.RootDamage)
			},
		},
		{
			name:     "unmentioned organs stay zero",
			symptoms: "General yellowing across the canopy.",
			check: func(t *testing.T, s models.SeverityScore) {
				assert.Equal(t, 0, s.StemDamage)
				assert.Equal(t, 0, s.FruitDamage)
				assert.Equal(t, 0, s.RootDamage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &models.DiseaseAnalysis{Stage: models.StageEarly, SymptomAnalysis: tt.symptoms}
			tt.check(t, Score(d))
		})
	}
}

func TestScoreStructuralDamageRaisesOverall(t *testing.T) {
	// Severe stem damage (9) and wilt-suggested root damage push the
	// overall above the early-stage baseline.
	d := &models.DiseaseAnalysis{
		Stage:           models.StageEarly,
		SymptomAnalysis: "Severe cankers girdling the stem, lower leaves wilting heavily.",
	}
	got := Score(d)
	assert.Equal(t, 9, got.StemDamage)
	assert.Equal(t, 9, got.RootDamage)
	assert.Equal(t, 5, got.Overall)
}

func TestScoreFruitDamageImpliesEconomicImpact(t *testing.T) {
	d := &models.DiseaseAnalysis{
		Stage:           models.StageModerate,
		SymptomAnalysis: "Extensive rot spreading across fruit clusters.",
	}
	got := Score(d)
	assert.Equal(t, 8, got.FruitDamage)
	assert.Equal(t, 8, got.EconomicImpact)
}

func TestScoreNilAnalysis(t *testing.T) {
	got := Score(nil)
	assert.Equal(t, 5, got.Overall)
}

func TestScoreDeterministic(t *testing.T) {
	d := &models.DiseaseAnalysis{
		Stage:           models.StageModerate,
		SymptomAnalysis: "Moderate spotting on leaves and stems.",
		Impact: models.ImpactAssessment{
			YieldImpact: "Moderate",
			SpreadRisk:  models.RiskModerate,
		},
	}
	first := Score(d)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(d))
	}
}
