package parser

import (
	"fmt"

	"crop-analyze-pipeline/models"
)

const (
	defaultSoilType = "Unknown Soil"
	defaultPHRange  = "6.0-7.0"
)

func defaultNutrients() []models.NutrientAssessment {
	return []models.NutrientAssessment{
		{Name: "Nitrogen", Level: models.NutrientMedium, ConfidenceScore: defaultConfidence, Recommendation: "Apply a split dose of urea after confirming with a soil test"},
		{Name: "Phosphorus", Level: models.NutrientMedium, ConfidenceScore: defaultConfidence, Recommendation: "Maintain with single super phosphate at sowing"},
		{Name: "Potassium", Level: models.NutrientMedium, ConfidenceScore: defaultConfidence, Recommendation: "Maintain with muriate of potash if deficiency symptoms appear"},
	}
}

// DefaultSoilAnalysis is the soil-domain default record.
func DefaultSoilAnalysis() models.SoilAnalysisResult {
	return models.SoilAnalysisResult{
		SoilType:        defaultSoilType,
		ConfidenceScore: defaultConfidence,
		Confidence:      defaultConfidence * 100,
		PHRange:         defaultPHRange,
		Nutrients:       defaultNutrients(),
		OrganicSolutions: []string{
			"Incorporate well-rotted farmyard manure before the next sowing",
			"Grow a green-manure crop such as dhaincha in the off season",
		},
		ChemicalSolutions: []string{"Apply NPK fertilizer after a laboratory soil test"},
		SuitableCrops:     []string{"Wheat", "Maize", "Pulses"},
		Source:            models.SoilSourceImage,
	}
}

// ParseSoilAnalysis normalizes raw model output into a typed soil analysis.
// Never fails; missing fields keep their defaults.
func ParseSoilAnalysis(raw string) models.SoilAnalysisResult {
	out := DefaultSoilAnalysis()

	obj, ok := parseObject(raw)
	if !ok {
		return out
	}

	if v, ok := getString(obj, "soil_type", "type"); ok {
		out.SoilType = v
	}
	out.ConfidenceScore = confidenceFrom(obj, defaultConfidence, "confidence_score", "confidence")
	out.Confidence = out.ConfidenceScore * 100

	if v, ok := getString(obj, "ph_level", "ph_range", "ph"); ok {
		out.PHRange = v
	} else if f, ok := getFloat(obj, "ph_level", "ph"); ok {
		out.PHRange = formatPH(f)
	}

	if nutrients, ok := getArray(obj, "nutrients", "nutrient_levels"); ok {
		parsed := parseNutrients(nutrients, out.ConfidenceScore)
		if len(parsed) > 0 {
			out.Nutrients = parsed
		}
	}

	if v, ok := getStringSlice(obj, "organic_solutions"); ok {
		out.OrganicSolutions = v
	}
	if v, ok := getStringSlice(obj, "chemical_solutions"); ok {
		out.ChemicalSolutions = v
	}
	if v, ok := getStringSlice(obj, "suitable_crops", "recommended_crops"); ok {
		out.SuitableCrops = v
	}
	if v, ok := getString(obj, "location"); ok {
		out.Location = v
	}
	if f, ok := getFloat(obj, "estimated_organic_matter", "organic_matter"); ok {
		out.EstimatedOrganicMatter = f
	}
	if f, ok := getFloat(obj, "image_quality_score", "image_quality"); ok {
		out.ImageQualityScore = normalizeConfidence(f)
	}

	return out
}

// parseNutrients validates each nutrient entry individually; a bad entry is
// dropped without rejecting its siblings. Entries missing their own
// confidence inherit the overall score.
func parseNutrients(arr []any, overallConf float64) []models.NutrientAssessment {
	var out []models.NutrientAssessment
	for _, item := range arr {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := getString(entry, "name", "nutrient")
		if !ok {
			continue
		}
		n := models.NutrientAssessment{
			Name:            name,
			Level:           models.NutrientMedium,
			ConfidenceScore: confidenceFrom(entry, overallConf, "confidence_score", "confidence"),
		}
		if lvl, ok := getString(entry, "level"); ok {
			candidate := models.NutrientLevel(titleCase(lvl))
			if candidate == "Moderate" {
				candidate = models.NutrientMedium
			}
			if candidate.IsValid() {
				n.Level = candidate
			}
		}
		if rec, ok := getString(entry, "recommendation"); ok {
			n.Recommendation = rec
		}
		out = append(out, n)
	}
	return out
}

// formatPH widens a point estimate into a half-unit band.
func formatPH(f float64) string {
	return fmt.Sprintf("%.1f-%.1f", f-0.25, f+0.25)
}
