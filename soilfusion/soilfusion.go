// Package soilfusion merges a soil analysis derived from imagery with one
// derived from geospatial soil map data. Fusion is field-wise: for each
// field the source reporting higher confidence wins, with ties going to
// the image analysis. When no map analysis is available fusion is the
// identity function over the image analysis.
package soilfusion

import (
	"strings"

	"crop-analyze-pipeline/models"
)

// Fuse combines an image-derived soil analysis with an optional map-derived
// one. The returned record is a new value; neither input is mutated.
func Fuse(image *models.SoilAnalysisResult, mapResult *models.SoilAnalysisResult) *models.SoilAnalysisResult {
	if image == nil && mapResult == nil {
		return nil
	}
	if mapResult == nil {
		out := *image
		return &out
	}
	if image == nil {
		out := *mapResult
		out.Source = models.SoilSourceMap
		return &out
	}

	out := *image
	out.Source = models.SoilSourceFused

	// Per-field: higher confidence wins, image wins ties.
	if mapResult.ConfidenceScore > image.ConfidenceScore {
		out.SoilType = pick(mapResult.SoilType, image.SoilType)
		out.PHRange = pick(mapResult.PHRange, image.PHRange)
		if mapResult.EstimatedOrganicMatter > 0 {
			out.EstimatedOrganicMatter = mapResult.EstimatedOrganicMatter
		}
		if len(mapResult.SuitableCrops) > 0 {
			out.SuitableCrops = append([]string(nil), mapResult.SuitableCrops...)
		}
	}

	// Overall confidence of the fused record is the best source confidence.
	if mapResult.ConfidenceScore > out.ConfidenceScore {
		out.ConfidenceScore = mapResult.ConfidenceScore
	}
	out.Confidence = out.ConfidenceScore * 100

	out.Nutrients = fuseNutrients(image.Nutrients, mapResult.Nutrients)

	// Advisory fields are unioned so farmer guidance is never lost.
	out.OrganicSolutions = mergeLists(image.OrganicSolutions, mapResult.OrganicSolutions)
	out.ChemicalSolutions = mergeLists(image.ChemicalSolutions, mapResult.ChemicalSolutions)
	if out.Location == "" {
		out.Location = mapResult.Location
	}
	return &out
}

// fuseNutrients matches nutrient assessments by name and keeps the higher
// confidence reading per nutrient. Nutrients reported by only one source
// pass through unchanged, image entries first.
func fuseNutrients(image, mapN []models.NutrientAssessment) []models.NutrientAssessment {
	if len(mapN) == 0 {
		return append([]models.NutrientAssessment(nil), image...)
	}
	if len(image) == 0 {
		return append([]models.NutrientAssessment(nil), mapN...)
	}

	out := make([]models.NutrientAssessment, 0, len(image)+len(mapN))
	seen := make(map[string]bool, len(image))
	byName := make(map[string]models.NutrientAssessment, len(mapN))
	for _, n := range mapN {
		byName[nutrientKey(n.Name)] = n
	}

	for _, n := range image {
		key := nutrientKey(n.Name)
		seen[key] = true
		if m, ok := byName[key]; ok && m.ConfidenceScore > n.ConfidenceScore {
			out = append(out, m)
			continue
		}
		out = append(out, n)
	}
	for _, n := range mapN {
		if !seen[nutrientKey(n.Name)] {
			out = append(out, n)
		}
	}
	return out
}

func nutrientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func pick(candidate, fallback string) string {
	if candidate != "" {
		return candidate
	}
	return fallback
}

func mergeLists(a, b []string) []string {
	if len(b) == 0 {
		return append([]string(nil), a...)
	}
	out := append([]string(nil), a...)
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range b {
		if !seen[strings.ToLower(s)] {
			out = append(out, s)
		}
	}
	return out
}
