package parser

import (
	"strings"

	"crop-analyze-pipeline/models"
)

// Named defaults substituted for missing or malformed fields. Each default
// is constructed fresh per call so records never share mutable state.

const (
	defaultDiseaseName     = "Unknown Condition"
	defaultSymptomAnalysis = "The condition could not be identified from the image. Consider retaking the photo in natural light, focusing on the affected area."
	defaultConfidence      = 0.3
	defaultHealthyMessage  = "The plant appears healthy. No disease symptoms were detected."
	defaultWeedName        = "Unknown Weed"
)

func defaultActionPlan() models.ActionPlan {
	return models.ActionPlan{
		Immediate: []string{"Isolate affected plants from healthy ones", "Remove visibly damaged leaves and destroy them away from the field"},
		ShortTerm: []string{"Monitor the crop daily for symptom spread", "Consult a local agronomist with a fresh photo"},
		LongTerm:  []string{"Rotate crops next season", "Improve field drainage and air circulation"},
	}
}

func defaultTreatments() models.TreatmentOptions {
	return models.TreatmentOptions{
		Organic:            []string{"Neem oil spray (5ml/L) applied in the evening"},
		Chemical:           []string{"Broad-spectrum fungicide as per label instructions"},
		IPM:                []string{"Combine sanitation, resistant varieties and targeted spraying"},
		CulturalBiological: []string{"Avoid overhead irrigation; encourage natural predators"},
	}
}

func defaultCareTips() []string {
	return []string{
		"Water at the base of the plant, early in the morning",
		"Check the underside of leaves weekly for early symptoms",
		"Apply balanced fertilizer per the crop's growth stage",
	}
}

// DefaultCropAnalysis is the domain default record returned when the raw
// output cannot be parsed at all. It is a clearly-low-confidence diseased
// record rather than an error, per the pipeline's degrade-gracefully rule.
func DefaultCropAnalysis() models.CropAnalysis {
	return models.CropAnalysis{
		Status: models.StatusDiseased,
		Disease: &models.DiseaseAnalysis{
			Name:            defaultDiseaseName,
			ConfidenceScore: defaultConfidence,
			Confidence:      defaultConfidence * 100,
			SymptomAnalysis: defaultSymptomAnalysis,
			Stage:           models.StageUnknown,
			Impact: models.ImpactAssessment{
				YieldImpact:    "Unknown",
				SpreadRisk:     models.RiskModerate,
				RecoveryChance: models.RiskModerate,
			},
			ActionPlan: defaultActionPlan(),
			Treatments: defaultTreatments(),
		},
	}
}

// ParseCropAnalysis normalizes raw model output into a typed crop analysis.
// It never fails: malformed input degrades to field-level defaults and, at
// worst, the domain default record.
func ParseCropAnalysis(raw string) models.CropAnalysis {
	obj, ok := parseObject(raw)
	if !ok {
		return DefaultCropAnalysis()
	}

	switch discriminator(obj) {
	case models.StatusHealthy:
		return models.CropAnalysis{Status: models.StatusHealthy, Healthy: parseHealthy(obj)}
	case models.StatusWeed:
		return models.CropAnalysis{Status: models.StatusWeed, Weed: parseWeed(obj)}
	case models.StatusDiseased:
		return models.CropAnalysis{Status: models.StatusDiseased, Disease: parseDisease(obj)}
	}

	// Unrecognized discriminator: scrape for any known variant's fields
	// before giving up on the payload.
	if _, ok := getString(obj, "disease_name", "disease"); ok {
		return models.CropAnalysis{Status: models.StatusDiseased, Disease: parseDisease(obj)}
	}
	if _, ok := getString(obj, "weed_name"); ok {
		return models.CropAnalysis{Status: models.StatusWeed, Weed: parseWeed(obj)}
	}
	if _, ok := getString(obj, "message"); ok {
		return models.CropAnalysis{Status: models.StatusHealthy, Healthy: parseHealthy(obj)}
	}

	return DefaultCropAnalysis()
}

// discriminator reads the plant_status field, tolerating close variants.
func discriminator(m map[string]any) models.PlantStatus {
	s, ok := getString(m, "plant_status", "status", "classification")
	if !ok {
		return ""
	}
	switch strings.ToLower(strings.ReplaceAll(s, " ", "_")) {
	case "healthy_plant", "healthy":
		return models.StatusHealthy
	case "diseased_plant", "diseased", "disease":
		return models.StatusDiseased
	case "weed":
		return models.StatusWeed
	}
	return ""
}

func parseHealthy(m map[string]any) *models.HealthyPlantResult {
	out := &models.HealthyPlantResult{
		Message:  defaultHealthyMessage,
		CareTips: defaultCareTips(),
	}
	if msg, ok := getString(m, "message", "summary"); ok {
		out.Message = msg
	}
	if tips, ok := getStringSlice(m, "care_tips", "tips", "recommendations"); ok {
		out.CareTips = tips
	}
	return out
}

func parseWeed(m map[string]any) *models.WeedAnalysis {
	out := &models.WeedAnalysis{
		Name:            defaultWeedName,
		HarmfulEffects:  []string{"Competes with the crop for nutrients, water and light"},
		ManualControl:   []string{"Uproot before flowering and remove from the field"},
		OrganicControl:  []string{"Mulch between rows to suppress regrowth"},
		ChemicalControl: []string{"Selective herbicide appropriate for the crop"},
	}
	if name, ok := getString(m, "weed_name", "name"); ok {
		out.Name = name
	}
	out.ConfidenceScore = confidenceFrom(m, defaultConfidence, "confidence_score", "confidence")
	out.Confidence = out.ConfidenceScore * 100

	if effects, ok := getStringSlice(m, "harmful_effects", "effects"); ok {
		out.HarmfulEffects = effects
	}
	if methods, ok := getObject(m, "control_methods", "control"); ok {
		if v, ok := getStringSlice(methods, "manual"); ok {
			out.ManualControl = v
		}
		if v, ok := getStringSlice(methods, "organic"); ok {
			out.OrganicControl = v
		}
		if v, ok := getStringSlice(methods, "chemical"); ok {
			out.ChemicalControl = v
		}
	}
	return out
}

func parseDisease(m map[string]any) *models.DiseaseAnalysis {
	out := &models.DiseaseAnalysis{
		Name:            defaultDiseaseName,
		SymptomAnalysis: defaultSymptomAnalysis,
		Stage:           models.StageUnknown,
		Impact: models.ImpactAssessment{
			YieldImpact:    "Unknown",
			SpreadRisk:     models.RiskModerate,
			RecoveryChance: models.RiskModerate,
		},
		ActionPlan: defaultActionPlan(),
		Treatments: defaultTreatments(),
	}

	if name, ok := getString(m, "disease_name", "disease", "name"); ok {
		out.Name = name
	}
	out.ConfidenceScore = confidenceFrom(m, defaultConfidence, "confidence_score", "confidence")
	out.Confidence = out.ConfidenceScore * 100

	if sym, ok := getString(m, "symptom_analysis", "symptoms_analysis", "analysis"); ok {
		out.SymptomAnalysis = sym
	} else if syms, ok := getStringSlice(m, "symptoms"); ok {
		out.SymptomAnalysis = strings.Join(syms, "; ")
	}

	if stage, ok := getString(m, "stage", "disease_stage"); ok {
		candidate := models.DiseaseStage(titleCase(stage))
		if candidate.IsValid() {
			out.Stage = candidate
		} else if mapped, ok := severityToStage(stage); ok {
			out.Stage = mapped
		}
	} else if sev, ok := getString(m, "severity"); ok {
		if mapped, ok := severityToStage(sev); ok {
			out.Stage = mapped
		}
	}

	out.Impact = parseImpact(m, out.Impact)

	if plan, ok := getObject(m, "action_plan"); ok {
		if v, ok := planItems(plan, "immediate"); ok {
			out.ActionPlan.Immediate = v
		}
		if v, ok := planItems(plan, "short_term"); ok {
			out.ActionPlan.ShortTerm = v
		}
		if v, ok := planItems(plan, "long_term"); ok {
			out.ActionPlan.LongTerm = v
		}
	}

	if tr, ok := getObject(m, "treatment_options", "treatments"); ok {
		if v, ok := planItems(tr, "organic"); ok {
			out.Treatments.Organic = v
		}
		if v, ok := planItems(tr, "chemical"); ok {
			out.Treatments.Chemical = v
		}
		if v, ok := planItems(tr, "ipm"); ok {
			out.Treatments.IPM = v
		}
		if v, ok := planItems(tr, "cultural_biological"); ok {
			out.Treatments.CulturalBiological = v
		}
	}

	if rv, ok := getString(m, "resistant_varieties", "resistant_variety"); ok {
		out.ResistantVarieties = rv
	}

	return out
}

// parseImpact validates the nested impact assessment, keeping defaults for
// any field that fails enum validation.
func parseImpact(m map[string]any, def models.ImpactAssessment) models.ImpactAssessment {
	out := def
	impact, ok := getObject(m, "impact_assessment", "impact")
	if !ok {
		impact = m // flat payloads carry these at the top level
	}
	if v, ok := getString(impact, "yield_impact"); ok {
		out.YieldImpact = v
	}
	if v, ok := getString(impact, "spread_risk"); ok {
		candidate := models.RiskLevel(titleCase(v))
		if candidate == "Medium" {
			candidate = models.RiskModerate
		}
		if candidate.IsValid() {
			out.SpreadRisk = candidate
		}
	}
	if v, ok := getString(impact, "recovery_chance", "recovery"); ok {
		candidate := models.RiskLevel(titleCase(v))
		if candidate == "Medium" {
			candidate = models.RiskModerate
		}
		if candidate.IsValid() {
			out.RecoveryChance = candidate
		}
	}
	return out
}

// planItems accepts either an array or a single string for a plan tier,
// since models emit both shapes.
func planItems(m map[string]any, key string) ([]string, bool) {
	if v, ok := getStringSlice(m, key); ok {
		return v, true
	}
	if s, ok := getString(m, key); ok {
		return []string{s}, true
	}
	return nil, false
}

// severityToStage maps the Mild/Moderate/Severe qualifier the model sometimes
// uses onto the stage enum.
func severityToStage(s string) (models.DiseaseStage, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mild", "low":
		return models.StageEarly, true
	case "moderate", "medium":
		return models.StageModerate, true
	case "severe", "high":
		return models.StageAdvanced, true
	}
	return models.StageUnknown, false
}
