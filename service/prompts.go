package service

import (
	"fmt"
	"strings"

	"crop-analyze-pipeline/models"
)

// cropPrompt builds the vision prompt for a crop-health analysis, folding in
// whatever the farmer told us about the field.
func cropPrompt(fctx *models.FarmerContext) string {
	var b strings.Builder
	b.WriteString(`You are an expert agronomist. Examine the photo and classify the plant.
Respond with a single JSON object and nothing else.

Set "plant_status" to exactly one of "healthy_plant", "diseased_plant" or "weed".

For healthy_plant include: "message", "care_tips" (array), "confidence" (0-1).
For weed include: "weed_name", "confidence", "harmful_effects" (array),
"control_methods" {"manual", "organic", "chemical" arrays}.
For diseased_plant include: "disease_name", "confidence", "symptoms_analysis",
"disease_stage" ("Early"|"Moderate"|"Advanced"),
"impact_assessment" {"yield_impact", "spread_risk", "recovery_chance" each "Low"|"Moderate"|"High"},
"action_plan" {"immediate", "short_term", "long_term" arrays},
"treatment_options" {"organic", "chemical", "ipm", "cultural_biological" arrays},
"resistant_varieties".
`)

	if fctx == nil {
		return b.String()
	}

	var facts []string
	if fctx.Location != "" {
		facts = append(facts, fmt.Sprintf("location: %s", fctx.Location))
	}
	if fctx.PlantVariety != "" {
		facts = append(facts, fmt.Sprintf("variety: %s", fctx.PlantVariety))
	}
	if fctx.GrowthStage != "" {
		facts = append(facts, fmt.Sprintf("growth stage: %s", fctx.GrowthStage))
	}
	if fctx.Symptoms != "" {
		facts = append(facts, fmt.Sprintf("farmer observed: %s", fctx.Symptoms))
	}
	if fctx.AffectedPercent > 0 {
		facts = append(facts, fmt.Sprintf("about %.0f%% of plants affected", fctx.AffectedPercent))
	}
	if fctx.SymptomDuration != "" {
		facts = append(facts, fmt.Sprintf("symptoms present for %s", fctx.SymptomDuration))
	}
	if len(fctx.RecentTreatments) > 0 {
		facts = append(facts, fmt.Sprintf("recent treatments: %s", strings.Join(fctx.RecentTreatments, ", ")))
	}
	if fctx.FarmingPractice != "" {
		facts = append(facts, fmt.Sprintf("preferred practice: %s", fctx.FarmingPractice))
	}

	if len(facts) > 0 {
		b.WriteString("\nField context from the farmer:\n")
		for _, f := range facts {
			b.WriteString("- " + f + "\n")
		}
		b.WriteString("Tailor the advice to this context.\n")
	}
	return b.String()
}

// soilPrompt builds the vision prompt for a soil analysis.
func soilPrompt(fctx *models.FarmerContext) string {
	var b strings.Builder
	b.WriteString(`You are a soil scientist. Examine the soil in the photo.
Respond with a single JSON object and nothing else, with fields:
"soil_type", "confidence" (0-1), "ph_level" (range string like "6.0-7.0"),
"nutrients" (array of {"name", "level" ("Low"|"Medium"|"High"), "confidence", "recommendation"}),
"organic_solutions" (array), "chemical_solutions" (array),
"suitable_crops" (array), "estimated_organic_matter" (percent),
"image_quality_score" (0-1).
`)
	if fctx != nil && fctx.Location != "" {
		fmt.Fprintf(&b, "\nThe field is near: %s.\n", fctx.Location)
	}
	return b.String()
}
