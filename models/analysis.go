package models

import (
	"time"
)

// PlantStatus discriminates the three crop-analysis outcomes.
type PlantStatus string

const (
	StatusHealthy  PlantStatus = "healthy_plant"
	StatusDiseased PlantStatus = "diseased_plant"
	StatusWeed     PlantStatus = "weed"
)

// DiseaseStage is the estimated progression stage of a detected disease.
type DiseaseStage string

const (
	StageEarly    DiseaseStage = "Early"
	StageModerate DiseaseStage = "Moderate"
	StageAdvanced DiseaseStage = "Advanced"
	StageUnknown  DiseaseStage = "Unknown"
)

// IsValid checks if the stage value is one of the allowed values.
func (s DiseaseStage) IsValid() bool {
	switch s {
	case StageEarly, StageModerate, StageAdvanced, StageUnknown:
		return true
	default:
		return false
	}
}

// RiskLevel grades spread risk and recovery chance.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// IsValid checks if the risk value is one of the allowed values.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	default:
		return false
	}
}

// NutrientLevel grades a single soil nutrient.
type NutrientLevel string

const (
	NutrientLow    NutrientLevel = "Low"
	NutrientMedium NutrientLevel = "Medium"
	NutrientHigh   NutrientLevel = "High"
)

// IsValid checks if the nutrient level is one of the allowed values.
func (n NutrientLevel) IsValid() bool {
	switch n {
	case NutrientLow, NutrientMedium, NutrientHigh:
		return true
	default:
		return false
	}
}

// FarmerContext carries optional per-request context supplied by the farmer.
// All fields may be empty; repeated requests for the same conversation merge
// newer non-empty fields over older ones.
type FarmerContext struct {
	Location           string   `json:"location,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	FarmingPractice    string   `json:"farming_practice,omitempty"`
	Symptoms           string   `json:"symptoms,omitempty"`
	AffectedPercent    float64  `json:"affected_percent,omitempty"`
	SymptomDuration    string   `json:"symptom_duration,omitempty"`
	PlantVariety       string   `json:"plant_variety,omitempty"`
	GrowthStage        string   `json:"growth_stage,omitempty"`
	RecentTreatments   []string `json:"recent_treatments,omitempty"`
	PreviousAnalysisID string   `json:"previous_analysis_id,omitempty"`
}

// Merge overlays non-empty fields from next onto the receiver and returns the
// combined context. Neither input is mutated.
func (c FarmerContext) Merge(next FarmerContext) FarmerContext {
	out := c
	if next.Location != "" {
		out.Location = next.Location
	}
	if next.Latitude != nil {
		out.Latitude = next.Latitude
	}
	if next.Longitude != nil {
		out.Longitude = next.Longitude
	}
	if next.FarmingPractice != "" {
		out.FarmingPractice = next.FarmingPractice
	}
	if next.Symptoms != "" {
		out.Symptoms = next.Symptoms
	}
	if next.AffectedPercent > 0 {
		out.AffectedPercent = next.AffectedPercent
	}
	if next.SymptomDuration != "" {
		out.SymptomDuration = next.SymptomDuration
	}
	if next.PlantVariety != "" {
		out.PlantVariety = next.PlantVariety
	}
	if next.GrowthStage != "" {
		out.GrowthStage = next.GrowthStage
	}
	if len(next.RecentTreatments) > 0 {
		out.RecentTreatments = next.RecentTreatments
	}
	if next.PreviousAnalysisID != "" {
		out.PreviousAnalysisID = next.PreviousAnalysisID
	}
	return out
}

// SeverityScore is a 1-10 composite severity with optional 0-10 sub-scores.
// A zero sub-score means the dimension could not be assessed.
type SeverityScore struct {
	Overall             int `json:"overall"`
	LeafDamage          int `json:"leaf_damage,omitempty"`
	StemDamage          int `json:"stem_damage,omitempty"`
	FruitDamage         int `json:"fruit_damage,omitempty"`
	RootDamage          int `json:"root_damage,omitempty"`
	SpreadRate          int `json:"spread_rate,omitempty"`
	EconomicImpact      int `json:"economic_impact,omitempty"`
	TreatmentDifficulty int `json:"treatment_difficulty,omitempty"`
}

// ImpactAssessment summarizes the expected consequences of a disease.
type ImpactAssessment struct {
	YieldImpact    string    `json:"yield_impact"`
	SpreadRisk     RiskLevel `json:"spread_risk"`
	RecoveryChance RiskLevel `json:"recovery_chance"`
}

// ActionPlan is the three-tier response to a detected disease.
type ActionPlan struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// TreatmentOptions partitions treatments by approach.
type TreatmentOptions struct {
	Organic            []string `json:"organic"`
	Chemical           []string `json:"chemical"`
	IPM                []string `json:"ipm"`
	CulturalBiological []string `json:"cultural_biological"`
}

// DiseaseAnalysis is the diseased-plant variant of a crop analysis.
type DiseaseAnalysis struct {
	Name               string           `json:"disease_name"`
	ConfidenceScore    float64          `json:"confidence_score"` // canonical 0-1
	Confidence         float64          `json:"confidence"`       // legacy 0-100 mirror
	SymptomAnalysis    string           `json:"symptom_analysis"`
	Stage              DiseaseStage     `json:"stage"`
	Impact             ImpactAssessment `json:"impact_assessment"`
	ActionPlan         ActionPlan       `json:"action_plan"`
	Treatments         TreatmentOptions `json:"treatment_options"`
	ResistantVarieties string           `json:"resistant_varieties,omitempty"`
	Severity           *SeverityScore   `json:"severity_score,omitempty"`
}

// WeedAnalysis is the weed variant of a crop analysis.
type WeedAnalysis struct {
	Name            string   `json:"weed_name"`
	ConfidenceScore float64  `json:"confidence_score"`
	Confidence      float64  `json:"confidence"`
	HarmfulEffects  []string `json:"harmful_effects"`
	ManualControl   []string `json:"manual_control"`
	OrganicControl  []string `json:"organic_control"`
	ChemicalControl []string `json:"chemical_control"`
}

// HealthyPlantResult is the healthy variant of a crop analysis.
type HealthyPlantResult struct {
	Message  string   `json:"message"`
	CareTips []string `json:"care_tips"`
}

// CropAnalysis is the enriched result returned to callers. Exactly one of
// Healthy, Disease, Weed is set, matching Status.
type CropAnalysis struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Model       string               `json:"model"`
	RawResponse string               `json:"raw_response,omitempty"`
	Status      PlantStatus          `json:"plant_status"`
	Healthy     *HealthyPlantResult  `json:"healthy,omitempty"`
	Disease     *DiseaseAnalysis     `json:"disease,omitempty"`
	Weed        *WeedAnalysis        `json:"weed,omitempty"`
	Progression *ProgressionTracking `json:"progression,omitempty"`
	// Context is the merged farmer context the analysis was produced with,
	// persisted so follow-up requests can build on it.
	Context *FarmerContext `json:"farmer_context,omitempty"`
}

// ProgressionTracking classifies condition change against a prior analysis of
// the same subject. Present only when a previous analysis id was supplied.
type ProgressionTracking struct {
	PreviousAnalysisID string `json:"previous_analysis_id"`
	Change             string `json:"change_since_last_analysis"` // improved|worsened|unchanged|unknown
	Rate               string `json:"progression_rate"`           // slow|steady|rapid|unknown
	ActionTimeframe    string `json:"recommended_action_timeframe"`
	Notes              string `json:"notes,omitempty"`
}

// NutrientAssessment is one per-nutrient entry in a soil analysis. Each entry
// carries its own confidence, independent of the overall confidence.
type NutrientAssessment struct {
	Name            string        `json:"name"`
	Level           NutrientLevel `json:"level"`
	ConfidenceScore float64       `json:"confidence_score"`
	Recommendation  string        `json:"recommendation,omitempty"`
}

// Soil analysis provenance values.
const (
	SoilSourceImage = "image"
	SoilSourceMap   = "map"
	SoilSourceFused = "fused"
)

// SoilAnalysisResult is a soil assessment from either the image pipeline or
// the geospatial soil map, or a fusion of both.
type SoilAnalysisResult struct {
	ID                     string               `json:"id"`
	Timestamp              time.Time            `json:"timestamp"`
	Model                  string               `json:"model,omitempty"`
	RawResponse            string               `json:"raw_response,omitempty"`
	SoilType               string               `json:"soil_type"`
	ConfidenceScore        float64              `json:"confidence_score"`
	Confidence             float64              `json:"confidence"`
	PHRange                string               `json:"ph_level"`
	Nutrients              []NutrientAssessment `json:"nutrients"`
	OrganicSolutions       []string             `json:"organic_solutions"`
	ChemicalSolutions      []string             `json:"chemical_solutions"`
	SuitableCrops          []string             `json:"suitable_crops"`
	Location               string               `json:"location,omitempty"`
	EstimatedOrganicMatter float64              `json:"estimated_organic_matter,omitempty"`
	ImageQualityScore      float64              `json:"image_quality_score,omitempty"`
	Source                 string               `json:"source,omitempty"` // image|map|fused
}

// GrowingConditions records the ideal vs actual inputs behind a yield
// estimate, for transparency in the response.
type GrowingConditions struct {
	IdealTempMin   float64 `json:"ideal_temp_min"`
	IdealTempMax   float64 `json:"ideal_temp_max"`
	ActualTemp     float64 `json:"actual_temp"`
	IdealRainMin   float64 `json:"ideal_rain_min"`
	IdealRainMax   float64 `json:"ideal_rain_max"`
	ActualRain     float64 `json:"actual_rain"`
	SoilFactor     float64 `json:"soil_factor"`
	DiseaseLossPct float64 `json:"disease_loss_pct,omitempty"`
}

// YieldPredictionResult is the output of the yield estimator.
type YieldPredictionResult struct {
	ID                 string             `json:"id"`
	Timestamp          time.Time          `json:"timestamp"`
	Crop               string             `json:"crop"`
	PredictedYield     float64            `json:"predicted_yield"`
	Unit               string             `json:"unit"`
	ConfidenceScore    float64            `json:"confidence_score"`
	Confidence         float64            `json:"confidence"`
	PotentialIncome    float64            `json:"potential_income"`
	Recommendations    []string           `json:"recommendations"`
	DiseaseLossPercent float64            `json:"disease_loss_percent,omitempty"`
	Conditions         *GrowingConditions `json:"conditions,omitempty"`
	Source             string             `json:"source,omitempty"` // model|local
}
