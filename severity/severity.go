// Package severity derives a 1-10 composite severity score from the
// normalized textual analysis of a diseased plant. Scoring is a pure
// function of its input: the same analysis always produces the same score.
package severity

import (
	"strings"

	"crop-analyze-pipeline/models"
)

// organRule maps an organ keyword to its sub-score tiers. Tier scores are
// chosen so that text with an explicit qualifier ("severe", "moderate")
// lands on the matching tier, and a bare organ mention lands on the mild one.
type organRule struct {
	organ    string
	keywords []string
	severe   int
	moderate int
	mild     int
}

var organRules = []organRule{
	{organ: "leaf", keywords: []string{"leaf", "leaves", "foliage"}, severe: 8, moderate: 5, mild: 3},
	{organ: "stem", keywords: []string{"stem", "stalk", "cane"}, severe: 9, moderate: 6, mild: 4},
	{organ: "fruit", keywords: []string{"fruit", "pod", "grain", "boll"}, severe: 8, moderate: 5, mild: 3},
	{organ: "root", keywords: []string{"root", "wilt", "collar"}, severe: 9, moderate: 6, mild: 4},
}

// qualifierWindow is how many characters around an organ keyword are scanned
// for a severity qualifier.
const qualifierWindow = 60

// Score computes the composite severity for a disease analysis.
// The overall score is clamped to [1,10] and is monotonically non-decreasing
// with stage severity and with High spread/impact/low-recovery signals.
func Score(d *models.DiseaseAnalysis) models.SeverityScore {
	var s models.SeverityScore
	if d == nil {
		s.Overall = 5
		s.Overall = clamp(s.Overall)
		return s
	}

	// Stage baseline
	switch d.Stage {
	case models.StageEarly:
		s.Overall = 3
	case models.StageModerate:
		s.Overall = 6
	case models.StageAdvanced:
		s.Overall = 9
	default:
		s.Overall = 5
	}

	// Impact adjustments
	impact := strings.ToLower(d.Impact.YieldImpact)
	switch {
	case strings.Contains(impact, "high"):
		s.Overall += 2
		s.EconomicImpact = 8
	case strings.Contains(impact, "moderate") || strings.Contains(impact, "medium"):
		s.Overall++
		s.EconomicImpact = 5
	case strings.Contains(impact, "low"):
		s.EconomicImpact = 3
	}

	switch d.Impact.SpreadRisk {
	case models.RiskHigh:
		s.Overall++
		s.SpreadRate = 9
	case models.RiskModerate:
		s.SpreadRate = 6
	case models.RiskLow:
		s.SpreadRate = 3
	}

	switch d.Impact.RecoveryChance {
	case models.RiskLow:
		s.Overall++
		s.TreatmentDifficulty = 8
	case models.RiskHigh:
		s.Overall--
		s.TreatmentDifficulty = 4
	}

	// Organ damage mined from the symptom text
	text := strings.ToLower(d.SymptomAnalysis)
	for _, rule := range organRules {
		score := organScore(text, rule)
		switch rule.organ {
		case "leaf":
			s.LeafDamage = score
		case "stem":
			s.StemDamage = score
		case "fruit":
			s.FruitDamage = score
		case "root":
			s.RootDamage = score
		}
	}

	if s.StemDamage > 6 {
		s.Overall++
	}
	if s.RootDamage > 5 {
		s.Overall++
	}
	if s.FruitDamage > 6 && s.EconomicImpact < 8 {
		s.EconomicImpact = 8
	}

	s.Overall = clamp(s.Overall)
	return s
}

// organScore returns the tier score for an organ, or 0 when the organ is not
// mentioned at all.
func organScore(text string, rule organRule) int {
	idx := -1
	for _, kw := range rule.keywords {
		if i := strings.Index(text, kw); i >= 0 && (idx == -1 || i < idx) {
			idx = i
		}
	}
	if idx == -1 {
		return 0
	}

	lo := idx - qualifierWindow
	if lo < 0 {
		lo = 0
	}
	hi := idx + qualifierWindow
	if hi > len(text) {
		hi = len(text)
	}
	window := text[lo:hi]

	switch {
	case strings.Contains(window, "severe") || strings.Contains(window, "extensive") || strings.Contains(window, "heavy"):
		return rule.severe
	case strings.Contains(window, "moderate"):
		return rule.moderate
	default:
		return rule.mild
	}
}

func clamp(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
