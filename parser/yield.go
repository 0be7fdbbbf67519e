package parser

// YieldEstimate is the normalized shape of a model-provided yield estimate.
// HasYield reports whether the model produced a usable number; the estimator
// falls back to its local calculation when it did not.
type YieldEstimate struct {
	Yield           float64
	HasYield        bool
	Unit            string
	ConfidenceScore float64
	Recommendations []string
}

// ParseYieldEstimate normalizes raw model output for the yield domain.
// Never fails; an unusable payload simply has HasYield == false.
func ParseYieldEstimate(raw string) YieldEstimate {
	out := YieldEstimate{
		Unit:            "tons",
		ConfidenceScore: defaultConfidence,
	}

	obj, ok := parseObject(raw)
	if !ok {
		return out
	}

	if f, ok := getFloat(obj, "predicted_yield", "yield", "estimated_yield"); ok && f >= 0 {
		out.Yield = f
		out.HasYield = true
	}
	if u, ok := getString(obj, "unit", "yield_unit"); ok {
		out.Unit = u
	}
	out.ConfidenceScore = confidenceFrom(obj, defaultConfidence, "confidence_score", "confidence")
	if recs, ok := getStringSlice(obj, "recommendations", "suggestions"); ok {
		out.Recommendations = recs
	}

	return out
}
