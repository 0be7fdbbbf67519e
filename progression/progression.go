// Package progression compares a fresh crop analysis against a previously
// stored one and classifies how the condition has changed. Tracking only
// happens when the caller supplies the id of a prior analysis; without one
// the whole feature is skipped and the analysis carries no progression block.
package progression

import (
	"fmt"

	"crop-analyze-pipeline/models"
)

// Track classifies the change between the previous analysis and the current
// one. It returns nil when previousID is empty. When the previous analysis
// could not be resolved (previous is nil) it returns an "unknown" record
// rather than failing the whole pipeline.
func Track(previousID string, previous, current *models.CropAnalysis) *models.ProgressionTracking {
	if previousID == "" {
		return nil
	}

	tr := &models.ProgressionTracking{
		PreviousAnalysisID: previousID,
		Change:             "unknown",
		Rate:               "unknown",
		ActionTimeframe:    "Re-examine the crop within 3-5 days",
	}

	if previous == nil || current == nil {
		tr.Notes = "previous analysis unavailable for comparison"
		return tr
	}

	prevSev := severityOf(previous)
	curSev := severityOf(current)
	delta := curSev - prevSev

	// A one-point move is within normal scoring jitter.
	switch {
	case delta < -1:
		tr.Change = "improved"
	case delta > 1:
		tr.Change = "worsened"
	default:
		tr.Change = "unchanged"
	}

	abs := delta
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > 3:
		tr.Rate = "rapid"
	case abs > 1:
		tr.Rate = "steady"
	default:
		tr.Rate = "slow"
	}

	tr.ActionTimeframe = timeframe(tr.Change, tr.Rate, curSev)
	tr.Notes = fmt.Sprintf("severity moved from %d to %d since the last analysis", prevSev, curSev)
	return tr
}

// severityOf maps any analysis variant onto the shared 1-10 scale so that
// transitions between variants (for example diseased to healthy) compare
// sensibly.
func severityOf(a *models.CropAnalysis) int {
	switch a.Status {
	case models.StatusHealthy:
		return 1
	case models.StatusWeed:
		return 3
	case models.StatusDiseased:
		if a.Disease != nil && a.Disease.Severity != nil && a.Disease.Severity.Overall > 0 {
			return a.Disease.Severity.Overall
		}
		return 5
	}
	return 5
}

func timeframe(change, rate string, severity int) string {
	switch {
	case change == "worsened" && rate == "rapid":
		return "Act within 24 hours"
	case change == "worsened":
		return "Act within 2-3 days"
	case change == "unchanged" && severity >= 6:
		return "Treat within this week and re-examine in 5 days"
	case change == "improved":
		return "Continue current treatment and re-examine in 7 days"
	}
	return "Re-examine the crop within 7 days"
}
