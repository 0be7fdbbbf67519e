// Package prediction estimates crop yield for a field by combining the
// static knowledge base with a model-provided numeric estimate. The model
// output is sanity-capped against a locally computed plausible maximum, and
// a model failure degrades to a purely local calculation instead of an error.
package prediction

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"crop-analyze-pipeline/knowledge"
	"crop-analyze-pipeline/llm"
	"crop-analyze-pipeline/models"
	"crop-analyze-pipeline/parser"
)

// Request carries the field parameters a yield estimate is computed from.
// Disease is optional; when set, the knowledge base's loss range for it
// lowers both the estimate and the confidence.
type Request struct {
	Crop         string  `json:"crop" binding:"required"`
	AreaAcres    float64 `json:"area_acres" binding:"required,gt=0"`
	SoilType     string  `json:"soil_type"`
	RainfallMM   float64 `json:"rainfall_mm"`
	TemperatureC float64 `json:"temperature_c"`
	Disease      string  `json:"disease,omitempty"`
}

// Estimator computes yield predictions. A nil model client is allowed and
// forces the local calculation path.
type Estimator struct {
	model llm.Client
}

func NewEstimator(model llm.Client) *Estimator {
	return &Estimator{model: model}
}

// modelCapFactor bounds how far above the local plausible maximum a model
// estimate is allowed to go.
const modelCapFactor = 1.5

// Estimate computes a yield prediction for the request. It never returns an
// error: when the model call fails the estimate falls back to the midpoint
// of the crop's known yield range.
func (e *Estimator) Estimate(ctx context.Context, req Request) models.YieldPredictionResult {
	crop, cropKnown := knowledge.Crop(req.Crop)
	soil, _ := knowledge.Soil(req.SoilType)

	var lossPct float64
	if req.Disease != "" {
		d, _ := knowledge.Disease(req.Disease)
		lossPct = d.MeanLossPct()
	}

	conditions := &models.GrowingConditions{
		IdealTempMin:   crop.TempMin,
		IdealTempMax:   crop.TempMax,
		ActualTemp:     req.TemperatureC,
		IdealRainMin:   crop.RainfallMin,
		IdealRainMax:   crop.RainfallMax,
		ActualRain:     req.RainfallMM,
		SoilFactor:     soil.Productivity,
		DiseaseLossPct: lossPct,
	}

	confidence := e.confidence(req, crop, soil, lossPct)
	localMax := crop.YieldMax * req.AreaAcres * soil.Productivity

	result := models.YieldPredictionResult{
		ID:                 uuid.NewString(),
		Timestamp:          time.Now().UTC(),
		Crop:               req.Crop,
		Unit:               "tons",
		ConfidenceScore:    confidence / 100,
		Confidence:         confidence,
		DiseaseLossPercent: lossPct,
		Conditions:         conditions,
	}

	est, ok := e.modelEstimate(ctx, req, crop, lossPct)
	if ok {
		yield := est.Yield
		if cap := modelCapFactor * localMax; yield > cap {
			log.WithFields(log.Fields{
				"crop":     req.Crop,
				"model":    yield,
				"capped":   cap,
				"area":     req.AreaAcres,
				"soilType": req.SoilType,
			}).Warn("model yield estimate above plausible maximum, capping")
			yield = cap
		}
		result.PredictedYield = round2(yield)
		result.Source = "model"
		result.Recommendations = est.Recommendations
	} else {
		result.PredictedYield = round2(e.localEstimate(req, crop, soil, lossPct))
		result.Source = "local"
	}

	if len(result.Recommendations) == 0 {
		result.Recommendations = localRecommendations(req, crop, cropKnown, lossPct)
	}
	result.PotentialIncome = round2(result.PredictedYield * crop.PricePerTon)
	return result
}

// confidence starts at 85 and is penalized for deviation from the crop's
// ideal growing window, weighted by soil productivity and disease pressure.
// The result is clamped to [20,95].
func (e *Estimator) confidence(req Request, crop knowledge.CropData, soil knowledge.SoilData, lossPct float64) float64 {
	conf := 85.0

	tempDev := rangeDeviation(req.TemperatureC, crop.TempMin, crop.TempMax)
	conf -= math.Min(15, tempDev*2)

	rainDev := rangeDeviation(req.RainfallMM, crop.RainfallMin, crop.RainfallMax)
	conf -= math.Min(15, rainDev/50)

	conf *= soil.Productivity
	conf -= math.Min(20, lossPct*0.5)

	return math.Min(95, math.Max(20, math.Round(conf)))
}

// localEstimate is the model-free path: midpoint of the crop's known yield
// range scaled by area, soil productivity and expected disease loss.
func (e *Estimator) localEstimate(req Request, crop knowledge.CropData, soil knowledge.SoilData, lossPct float64) float64 {
	mid := (crop.YieldMin + crop.YieldMax) / 2
	return mid * req.AreaAcres * soil.Productivity * (1 - lossPct/100)
}

func (e *Estimator) modelEstimate(ctx context.Context, req Request, crop knowledge.CropData, lossPct float64) (parser.YieldEstimate, bool) {
	if e.model == nil {
		return parser.YieldEstimate{}, false
	}
	raw, err := e.model.GenerateText(ctx, yieldPrompt(req, crop, lossPct))
	if err != nil {
		log.WithError(err).WithField("crop", req.Crop).Warn("yield model call failed, using local estimate")
		return parser.YieldEstimate{}, false
	}
	est := parser.ParseYieldEstimate(raw)
	if !est.HasYield {
		log.WithField("crop", req.Crop).Warn("yield model returned no usable number, using local estimate")
		return parser.YieldEstimate{}, false
	}
	return est, true
}

func yieldPrompt(req Request, crop knowledge.CropData, lossPct float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate the harvest yield for %.1f acres of %s.\n", req.AreaAcres, req.Crop)
	fmt.Fprintf(&b, "Soil type: %s. Seasonal rainfall: %.0f mm. Average temperature: %.1f C.\n",
		orUnknown(req.SoilType), req.RainfallMM, req.TemperatureC)
	fmt.Fprintf(&b, "Typical yield for this crop is %.1f to %.1f tons per acre.\n", crop.YieldMin, crop.YieldMax)
	if req.Disease != "" {
		fmt.Fprintf(&b, "The crop is affected by %s with an expected loss around %.0f%%.\n", req.Disease, lossPct)
	}
	b.WriteString("Respond with a single JSON object: {\"yield\": <total tons, number>, \"unit\": \"tons\", \"confidence\": <0-100>, \"recommendations\": [<up to 4 short strings>]}")
	return b.String()
}

func localRecommendations(req Request, crop knowledge.CropData, cropKnown bool, lossPct float64) []string {
	recs := make([]string, 0, 4)
	if req.TemperatureC > crop.TempMax {
		recs = append(recs, "Provide shade or adjust the sowing window; temperatures are above the ideal range")
	}
	if req.TemperatureC > 0 && req.TemperatureC < crop.TempMin {
		recs = append(recs, "Delay sowing until temperatures reach the crop's ideal range")
	}
	if req.RainfallMM > 0 && req.RainfallMM < crop.RainfallMin {
		recs = append(recs, "Plan supplemental irrigation; expected rainfall is below the crop's needs")
	}
	if req.RainfallMM > crop.RainfallMax {
		recs = append(recs, "Improve field drainage; expected rainfall exceeds the crop's tolerance")
	}
	if lossPct > 0 {
		recs = append(recs, "Treat the identified disease promptly to limit yield loss")
	}
	if len(recs) == 0 && cropKnown {
		recs = append(recs, "Conditions look suitable; follow the standard nutrient schedule for this crop")
	}
	if !cropKnown {
		recs = append(recs, "Crop not in the local reference tables; consult a local agronomist to validate this estimate")
	}
	return recs
}

// rangeDeviation returns how far v lies outside [lo,hi], 0 when inside.
func rangeDeviation(v, lo, hi float64) float64 {
	switch {
	case v <= 0:
		return 0
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
