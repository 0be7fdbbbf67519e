// Package knowledge holds the static agronomic reference tables used by the
// analysis pipeline: ideal growing conditions per crop, soil productivity
// factors and disease yield-loss ranges. The tables are read-only; lookups
// for unknown keys return conservative defaults instead of failing.
package knowledge

import "strings"

// CropData describes the ideal growing conditions and economics of a crop.
// Temperatures are degrees Celsius, rainfall is mm per season, yield is tons
// per acre and price is INR per ton.
type CropData struct {
	TempMin     float64
	TempMax     float64
	RainfallMin float64
	RainfallMax float64
	YieldMin    float64
	YieldMax    float64
	PricePerTon float64
}

// SoilData carries the relative productivity weight of a soil type, with 1.0
// meaning fully productive for a typical crop.
type SoilData struct {
	Productivity float64
}

// DiseaseData is the expected yield-loss percentage range a disease causes
// when untreated.
type DiseaseData struct {
	LossMinPct float64
	LossMaxPct float64
}

var crops = map[string]CropData{
	"rice":      {TempMin: 20, TempMax: 35, RainfallMin: 1000, RainfallMax: 2000, YieldMin: 3, YieldMax: 7, PricePerTon: 20000},
	"wheat":     {TempMin: 12, TempMax: 25, RainfallMin: 450, RainfallMax: 650, YieldMin: 2, YieldMax: 5, PricePerTon: 22000},
	"maize":     {TempMin: 18, TempMax: 32, RainfallMin: 500, RainfallMax: 800, YieldMin: 2.5, YieldMax: 6, PricePerTon: 18000},
	"cotton":    {TempMin: 21, TempMax: 35, RainfallMin: 500, RainfallMax: 1000, YieldMin: 0.8, YieldMax: 2, PricePerTon: 60000},
	"sugarcane": {TempMin: 21, TempMax: 35, RainfallMin: 1100, RainfallMax: 1800, YieldMin: 25, YieldMax: 45, PricePerTon: 3000},
	"potato":    {TempMin: 15, TempMax: 25, RainfallMin: 500, RainfallMax: 700, YieldMin: 8, YieldMax: 14, PricePerTon: 12000},
	"tomato":    {TempMin: 18, TempMax: 29, RainfallMin: 600, RainfallMax: 1250, YieldMin: 10, YieldMax: 20, PricePerTon: 15000},
	"soybean":   {TempMin: 20, TempMax: 30, RainfallMin: 450, RainfallMax: 700, YieldMin: 1, YieldMax: 2.5, PricePerTon: 40000},
	"groundnut": {TempMin: 22, TempMax: 33, RainfallMin: 500, RainfallMax: 1250, YieldMin: 0.8, YieldMax: 1.8, PricePerTon: 55000},
	"mustard":   {TempMin: 10, TempMax: 25, RainfallMin: 250, RainfallMax: 400, YieldMin: 0.6, YieldMax: 1.2, PricePerTon: 50000},
}

// defaultCrop is used for crops missing from the table. Wide tolerances keep
// deviation penalties small when we genuinely do not know the crop.
var defaultCrop = CropData{
	TempMin: 15, TempMax: 32, RainfallMin: 400, RainfallMax: 1500,
	YieldMin: 1.5, YieldMax: 4, PricePerTon: 25000,
}

var soils = map[string]SoilData{
	"alluvial soil": {Productivity: 1.0},
	"black soil":    {Productivity: 0.95},
	"red soil":      {Productivity: 0.8},
	"laterite soil": {Productivity: 0.7},
	"clay soil":     {Productivity: 0.75},
	"loamy soil":    {Productivity: 0.95},
	"sandy soil":    {Productivity: 0.6},
	"sandy loam":    {Productivity: 0.85},
	"silt soil":     {Productivity: 0.85},
	"peaty soil":    {Productivity: 0.7},
	"saline soil":   {Productivity: 0.5},
}

var defaultSoil = SoilData{Productivity: 0.8}

var diseases = map[string]DiseaseData{
	"leaf spot":          {LossMinPct: 10, LossMaxPct: 30},
	"leaf blight":        {LossMinPct: 15, LossMaxPct: 40},
	"blast":              {LossMinPct: 20, LossMaxPct: 50},
	"rust":               {LossMinPct: 10, LossMaxPct: 40},
	"powdery mildew":     {LossMinPct: 10, LossMaxPct: 25},
	"downy mildew":       {LossMinPct: 15, LossMaxPct: 35},
	"bacterial wilt":     {LossMinPct: 30, LossMaxPct: 80},
	"fusarium wilt":      {LossMinPct: 25, LossMaxPct: 60},
	"root rot":           {LossMinPct: 20, LossMaxPct: 50},
	"mosaic virus":       {LossMinPct: 20, LossMaxPct: 70},
	"anthracnose":        {LossMinPct: 15, LossMaxPct: 40},
	"early blight":       {LossMinPct: 15, LossMaxPct: 40},
	"late blight":        {LossMinPct: 30, LossMaxPct: 70},
	"smut":               {LossMinPct: 10, LossMaxPct: 30},
	"brown spot":         {LossMinPct: 10, LossMaxPct: 45},
	"sheath blight":      {LossMinPct: 10, LossMaxPct: 30},
	"bacterial leaf spot": {LossMinPct: 10, LossMaxPct: 25},
}

var defaultDisease = DiseaseData{LossMinPct: 10, LossMaxPct: 30}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Crop looks up the reference data for a crop name. Unknown crops fall back
// to a generic profile; the second return reports whether the crop is known.
func Crop(name string) (CropData, bool) {
	c, ok := crops[normalize(name)]
	if !ok {
		return defaultCrop, false
	}
	return c, true
}

// Soil looks up the productivity factor for a soil type.
func Soil(name string) (SoilData, bool) {
	s, ok := soils[normalize(name)]
	if !ok {
		return defaultSoil, false
	}
	return s, true
}

// Disease looks up the yield-loss range for a disease name. Lookup is
// tolerant of qualifiers around the known name ("severe leaf spot on rice").
func Disease(name string) (DiseaseData, bool) {
	key := normalize(name)
	if d, ok := diseases[key]; ok {
		return d, true
	}
	for known, d := range diseases {
		if strings.Contains(key, known) {
			return d, true
		}
	}
	return defaultDisease, false
}

// MeanLossPct returns the midpoint of a disease's loss range.
func (d DiseaseData) MeanLossPct() float64 {
	return (d.LossMinPct + d.LossMaxPct) / 2
}
