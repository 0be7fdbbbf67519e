// Package soilmap looks up soil characteristics for a coordinate from the
// public SoilGrids API and caches results in MySQL on a coordinate grid.
// No coverage for a coordinate is a valid outcome, reported as a nil result.
package soilmap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"crop-analyze-pipeline/models"
)

const (
	// SoilGridsBaseURL is the public ISRIC SoilGrids REST endpoint.
	SoilGridsBaseURL = "https://rest.isric.org/soilgrids/v2.0"
	// Rate limit: SoilGrids asks for at most 5 requests per second.
	minRequestInterval = 200 * time.Millisecond
)

// Client handles SoilGrids API interactions with rate limiting.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	lastRequest   time.Time
	rateLimitLock sync.Mutex
}

// NewClient creates a SoilGrids client against the public endpoint.
func NewClient() *Client {
	return NewClientWithBaseURL(SoilGridsBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// classificationResponse is the SoilGrids WRB classification payload.
type classificationResponse struct {
	WRBClassName string `json:"wrb_class_name"`
}

// propertiesResponse is the SoilGrids numeric-properties payload, reduced to
// the layers this service consumes.
type propertiesResponse struct {
	Properties struct {
		Layers []propertyLayer `json:"layers"`
	} `json:"properties"`
}

type propertyLayer struct {
	Name        string `json:"name"`
	UnitMeasure struct {
		DFactor float64 `json:"d_factor"`
	} `json:"unit_measure"`
	Depths []struct {
		Label  string `json:"label"`
		Values struct {
			Mean *float64 `json:"mean"`
		} `json:"values"`
	} `json:"depths"`
}

// wrbToLocal maps WRB reference soil groups onto the soil-type vocabulary the
// knowledge base understands.
var wrbToLocal = map[string]string{
	"Fluvisols":  "Alluvial Soil",
	"Vertisols":  "Black Soil",
	"Nitisols":   "Red Soil",
	"Acrisols":   "Red Soil",
	"Ferralsols": "Laterite Soil",
	"Plinthosols": "Laterite Soil",
	"Arenosols":  "Sandy Soil",
	"Solonchaks": "Saline Soil",
	"Solonetz":   "Saline Soil",
	"Histosols":  "Peaty Soil",
	"Luvisols":   "Loamy Soil",
	"Cambisols":  "Loamy Soil",
	"Lixisols":   "Red Soil",
}

// enforceRateLimit spaces requests out per the SoilGrids usage policy.
func (c *Client) enforceRateLimit() {
	c.rateLimitLock.Lock()
	defer c.rateLimitLock.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// Query fetches the soil assessment for a coordinate. A nil result with a
// nil error means the coordinate has no soil-map coverage (open water,
// glaciers, outside the dataset).
func (c *Client) Query(ctx context.Context, lat, lon float64) (*models.SoilAnalysisResult, error) {
	class, err := c.classify(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if class == "" {
		return nil, nil
	}

	soilType, known := wrbToLocal[class]
	if !known {
		soilType = class
	}

	result := &models.SoilAnalysisResult{
		SoilType:        soilType,
		ConfidenceScore: 0.8,
		Confidence:      80,
		Location:        fmt.Sprintf("%.4f, %.4f", lat, lon),
		Source:          models.SoilSourceMap,
	}
	if !known {
		// Unmapped WRB class: keep the raw name but trust it less.
		result.ConfidenceScore = 0.6
		result.Confidence = 60
	}

	// Numeric properties are best-effort enrichment; classification alone
	// is still a usable result.
	if props, err := c.properties(ctx, lat, lon); err == nil {
		applyProperties(result, props)
	}
	return result, nil
}

func (c *Client) classify(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("number_classes", "1")

	var resp classificationResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/classification/query?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return "", err
	}
	return resp.WRBClassName, nil
}

func (c *Client) properties(ctx context.Context, lat, lon float64) (*propertiesResponse, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	for _, p := range []string{"phh2o", "nitrogen", "soc"} {
		params.Add("property", p)
	}
	params.Set("depth", "0-5cm")
	params.Set("value", "mean")

	var resp propertiesResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/properties/query?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	c.enforceRateLimit()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create soilgrids request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("soilgrids request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read soilgrids response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("soilgrids returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode soilgrids response: %w", err)
	}
	return nil
}

// applyProperties fills pH, nitrogen level and organic matter from the
// topsoil layer means. Missing layers or null means are skipped.
func applyProperties(result *models.SoilAnalysisResult, props *propertiesResponse) {
	for _, layer := range props.Properties.Layers {
		mean, ok := layerMean(layer)
		if !ok {
			continue
		}
		switch layer.Name {
		case "phh2o":
			// Stored as pH*10.
			ph := mean
			if layer.UnitMeasure.DFactor > 0 {
				ph = mean / layer.UnitMeasure.DFactor
			}
			result.PHRange = fmt.Sprintf("%.1f-%.1f", ph-0.3, ph+0.3)
		case "nitrogen":
			// cg/kg in the 0-5cm layer.
			n := mean
			if layer.UnitMeasure.DFactor > 0 {
				n = mean / layer.UnitMeasure.DFactor
			}
			result.Nutrients = append(result.Nutrients, models.NutrientAssessment{
				Name:            "Nitrogen",
				Level:           nitrogenLevel(n),
				ConfidenceScore: 0.75,
			})
		case "soc":
			// Soil organic carbon dg/kg; organic matter is roughly
			// carbon * 1.72, reported as a percentage.
			soc := mean
			if layer.UnitMeasure.DFactor > 0 {
				soc = mean / layer.UnitMeasure.DFactor
			}
			result.EstimatedOrganicMatter = soc * 1.72 / 10
		}
	}
}

func layerMean(layer propertyLayer) (float64, bool) {
	for _, d := range layer.Depths {
		if d.Values.Mean != nil {
			return *d.Values.Mean, true
		}
	}
	return 0, false
}

// nitrogenLevel buckets total nitrogen (g/kg) into the knowledge-base scale.
func nitrogenLevel(n float64) models.NutrientLevel {
	switch {
	case n < 1.0:
		return models.NutrientLow
	case n < 2.5:
		return models.NutrientMedium
	}
	return models.NutrientHigh
}
