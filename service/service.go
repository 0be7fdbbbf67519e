// Package service orchestrates the analysis pipeline: image in, enriched
// typed record out. Persistence, caching and event publishing are
// best-effort side channels; only inference failure fails a request.
package service

import (
	"context"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"crop-analyze-pipeline/cache"
	"crop-analyze-pipeline/config"
	"crop-analyze-pipeline/database"
	"crop-analyze-pipeline/gemini"
	"crop-analyze-pipeline/llm"
	"crop-analyze-pipeline/metrics"
	"crop-analyze-pipeline/models"
	"crop-analyze-pipeline/openai"
	"crop-analyze-pipeline/parser"
	"crop-analyze-pipeline/prediction"
	"crop-analyze-pipeline/progression"
	"crop-analyze-pipeline/rabbitmq"
	"crop-analyze-pipeline/severity"
	"crop-analyze-pipeline/soilfusion"
	"crop-analyze-pipeline/soilmap"
	"crop-analyze-pipeline/stubllm"
)

// eventPublisher is the slice of the AMQP publisher the service needs.
type eventPublisher interface {
	Publish(message interface{}) error
	IsConnected() bool
	Close() error
}

// Service wires the pipeline components together.
type Service struct {
	config    *config.Config
	db        *database.Database
	llmClient llm.Client
	soilMap   *soilmap.CachedService
	cache     *cache.Cache
	estimator *prediction.Estimator
	publisher eventPublisher
}

// NewService builds the pipeline from configuration. The broker is optional;
// a failed connect logs and the service runs without events.
func NewService(cfg *config.Config, db *database.Database, c *cache.Cache) *Service {
	var client llm.Client
	switch cfg.LLMProvider {
	case "stub":
		client = stubllm.NewClient()
	case "openai":
		client = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	default:
		client = gemini.NewClient(gemini.Options{
			APIKeys:         cfg.GeminiAPIKeys,
			Model:           cfg.GeminiModel,
			FallbackModel:   cfg.FallbackModel,
			MaxRetries:      cfg.MaxRetries,
			InitialDelay:    cfg.InitialDelay,
			AttemptTimeout:  cfg.AttemptTimeout,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	}
	log.Infof("analysis LLM provider=%s", client.SourceName())

	s := &Service{
		config:    cfg,
		db:        db,
		llmClient: client,
		soilMap:   soilmap.NewCachedService(soilmap.NewClient(), db.DB()),
		cache:     c,
		estimator: prediction.NewEstimator(client),
	}

	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.WithError(err).Warn("failed to initialize RabbitMQ publisher, continuing without events")
		} else {
			s.publisher = publisher
			metrics.RabbitMQConnected.Set(1)
		}
	}
	return s
}

// Start creates the tables this service owns.
func (s *Service) Start() error {
	if err := s.db.CreateTables(); err != nil {
		return err
	}
	if err := s.soilMap.CreateCacheTable(); err != nil {
		// Soil map caching is optional; lookups still work without it.
		log.WithError(err).Warn("failed to create soil_map_cache table")
	}
	return nil
}

// Stop releases broker and cache connections.
func (s *Service) Stop() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.WithError(err).Error("failed to close publisher")
		}
	}
	if err := s.cache.Close(); err != nil {
		log.WithError(err).Error("failed to close cache")
	}
}

// AnalyzeCrop runs the full crop-health pipeline on an image.
func (s *Service) AnalyzeCrop(ctx context.Context, partner string, image []byte, fctx *models.FarmerContext) (*models.CropAnalysis, error) {
	key := cache.ResultKey("analyze", partner, image)
	var cached models.CropAnalysis
	if s.cache.GetResult(ctx, key, &cached) {
		return &cached, nil
	}

	// A follow-up request starts from the context accumulated on the
	// previous analysis, with the incoming fields layered on top.
	var previousID string
	var previous *models.CropAnalysis
	if fctx != nil && fctx.PreviousAnalysisID != "" {
		previousID = fctx.PreviousAnalysisID
		var err error
		previous, err = s.db.GetAnalysis(previousID)
		if err != nil {
			log.WithError(err).WithField("id", previousID).Warn("failed to load previous analysis")
		}
		if previous != nil && previous.Context != nil {
			merged := previous.Context.Merge(*fctx)
			fctx = &merged
		}
	}

	raw, err := s.llmClient.AnalyzeImage(ctx, image, cropPrompt(fctx))
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("crop", "error").Inc()
		return nil, err
	}

	analysis := parser.ParseCropAnalysis(raw)
	analysis.ID = uuid.NewString()
	analysis.Timestamp = time.Now().UTC()
	analysis.Model = s.llmClient.SourceName()
	analysis.RawResponse = raw
	analysis.Context = fctx

	if analysis.Disease != nil {
		score := severity.Score(analysis.Disease)
		analysis.Disease.Severity = &score
	}

	analysis.Progression = progression.Track(previousID, previous, &analysis)

	if err := s.db.SaveCropAnalysis(ctx, partner, &analysis, previousID); err != nil {
		// Persistence never invalidates a computed result.
		log.WithError(err).WithField("id", analysis.ID).Error("failed to save crop analysis")
	}
	s.cache.SetResult(ctx, key, &analysis)
	s.publishEvent("crop_analysis", partner, &analysis)
	metrics.AnalysesTotal.WithLabelValues("crop", string(analysis.Status)).Inc()
	return &analysis, nil
}

// AnalyzeSoil runs the soil pipeline: image analysis, optional geospatial
// lookup, and per-field fusion of the two.
func (s *Service) AnalyzeSoil(ctx context.Context, partner string, image []byte, fctx *models.FarmerContext) (*models.SoilAnalysisResult, error) {
	key := cache.ResultKey("soil", partner, image)
	var cached models.SoilAnalysisResult
	if s.cache.GetResult(ctx, key, &cached) {
		return &cached, nil
	}

	raw, err := s.llmClient.AnalyzeImage(ctx, image, soilPrompt(fctx))
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("soil", "error").Inc()
		return nil, err
	}

	imageResult := parser.ParseSoilAnalysis(raw)
	imageResult.RawResponse = raw

	var mapResult *models.SoilAnalysisResult
	if fctx != nil && fctx.Latitude != nil && fctx.Longitude != nil {
		mapResult, err = s.soilMap.Lookup(ctx, *fctx.Latitude, *fctx.Longitude)
		if err != nil {
			// No-coverage is nil/nil; a real lookup error just skips fusion.
			log.WithError(err).Warn("soil map lookup failed, using image analysis only")
			mapResult = nil
		}
	}

	fused := soilfusion.Fuse(&imageResult, mapResult)
	fused.ID = uuid.NewString()
	fused.Timestamp = time.Now().UTC()
	fused.Model = s.llmClient.SourceName()

	if err := s.db.SaveSoilAnalysis(ctx, partner, fused); err != nil {
		log.WithError(err).WithField("id", fused.ID).Error("failed to save soil analysis")
	}
	s.cache.SetResult(ctx, key, fused)
	s.publishEvent("soil_analysis", partner, fused)
	metrics.AnalysesTotal.WithLabelValues("soil", fused.Source).Inc()
	return fused, nil
}

// PredictYield estimates yield for a field. The estimator degrades to a
// local calculation internally, so this never fails.
func (s *Service) PredictYield(ctx context.Context, partner string, req prediction.Request) *models.YieldPredictionResult {
	result := s.estimator.Estimate(ctx, req)

	if err := s.db.SaveYieldPrediction(ctx, partner, &result); err != nil {
		log.WithError(err).WithField("id", result.ID).Error("failed to save yield prediction")
	}
	s.publishEvent("yield_prediction", partner, &result)
	metrics.AnalysesTotal.WithLabelValues("yield", result.Source).Inc()
	return &result
}

// GetAnalysis exposes stored analyses for the history endpoint.
func (s *Service) GetAnalysis(id string) (*models.CropAnalysis, error) {
	return s.db.GetAnalysis(id)
}

// GetStats aggregates stored record counts.
func (s *Service) GetStats(ctx context.Context) (*database.Stats, error) {
	return s.db.GetStats(ctx)
}

// DependencyStatus reports the health of each collaborator for /status.
func (s *Service) DependencyStatus(ctx context.Context) map[string]string {
	deps := map[string]string{
		"database": "ok",
		"cache":    "ok",
		"broker":   "disabled",
	}
	if err := s.db.Ping(); err != nil {
		deps["database"] = "down"
	}
	if !s.cache.Healthy(ctx) {
		deps["cache"] = "down"
	}
	if s.publisher != nil {
		if s.publisher.IsConnected() {
			deps["broker"] = "ok"
		} else {
			deps["broker"] = "down"
		}
	}
	return deps
}

type analysisEvent struct {
	Type      string      `json:"type"`
	Partner   string      `json:"partner"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

func (s *Service) publishEvent(eventType, partner string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(analysisEvent{
		Type:      eventType,
		Partner:   partner,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		metrics.EventPublishErrorTotal.Inc()
		log.WithError(err).WithField("type", eventType).Error("failed to publish analysis event")
	}
}
