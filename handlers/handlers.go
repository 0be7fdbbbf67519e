// Package handlers exposes the analysis pipeline over HTTP.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"crop-analyze-pipeline/middleware"
	"crop-analyze-pipeline/models"
	"crop-analyze-pipeline/prediction"
	"crop-analyze-pipeline/service"
)

// maxImageBytes bounds uploaded image size.
const maxImageBytes = 8 << 20

// Handlers represents the HTTP handlers.
type Handlers struct {
	svc     *service.Service
	version string
}

// NewHandlers creates new HTTP handlers.
func NewHandlers(svc *service.Service, version string) *Handlers {
	return &Handlers{svc: svc, version: version}
}

// readImage pulls the uploaded image and optional farmer context out of a
// multipart request.
func readImage(c *gin.Context) ([]byte, *models.FarmerContext, bool) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an 'image' file field is required"})
		return nil, nil, false
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return nil, nil, false
	}
	if len(image) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is empty"})
		return nil, nil, false
	}
	if len(image) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 8MB limit"})
		return nil, nil, false
	}

	var fctx *models.FarmerContext
	if raw := c.PostForm("context"); raw != "" {
		fctx = &models.FarmerContext{}
		if err := json.Unmarshal([]byte(raw), fctx); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "context field is not valid JSON"})
			return nil, nil, false
		}
	}
	return image, fctx, true
}

// AnalyzeCrop handles POST /analyze.
func (h *Handlers) AnalyzeCrop(c *gin.Context) {
	image, fctx, ok := readImage(c)
	if !ok {
		return
	}

	result, err := h.svc.AnalyzeCrop(c.Request.Context(), middleware.Partner(c), image, fctx)
	if err != nil {
		log.WithError(err).Error("crop analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis service is unavailable, try again shortly"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeSoil handles POST /soil.
func (h *Handlers) AnalyzeSoil(c *gin.Context) {
	image, fctx, ok := readImage(c)
	if !ok {
		return
	}

	result, err := h.svc.AnalyzeSoil(c.Request.Context(), middleware.Partner(c), image, fctx)
	if err != nil {
		log.WithError(err).Error("soil analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis service is unavailable, try again shortly"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// PredictYield handles POST /predict.
func (h *Handlers) PredictYield(c *gin.Context) {
	var req prediction.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crop and a positive area_acres are required"})
		return
	}

	result := h.svc.PredictYield(c.Request.Context(), middleware.Partner(c), req)
	c.JSON(http.StatusOK, result)
}

// GetAnalysis handles GET /analyses/:id.
func (h *Handlers) GetAnalysis(c *gin.Context) {
	analysis, err := h.svc.GetAnalysis(c.Param("id"))
	if err != nil {
		log.WithError(err).Error("analysis lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// HealthCheck handles liveness requests.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "crop-analyze-pipeline",
	})
}

// Status reports per-dependency health.
func (h *Handlers) Status(c *gin.Context) {
	deps := h.svc.DependencyStatus(c.Request.Context())
	status := http.StatusOK
	if deps["database"] != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"service":      "crop-analyze-pipeline",
		"dependencies": deps,
	})
}

// Stats aggregates stored record counts.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("stats query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Version reports the build version.
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}
