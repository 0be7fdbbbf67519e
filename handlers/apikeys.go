package handlers

import (
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"crop-analyze-pipeline/apikeys"
)

// KeyHandlers exposes the master-key protected partner credential admin API.
type KeyHandlers struct {
	keys *apikeys.Manager
}

func NewKeyHandlers(keys *apikeys.Manager) *KeyHandlers {
	return &KeyHandlers{keys: keys}
}

type createKeyRequest struct {
	Partner    string `json:"partner" binding:"required"`
	DailyLimit int    `json:"daily_limit"`
}

// Create handles POST /admin/keys.
func (h *KeyHandlers) Create(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partner is required"})
		return
	}

	key, err := h.keys.Issue(c.Request.Context(), req.Partner, req.DailyLimit)
	if err != nil {
		if errors.Is(err, apikeys.ErrPartnerExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "partner already has a key"})
			return
		}
		log.WithError(err).Error("key creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create key"})
		return
	}
	c.JSON(http.StatusCreated, key)
}

// List handles GET /admin/keys.
func (h *KeyHandlers) List(c *gin.Context) {
	keys, err := h.keys.List(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("key listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

type updateKeyRequest struct {
	IsActive   *bool `json:"is_active"`
	DailyLimit *int  `json:"daily_limit"`
}

// Update handles PUT /admin/keys/:partner.
func (h *KeyHandlers) Update(c *gin.Context) {
	var req updateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}

	key, err := h.keys.Update(c.Request.Context(), c.Param("partner"), req.IsActive, req.DailyLimit)
	if err != nil {
		if errors.Is(err, apikeys.ErrInvalidKey) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown partner"})
			return
		}
		log.WithError(err).Error("key update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update key"})
		return
	}
	c.JSON(http.StatusOK, key)
}

// Regenerate handles POST /admin/keys/:partner/regenerate.
func (h *KeyHandlers) Regenerate(c *gin.Context) {
	key, err := h.keys.Regenerate(c.Request.Context(), c.Param("partner"))
	if err != nil {
		if errors.Is(err, apikeys.ErrInvalidKey) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown partner"})
			return
		}
		log.WithError(err).Error("key regeneration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate key"})
		return
	}
	c.JSON(http.StatusOK, key)
}

// Delete handles DELETE /admin/keys/:partner.
func (h *KeyHandlers) Delete(c *gin.Context) {
	if err := h.keys.Delete(c.Request.Context(), c.Param("partner")); err != nil {
		if errors.Is(err, apikeys.ErrInvalidKey) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown partner"})
			return
		}
		log.WithError(err).Error("key deletion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("partner")})
}
