package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"recording-ingest/dto"
	"recording-ingest/service"
	"recording-ingest/storage"
	"recording-ingest/vapi"
)

type ServiceDependencies struct {
	Uploader  service.Uploader
	Assistant *vapi.Client
}

// UploadChunk accepts one raw media segment and writes it through the
// upload coordinator. Validation failures never reach the network.
func UploadChunk(deps ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: service.ErrInvalidIndex.Error()})
			return
		}

		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "failed to read request body"})
			return
		}

		mimeType := c.ContentType()
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		result, err := deps.Uploader.PutSegment(c.Request.Context(), sessionID, index, payload, mimeType)
		if err != nil {
			respondUploadError(c, err)
			return
		}

		c.JSON(http.StatusCreated, dto.UploadResponse{Key: result.Key, Url: result.URL})
	}
}

// UploadManifest finalizes a session by writing its terminal manifest.
func UploadManifest(deps ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.ManifestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}

		in := service.ManifestInput{
			SessionID:   c.Param("sessionId"),
			TotalChunks: req.TotalChunks,
			MimeType:    req.MimeType,
			StartedAt:   time.UnixMilli(req.StartedAt),
			EndedAt:     time.UnixMilli(req.EndedAt),
		}

		result, err := deps.Uploader.PutManifest(c.Request.Context(), in)
		if err != nil {
			respondUploadError(c, err)
			return
		}

		c.JSON(http.StatusCreated, dto.UploadResponse{Key: result.Key, Url: result.URL})
	}
}

// AssistantHealth proxies a liveness probe to the voice-AI backend.
func AssistantHealth(deps ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		health, err := deps.Assistant.CheckHealth(c.Request.Context())
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("assistant health check failed")
			status := http.StatusBadGateway
			if health == nil {
				health = &vapi.Health{}
			}
			c.JSON(status, dto.AssistantHealthResponse{
				Healthy:            health.Healthy,
				Assistants:         health.Assistants,
				AssistantReachable: health.AssistantReachable,
			})
			return
		}

		c.JSON(http.StatusOK, dto.AssistantHealthResponse{
			Healthy:            health.Healthy,
			Assistants:         health.Assistants,
			AssistantReachable: health.AssistantReachable,
		})
	}
}

// respondUploadError separates caller mistakes from credential problems
// and backend failures; they need different remediation.
func respondUploadError(c *gin.Context, err error) {
	var writeErr *service.StorageWriteError

	switch {
	case errors.Is(err, service.ErrInvalidSession), errors.Is(err, service.ErrInvalidIndex):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrCredentialResolution):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &writeErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}
