package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/logger"
	"brandhub/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

// IPublishEventReader lists past publish events of a content item, newest first.
type IPublishEventReader interface {
	ListByContent(ctx context.Context, contentID string, limit int64) ([]dto.PublishEvent, error)
}

type IPublishHandler interface {
	Publish(c *gin.Context)
	GetResults(c *gin.Context)
	GetEvents(c *gin.Context)
	PublishScheduled(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase   usecase.IPublishUsecase
	scheduledUsecase usecase.IScheduledPublishUsecase
	events           IPublishEventReader
}

// NewPublishHandler accepts a nil events reader when no audit log is configured.
func NewPublishHandler(publishUsecase usecase.IPublishUsecase, scheduledUsecase usecase.IScheduledPublishUsecase, events IPublishEventReader) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase, scheduledUsecase: scheduledUsecase, events: events}
}

func (h *PublishHandler) Publish(c *gin.Context) {
	brandID := c.GetString("brand_id")
	contentID := c.Param("contentId")

	var req dto.PublishRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: ErrorUnmarshal})
			return
		}
	}
	platforms := make([]model.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		p, err := model.ParsePlatform(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
			return
		}
		platforms = append(platforms, p)
	}

	results, err := h.publishUsecase.PublishForBrand(c.Request.Context(), brandID, contentID, platforms)
	if err != nil {
		respondPublishError(c, brandID, contentID, err)
		return
	}

	succeeded := dto.CountSucceeded(results)
	c.JSON(http.StatusOK, dto.PublishResponse{
		ContentID: contentID,
		Status:    usecase.AggregateStatus(results),
		Succeeded: succeeded,
		Failed:    len(results) - succeeded,
		Results:   results,
	})
}

func respondPublishError(c *gin.Context, brandID, contentID string, err error) {
	switch {
	case errors.Is(err, usecase.ErrContentNotFound):
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
	case errors.Is(err, usecase.ErrPublishInProgress):
		c.JSON(http.StatusConflict, dto.Res{ResponseCode: "409", ResponseMessage: err.Error()})
	case errors.Is(err, usecase.ErrNoPlatforms):
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
	default:
		logger.GetLogger().WithFields(logrus.Fields{
			"brand_id":   brandID,
			"content_id": contentID,
			"error":      err,
		}).Error("publish request failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
	}
}

func (h *PublishHandler) GetResults(c *gin.Context) {
	brandID := c.GetString("brand_id")
	contentID := c.Param("contentId")

	rows, err := h.publishUsecase.GetResults(c.Request.Context(), brandID, contentID)
	if err != nil {
		respondPublishError(c, brandID, contentID, err)
		return
	}
	if rows == nil {
		rows = []*model.PublishResult{}
	}
	c.JSON(http.StatusOK, gin.H{"content_id": contentID, "results": rows})
}

// GetEvents returns audit log entries; brand ownership is checked through GetResults.
func (h *PublishHandler) GetEvents(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotImplemented, dto.Res{ResponseCode: "501", ResponseMessage: "Publish audit log not configured"})
		return
	}
	brandID := c.GetString("brand_id")
	contentID := c.Param("contentId")
	if _, err := h.publishUsecase.GetResults(c.Request.Context(), brandID, contentID); err != nil {
		respondPublishError(c, brandID, contentID, err)
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 20
	}
	events, err := h.events.ListByContent(c.Request.Context(), contentID, limit)
	if err != nil {
		logger.GetLogger().WithFields(logrus.Fields{"content_id": contentID, "error": err}).Error("failed reading publish events")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
		return
	}
	if events == nil {
		events = []dto.PublishEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"content_id": contentID, "events": events})
}

func (h *PublishHandler) PublishScheduled(c *gin.Context) {
	brandID := c.GetString("brand_id")
	n, err := h.scheduledUsecase.PublishScheduled(c.Request.Context(), brandID)
	if err != nil {
		logger.GetLogger().WithFields(logrus.Fields{"brand_id": brandID, "error": err}).Error("scheduled publish request failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": n})
}
