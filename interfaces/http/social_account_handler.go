package http

import (
	"errors"
	"net/http"
	"time"

	"brandhub/domain/dto"
	"brandhub/domain/model"
	"brandhub/infrastructure/logger"
	"brandhub/usecase"

	"github.com/gin-gonic/gin"
)

type ISocialAccountHandler interface {
	List(c *gin.Context)
	Connect(c *gin.Context)
	Disconnect(c *gin.Context)
}

type SocialAccountHandler struct {
	accountUsecase usecase.ISocialAccountUsecase
}

func NewSocialAccountHandler(accountUsecase usecase.ISocialAccountUsecase) ISocialAccountHandler {
	return &SocialAccountHandler{accountUsecase: accountUsecase}
}

func (h *SocialAccountHandler) List(c *gin.Context) {
	accounts, err := h.accountUsecase.List(c.Request.Context(), c.GetString("brand_id"))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed listing social accounts")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
		return
	}
	if accounts == nil {
		accounts = []*model.SocialAccount{}
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *SocialAccountHandler) Connect(c *gin.Context) {
	var req dto.ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: ErrorUnmarshal})
		return
	}
	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}

	tokens := &model.OAuthTokens{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken, Scope: req.Scope}
	if req.ExpiresIn > 0 {
		exp := time.Now().UTC().Add(time.Duration(req.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &exp
	}

	acc, err := h.accountUsecase.Connect(c.Request.Context(), c.GetString("brand_id"), platform, tokens, req.PlatformAccountID)
	switch {
	case errors.Is(err, usecase.ErrInvalidTokens):
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	case errors.Is(err, usecase.ErrProfileUnavailable):
		c.JSON(http.StatusBadGateway, dto.Res{ResponseCode: "502", ResponseMessage: err.Error()})
		return
	case err != nil:
		logger.GetLogger().WithField("error", err).Error("failed connecting social account")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": acc})
}

func (h *SocialAccountHandler) Disconnect(c *gin.Context) {
	err := h.accountUsecase.Disconnect(c.Request.Context(), c.GetString("brand_id"), c.Param("accountId"))
	switch {
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
		return
	case err != nil:
		logger.GetLogger().WithField("error", err).Error("failed disconnecting social account")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
