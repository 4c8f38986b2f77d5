package controller

import (
	"errors"
	"net/http"

	"pcq_backend/internal/service"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenController struct {
	Storage *service.StorageService
}

func NewTokenController(storage *service.StorageService) *TokenController {
	return &TokenController{Storage: storage}
}

// @Summary 获取扫描件上传地址
// @Description 为批量扫描服务签发预签名的 PUT 地址
// @Tags Token
// @Produce json
// @Security ServiceAuth
// @Param object query string true "对象名"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /pcq/backend/token/bulkscan [get]
func (c *TokenController) BulkScanToken(ctx *gin.Context) {
	token, err := c.Storage.IssueBulkScanUploadToken(ctx.Request.Context(), ctx.Query("object"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStorageNotConfigured):
			util.Error(ctx, http.StatusServiceUnavailable, err.Error())
		case util.IsKind(err, util.KindValidation):
			util.BadRequest(ctx, err.Error())
		default:
			logger.Log.Error("Failed to issue bulk scan token", zap.Error(err))
			util.InternalServerError(ctx)
		}
		return
	}
	util.Success(ctx, token)
}
