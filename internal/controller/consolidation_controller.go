package controller

import (
	"pcq_backend/internal/config"
	"pcq_backend/internal/service"
	"pcq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ConsolidationController struct {
	Service *service.ConsolidationService
	Config  *config.ConsolidationConfig
}

func NewConsolidationController(svc *service.ConsolidationService, cfg *config.ConsolidationConfig) *ConsolidationController {
	return &ConsolidationController{Service: svc, Config: cfg}
}

// @Summary 为问卷记录关联案件
// @Tags Consolidation
// @Produce json
// @Security ServiceAuth
// @Param pcqId path string true "PCQ ID"
// @Param caseId query string true "案件 ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /pcq/backend/consolidation/addCaseForPCQ/{pcqId} [put]
func (c *ConsolidationController) AddCaseForPcq(ctx *gin.Context) {
	rec, err := c.Service.AttachCase(ctx.Request.Context(), ctx.Param("pcqId"), ctx.Query("caseId"))
	if err != nil {
		// 无匹配记录按原接口约定返回 400
		if util.IsKind(err, util.KindNotFound) || util.IsKind(err, util.KindValidation) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// @Summary 查询未关联案件的问卷记录
// @Tags Consolidation
// @Produce json
// @Security ServiceAuth
// @Param lowerBoundDays query int false "下限天数，默认取配置"
// @Param upperBoundDays query int false "上限天数，默认取配置"
// @Success 200 {object} util.Response
// @Router /pcq/backend/consolidation/pcqRecordWithoutCase [get]
func (c *ConsolidationController) RecordsWithoutCase(ctx *gin.Context) {
	lower := c.Config.LowerBoundDays
	if v, err := util.OptionalPositiveInt(ctx.Query("lowerBoundDays")); err != nil {
		util.BadRequest(ctx, "lowerBoundDays: "+err.Error())
		return
	} else if v != nil {
		lower = *v
	}

	upper := c.Config.UpperBound()
	if v, err := util.OptionalPositiveInt(ctx.Query("upperBoundDays")); err != nil {
		util.BadRequest(ctx, "upperBoundDays: "+err.Error())
		return
	} else if v != nil {
		upper = v
	}

	records, err := c.Service.FindRecordsWithoutCase(ctx.Request.Context(), lower, upper)
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"pcqRecord": records, "total": len(records)})
}

// @Summary 查询已关联某案件的问卷记录
// @Tags Consolidation
// @Produce json
// @Security ServiceAuth
// @Param caseId path string true "案件 ID"
// @Success 200 {object} util.Response
// @Router /pcq/backend/consolidation/pcqRecordForCase/{caseId} [get]
func (c *ConsolidationController) RecordsForCase(ctx *gin.Context) {
	records, err := c.Service.FindRecordsByCaseID(ctx.Request.Context(), ctx.Param("caseId"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"pcqRecord": records, "total": len(records)})
}
