package controller

import (
	"net/http"

	"pcq_backend/internal/service"
	"pcq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PcqController struct {
	Service *service.AnswerService
}

func NewPcqController(svc *service.AnswerService) *PcqController {
	return &PcqController{Service: svc}
}

// @Summary 提交问卷答案
// @Description 新建、更新或退出问卷；completedDate 不晚于已存储时间的更新返回 202 且不落库
// @Tags PCQ
// @Accept json
// @Produce json
// @Security ServiceAuth
// @Param body body model.PcqAnswerRequest true "问卷答案"
// @Success 200 {object} util.Response
// @Success 201 {object} util.Response
// @Success 202 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /pcq/backend/submitAnswers [post]
func (c *PcqController) SubmitAnswers(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitAnswers(ctx.Request.Context(), body)
	if err != nil {
		// 退出不存在的记录属于客户端错误
		if util.IsKind(err, util.KindNotFound) {
			util.Error(ctx, http.StatusBadRequest, err.Error())
			return
		}
		util.RespondAppError(ctx, err)
		return
	}

	switch result.Outcome {
	case service.OutcomeCreated:
		util.Created(ctx, result)
	case service.OutcomeStale:
		util.Accepted(ctx, "stale submission, record not updated", result)
	default:
		util.Success(ctx, result)
	}
}

// @Summary 获取问卷记录
// @Tags PCQ
// @Produce json
// @Security ServiceAuth
// @Param pcqId path string true "PCQ ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /pcq/backend/getAnswer/{pcqId} [get]
func (c *PcqController) GetAnswer(ctx *gin.Context) {
	rec, err := c.Service.GetAnswer(ctx.Request.Context(), ctx.Param("pcqId"))
	if err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// @Summary 删除问卷记录
// @Tags PCQ
// @Produce json
// @Security ServiceAuth
// @Param pcqId path string true "PCQ ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /pcq/backend/deletePcqRecord/{pcqId} [delete]
func (c *PcqController) DeleteAnswer(ctx *gin.Context) {
	pcqID := ctx.Param("pcqId")
	if err := c.Service.DeleteAnswer(ctx.Request.Context(), pcqID); err != nil {
		util.RespondAppError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": pcqID})
}
