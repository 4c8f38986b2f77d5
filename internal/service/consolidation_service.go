package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/repository"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/logger"
	"pcq_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ConsolidationService 为下游 consolidation 流程提供案件关联与"未关联案件"查询
type ConsolidationService struct {
	Repo *repository.AnswerRepository
	Now  func() time.Time
}

func NewConsolidationService(repo *repository.AnswerRepository) *ConsolidationService {
	return &ConsolidationService{Repo: repo, Now: time.Now}
}

// AttachCase 为记录设置 caseId。两个参数都做 HTML 转义（不拒绝），保证合法标点保留。
// 重复调用相同 caseId 结果一致。
func (s *ConsolidationService) AttachCase(ctx context.Context, pcqID, caseID string) (*model.AnswerRecord, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ConsolidationService.AttachCase")
	defer span.End()

	pcqID = sanitize(pcqID)
	caseID = sanitize(caseID)
	span.SetAttributes(attribute.String("pcq.id", pcqID))

	if pcqID == "" || caseID == "" {
		return nil, util.NewValidationError("AttachCase", pcqID, []string{"pcqId and caseId are required"}, nil)
	}

	var linked *model.AnswerRecord
	err := s.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
		matched, err := repo.UpdateCaseID(ctx, pcqID, caseID)
		if err != nil {
			return err
		}
		if matched == 0 {
			return util.NewNotFoundError("AttachCase", pcqID, util.ErrRecordNotFound)
		}
		linked, err = repo.FindByID(ctx, pcqID)
		return err
	})
	if err != nil {
		return nil, wrapFailure("AttachCase", pcqID, err)
	}

	logger.Log.Info("Case attached to PCQ record",
		zap.String("pcqId", pcqID),
		zap.String("caseId", caseID),
	)
	return linked, nil
}

// FindRecordsWithoutCase 返回 completedDate 在 (now-lowerBoundDays, now-upperBoundDays) 内、
// 未关联案件且未退出的记录。更早的记录视为放弃，交由保留期清理处理。
func (s *ConsolidationService) FindRecordsWithoutCase(ctx context.Context, lowerBoundDays int, upperBoundDays *int) ([]model.AnswerRecord, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ConsolidationService.FindRecordsWithoutCase")
	defer span.End()

	now := s.Now().UTC()
	lower := now.AddDate(0, 0, -lowerBoundDays)

	var upper *time.Time
	if upperBoundDays != nil {
		u := now.AddDate(0, 0, -*upperBoundDays)
		upper = &u
		if !lower.Before(u) {
			err := util.NewConfigurationError("FindRecordsWithoutCase",
				fmt.Errorf("%w: lower bound %d days, upper bound %d days", util.ErrInvalidWindow, lowerBoundDays, *upperBoundDays))
			logger.Log.Error("Invalid consolidation window", zap.Error(err))
			return nil, err
		}
	}

	records, err := s.Repo.FindWithoutCase(ctx, lower, upper)
	if err != nil {
		return nil, wrapFailure("FindRecordsWithoutCase", "", err)
	}

	span.SetAttributes(attribute.Int("pcq.records", len(records)))
	logger.Log.Info("Records without case found",
		zap.Int("count", len(records)),
		zap.Time("lowerBound", lower),
	)
	return records, nil
}

// FindRecordsByCaseID 查询已关联到 caseId 的所有记录
func (s *ConsolidationService) FindRecordsByCaseID(ctx context.Context, caseID string) ([]model.AnswerRecord, error) {
	caseID = sanitize(caseID)
	if caseID == "" {
		return nil, util.NewValidationError("FindRecordsByCaseID", "", []string{"caseId is required"}, nil)
	}
	records, err := s.Repo.FindByCaseID(ctx, caseID)
	if err != nil && !errors.Is(err, util.ErrRecordNotFound) {
		return nil, wrapFailure("FindRecordsByCaseID", "", err)
	}
	return records, nil
}

func sanitize(v string) string {
	return html.EscapeString(strings.TrimSpace(v))
}
