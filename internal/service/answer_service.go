package service

import (
	"context"
	"errors"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/repository"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/logger"
	"pcq_backend/pkg/monitoring"
	"pcq_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SubmitOutcome 一次被接受的提交的结果
type SubmitOutcome string

const (
	OutcomeCreated         SubmitOutcome = "created"
	OutcomeUpdated         SubmitOutcome = "updated"
	OutcomeStale           SubmitOutcome = "stale"
	OutcomeOptedOut        SubmitOutcome = "opted_out"
	OutcomeAlreadyOptedOut SubmitOutcome = "already_opted_out"
)

type SubmitResult struct {
	PcqID                string        `json:"pcqId"`
	Outcome              SubmitOutcome `json:"outcome"`
	LastUpdatedTimestamp time.Time     `json:"lastUpdatedTimestamp"`
}

type AnswerService struct {
	Repo      *repository.AnswerRepository
	Validator *SubmissionValidator
}

func NewAnswerService(repo *repository.AnswerRepository, validator *SubmissionValidator) *AnswerService {
	return &AnswerService{Repo: repo, Validator: validator}
}

// SubmitAnswers 校验并落库一次问卷提交。同一 pcqId 的并发提交由数据库行锁串行化，
// 最终以 completedDate 更晚的一次为准。
func (s *AnswerService) SubmitAnswers(ctx context.Context, body []byte) (*SubmitResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AnswerService.SubmitAnswers")
	defer span.End()

	req, err := s.Validator.Validate(body)
	if err != nil {
		logger.Log.Info("Submission rejected by validation", zap.Error(err))
		monitoring.SubmissionCounter.WithLabelValues(util.KindValidation.String()).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("pcq.id", req.PcqID))

	if req.OptOut {
		return s.ProcessOptOut(ctx, req.PcqID, req.CompletedAt)
	}

	var result *SubmitResult
	err = s.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
		var txErr error
		result, txErr = s.reconcile(ctx, repo, req)
		return txErr
	})
	if err != nil {
		err = wrapFailure("SubmitAnswers", req.PcqID, err)
		monitoring.SubmissionCounter.WithLabelValues(util.KindOf(err).String()).Inc()
		return nil, err
	}

	logger.Log.Info("Submission processed",
		zap.String("pcqId", result.PcqID),
		zap.String("outcome", string(result.Outcome)),
		zap.Time("lastUpdatedTimestamp", result.LastUpdatedTimestamp),
	)
	monitoring.SubmissionCounter.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

func (s *AnswerService) reconcile(ctx context.Context, repo *repository.AnswerRepository, req *model.PcqAnswerRequest) (*SubmitResult, error) {
	if req.DcnNumber != nil && *req.DcnNumber != "" {
		holder, err := repo.FindByDcnNumber(ctx, *req.DcnNumber)
		switch {
		case err == nil && holder.PcqID != req.PcqID:
			return nil, util.NewConflictError("SubmitAnswers", req.PcqID, util.ErrDcnExists)
		case err != nil && !errors.Is(err, util.ErrRecordNotFound):
			return nil, err
		}
	}

	existing, err := repo.FindByIDForUpdate(ctx, req.PcqID)
	if errors.Is(err, util.ErrRecordNotFound) {
		return s.insertOrReconcile(ctx, repo, req)
	}
	if err != nil {
		return nil, err
	}
	return s.applyIfNewer(ctx, repo, existing, req)
}

// insertOrReconcile 首次写入。没有行可锁时并发的首次提交可能同时走到这里，
// 后插入的一方遇到唯一约束冲突后重新读取已提交的行并按 completedDate 比较。
func (s *AnswerService) insertOrReconcile(ctx context.Context, repo *repository.AnswerRepository, req *model.PcqAnswerRequest) (*SubmitResult, error) {
	rec := req.ToRecord()
	err := repo.Create(ctx, rec)
	if err == nil {
		return &SubmitResult{PcqID: rec.PcqID, Outcome: OutcomeCreated, LastUpdatedTimestamp: rec.LastUpdatedTimestamp}, nil
	}
	if !errors.Is(err, util.ErrDuplicateRecord) {
		return nil, err
	}

	existing, findErr := repo.FindByIDForUpdate(ctx, req.PcqID)
	if errors.Is(findErr, util.ErrRecordNotFound) {
		// pcqId 不存在，冲突来自 dcn_number 唯一索引
		return nil, util.NewConflictError("SubmitAnswers", req.PcqID, util.ErrDcnExists)
	}
	if findErr != nil {
		return nil, findErr
	}
	logger.Log.Info("Concurrent first submission detected, reconciling",
		zap.String("pcqId", req.PcqID),
		zap.Time("completedDate", req.CompletedAt),
	)
	return s.applyIfNewer(ctx, repo, existing, req)
}

// applyIfNewer 严格大于才更新：相等视为过期提交
func (s *AnswerService) applyIfNewer(ctx context.Context, repo *repository.AnswerRepository, existing *model.AnswerRecord, req *model.PcqAnswerRequest) (*SubmitResult, error) {
	if !req.CompletedAt.After(existing.LastUpdatedTimestamp) {
		logger.Log.Info("Stale submission not applied",
			zap.String("pcqId", existing.PcqID),
			zap.Time("completedDate", req.CompletedAt),
			zap.Time("lastUpdatedTimestamp", existing.LastUpdatedTimestamp),
		)
		return &SubmitResult{PcqID: existing.PcqID, Outcome: OutcomeStale, LastUpdatedTimestamp: existing.LastUpdatedTimestamp}, nil
	}

	if req.PcqAnswers != nil {
		existing.Answers = *req.PcqAnswers
	} else {
		existing.Answers = model.Answers{}
	}
	existing.VersionNumber = req.VersionNo
	existing.LastUpdatedTimestamp = req.CompletedAt
	if err := repo.Save(ctx, existing); err != nil {
		return nil, err
	}
	return &SubmitResult{PcqID: existing.PcqID, Outcome: OutcomeUpdated, LastUpdatedTimestamp: existing.LastUpdatedTimestamp}, nil
}

// ProcessOptOut 退出问卷：记录必须已存在；已退出的记录重复退出为幂等成功。
// lastUpdatedTimestamp 只会前进，不会因为较早的 completedDate 回退。
func (s *AnswerService) ProcessOptOut(ctx context.Context, pcqID string, completedDate time.Time) (*SubmitResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AnswerService.ProcessOptOut")
	defer span.End()
	span.SetAttributes(attribute.String("pcq.id", pcqID))

	completedDate = completedDate.UTC().Truncate(timestampPrecision)
	var result *SubmitResult
	err := s.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
		existing, err := repo.FindByIDForUpdate(ctx, pcqID)
		if errors.Is(err, util.ErrRecordNotFound) {
			return util.NewNotFoundError("ProcessOptOut", pcqID, util.ErrOptOutNoRecord)
		}
		if err != nil {
			return err
		}

		if existing.OptOut {
			result = &SubmitResult{PcqID: pcqID, Outcome: OutcomeAlreadyOptedOut, LastUpdatedTimestamp: existing.LastUpdatedTimestamp}
			return nil
		}

		lastUpdated := existing.LastUpdatedTimestamp
		if completedDate.After(lastUpdated) {
			lastUpdated = completedDate
		}
		if err := repo.MarkOptOut(ctx, pcqID, lastUpdated); err != nil {
			return err
		}
		result = &SubmitResult{PcqID: pcqID, Outcome: OutcomeOptedOut, LastUpdatedTimestamp: lastUpdated}
		return nil
	})
	if err != nil {
		err = wrapFailure("ProcessOptOut", pcqID, err)
		monitoring.SubmissionCounter.WithLabelValues(util.KindOf(err).String()).Inc()
		return nil, err
	}

	logger.Log.Info("Opt out processed",
		zap.String("pcqId", pcqID),
		zap.String("outcome", string(result.Outcome)),
	)
	monitoring.SubmissionCounter.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// GetAnswer 按 pcqId 读取记录
func (s *AnswerService) GetAnswer(ctx context.Context, pcqID string) (*model.AnswerRecord, error) {
	rec, err := s.Repo.FindByID(ctx, pcqID)
	if errors.Is(err, util.ErrRecordNotFound) {
		return nil, util.NewNotFoundError("GetAnswer", pcqID, err)
	}
	if err != nil {
		return nil, wrapFailure("GetAnswer", pcqID, err)
	}
	return rec, nil
}

// DeleteAnswer 管理员删除
func (s *AnswerService) DeleteAnswer(ctx context.Context, pcqID string) error {
	deleted, err := s.Repo.Delete(ctx, pcqID)
	if err != nil {
		return wrapFailure("DeleteAnswer", pcqID, err)
	}
	if deleted == 0 {
		return util.NewNotFoundError("DeleteAnswer", pcqID, util.ErrRecordNotFound)
	}
	logger.Log.Warn("PCQ record deleted by administrator", zap.String("pcqId", pcqID))
	return nil
}

// wrapFailure 已分类的错误原样返回，其余包装为 Fatal 并记录日志
func wrapFailure(op, pcqID string, err error) error {
	var appErr *util.AppError
	if errors.As(err, &appErr) {
		logger.Log.Info("PCQ operation rejected",
			zap.String("op", op),
			zap.String("pcqId", pcqID),
			zap.String("kind", appErr.Kind.String()),
			zap.Error(err),
		)
		return err
	}

	logger.Log.Error("PCQ operation failed",
		zap.String("op", op),
		zap.String("pcqId", pcqID),
		zap.Error(err),
	)
	return util.NewFatalError(op, pcqID, err)
}
