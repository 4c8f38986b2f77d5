package service

import (
	"context"
	"sync"
	"time"

	"pcq_backend/internal/config"
	"pcq_backend/internal/repository"
	"pcq_backend/pkg/logger"
	"pcq_backend/pkg/monitoring"
	"pcq_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	disposalLockKey = "pcq:disposer:lock"
	disposalLockTTL = 30 * time.Minute

	horizonWithCase = "with_case"
	horizonNoCase   = "no_case"
)

// RunLocker 跨实例互斥，nil 表示单实例部署不加锁
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DisposalReport 一次清理的结果
type DisposalReport struct {
	Skipped         bool
	DryRun          bool
	WithCaseCutoff  time.Time
	NoCaseCutoff    time.Time
	WithCase        []repository.DisposalCandidate
	NoCase          []repository.DisposalCandidate
	DeletedWithCase int64
	DeletedNoCase   int64
}

func (r *DisposalReport) CandidateCount() int {
	return len(r.WithCase) + len(r.NoCase)
}

// DisposalService 按两个保留期删除过期记录：已关联案件的按 KeepWithCaseDays，
// 未关联的按 KeepNoCaseDays。删除不可逆，候选记录无论是否 dry-run 都会先写审计日志。
type DisposalService struct {
	Repo   *repository.AnswerRepository
	Locker RunLocker
	Now    func() time.Time

	mu       sync.RWMutex
	settings config.DisposerConfig
}

func NewDisposalService(repo *repository.AnswerRepository, locker RunLocker, settings config.DisposerConfig) *DisposalService {
	return &DisposalService{
		Repo:     repo,
		Locker:   locker,
		Now:      time.Now,
		settings: settings,
	}
}

// UpdateSettings 配置热更新时调用
func (s *DisposalService) UpdateSettings(settings config.DisposerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	logger.Log.Info("Disposer settings reloaded",
		zap.Bool("enabled", settings.Enabled),
		zap.Bool("dryRun", settings.DryRun),
		zap.Int("keepWithCaseDays", settings.KeepWithCaseDays),
		zap.Int("keepNoCaseDays", settings.KeepNoCaseDays),
	)
}

func (s *DisposalService) Settings() config.DisposerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// DisposeExpired 执行一次清理。禁用时不做任何查询。
func (s *DisposalService) DisposeExpired(ctx context.Context) (*DisposalReport, error) {
	settings := s.Settings()
	if !settings.Enabled {
		logger.Log.Info("PCQ disposer is disabled, no records will be deleted")
		return &DisposalReport{Skipped: true}, nil
	}

	ctx, span := tracing.Tracer.Start(ctx, "DisposalService.DisposeExpired")
	defer span.End()

	if s.Locker != nil {
		acquired, err := s.Locker.Acquire(ctx, disposalLockKey, disposalLockTTL)
		if err != nil {
			logger.Log.Error("Failed to acquire disposer lock", zap.Error(err))
			return nil, wrapFailure("DisposeExpired", "", err)
		}
		if !acquired {
			logger.Log.Info("PCQ disposer already running on another instance, skipping")
			return &DisposalReport{Skipped: true}, nil
		}
		defer func() {
			if err := s.Locker.Release(context.Background(), disposalLockKey); err != nil {
				logger.Log.Warn("Failed to release disposer lock", zap.Error(err))
			}
		}()
	}

	now := s.Now().UTC()
	report := &DisposalReport{
		DryRun:         settings.DryRun,
		WithCaseCutoff: now.AddDate(0, 0, -settings.KeepWithCaseDays),
		NoCaseCutoff:   now.AddDate(0, 0, -settings.KeepNoCaseDays),
	}

	logger.Log.Info("PCQ disposer started",
		zap.Bool("dryRun", settings.DryRun),
		zap.Time("withCaseCutoff", report.WithCaseCutoff),
		zap.Time("noCaseCutoff", report.NoCaseCutoff),
	)

	var err error
	report.WithCase, err = s.Repo.FindExpiredWithCase(ctx, report.WithCaseCutoff)
	if err != nil {
		return nil, wrapFailure("DisposeExpired", "", err)
	}
	report.NoCase, err = s.Repo.FindExpiredWithoutCase(ctx, report.NoCaseCutoff)
	if err != nil {
		return nil, wrapFailure("DisposeExpired", "", err)
	}

	logCandidates(horizonWithCase, report.WithCase)
	logCandidates(horizonNoCase, report.NoCase)
	monitoring.DisposalCandidates.WithLabelValues(horizonWithCase).Set(float64(len(report.WithCase)))
	monitoring.DisposalCandidates.WithLabelValues(horizonNoCase).Set(float64(len(report.NoCase)))
	span.SetAttributes(attribute.Int("pcq.disposal.candidates", report.CandidateCount()))

	if settings.DryRun || report.CandidateCount() == 0 {
		logger.Log.Info("PCQ disposer finished without deleting",
			zap.Bool("dryRun", settings.DryRun),
			zap.Int("candidates", report.CandidateCount()),
		)
		return report, nil
	}

	err = s.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
		var txErr error
		report.DeletedWithCase, txErr = repo.DeleteExpiredWithCase(ctx, candidateIDs(report.WithCase), report.WithCaseCutoff)
		if txErr != nil {
			return txErr
		}
		report.DeletedNoCase, txErr = repo.DeleteExpiredWithoutCase(ctx, candidateIDs(report.NoCase), report.NoCaseCutoff)
		return txErr
	})
	if err != nil {
		return nil, wrapFailure("DisposeExpired", "", err)
	}

	monitoring.DisposedRecords.WithLabelValues(horizonWithCase).Add(float64(report.DeletedWithCase))
	monitoring.DisposedRecords.WithLabelValues(horizonNoCase).Add(float64(report.DeletedNoCase))
	logger.Log.Info("PCQ disposer finished",
		zap.Int64("deletedWithCase", report.DeletedWithCase),
		zap.Int64("deletedNoCase", report.DeletedNoCase),
	)
	return report, nil
}

func logCandidates(horizon string, candidates []repository.DisposalCandidate) {
	for _, c := range candidates {
		caseID := ""
		if c.CaseID != nil {
			caseID = *c.CaseID
		}
		logger.Log.Info("PCQ disposal candidate",
			zap.String("horizon", horizon),
			zap.String("pcqId", c.PcqID),
			zap.String("caseId", caseID),
			zap.Time("lastUpdatedTimestamp", c.LastUpdatedTimestamp),
		)
	}
}

func candidateIDs(candidates []repository.DisposalCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.PcqID)
	}
	return ids
}
