package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/security"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnswerRepository 问卷记录存储。party_id 的加解密在这里完成，调用方只接触明文。
type AnswerRepository struct {
	DB        *gorm.DB
	Encryptor *security.FieldEncryptor
}

func NewAnswerRepository(db *gorm.DB, encryptor *security.FieldEncryptor) *AnswerRepository {
	return &AnswerRepository{DB: db, Encryptor: encryptor}
}

// DisposalCandidate 保留期清理候选记录，只取审计日志需要的列
type DisposalCandidate struct {
	PcqID                string
	CaseID               *string
	LastUpdatedTimestamp time.Time
}

// Transaction 在同一个数据库事务中执行 fn，fn 内使用传入的 repo
func (r *AnswerRepository) Transaction(ctx context.Context, fn func(repo *AnswerRepository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AnswerRepository{DB: tx, Encryptor: r.Encryptor})
	})
}

func (r *AnswerRepository) FindByID(ctx context.Context, pcqID string) (*model.AnswerRecord, error) {
	var rec model.AnswerRecord
	if err := r.DB.WithContext(ctx).First(&rec, "pcq_id = ?", pcqID).Error; err != nil {
		return nil, notFound(err)
	}
	return r.decode(&rec)
}

// FindByIDForUpdate 读取并锁定记录（SQLite 不支持行锁时退化为普通读取）
func (r *AnswerRepository) FindByIDForUpdate(ctx context.Context, pcqID string) (*model.AnswerRecord, error) {
	var rec model.AnswerRecord
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "pcq_id = ?", pcqID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return r.decode(&rec)
}

func (r *AnswerRepository) FindByDcnNumber(ctx context.Context, dcn string) (*model.AnswerRecord, error) {
	var rec model.AnswerRecord
	if err := r.DB.WithContext(ctx).First(&rec, "dcn_number = ?", dcn).Error; err != nil {
		return nil, notFound(err)
	}
	return r.decode(&rec)
}

// Create 插入新记录。主键或 dcn_number 唯一索引冲突时返回 util.ErrDuplicateRecord；
// 插入放在保存点内执行，冲突后外层事务仍可继续使用（PostgreSQL 会中止整个事务）。
func (r *AnswerRepository) Create(ctx context.Context, rec *model.AnswerRecord) error {
	row, err := r.encode(rec)
	if err != nil {
		return err
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert %s: %w", rec.PcqID, util.ErrDuplicateRecord)
	}
	return err
}

// Save 覆盖整行，用于已加锁记录的答案更新
func (r *AnswerRepository) Save(ctx context.Context, rec *model.AnswerRecord) error {
	row, err := r.encode(rec)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Save(row).Error
}

func (r *AnswerRepository) MarkOptOut(ctx context.Context, pcqID string, lastUpdated time.Time) error {
	return r.DB.WithContext(ctx).
		Model(&model.AnswerRecord{}).
		Where("pcq_id = ?", pcqID).
		Updates(map[string]interface{}{
			"opt_out":                true,
			"last_updated_timestamp": lastUpdated.UTC(),
		}).Error
}

// UpdateCaseID 返回匹配的行数（MySQL 需在 DSN 中开启 clientFoundRows）
func (r *AnswerRepository) UpdateCaseID(ctx context.Context, pcqID, caseID string) (int64, error) {
	result := r.DB.WithContext(ctx).
		Model(&model.AnswerRecord{}).
		Where("pcq_id = ?", pcqID).
		Update("case_id", caseID)
	return result.RowsAffected, result.Error
}

// FindWithoutCase 查询未关联案件且未退出的记录，completed_date 处于 (lower, upper) 开区间
func (r *AnswerRepository) FindWithoutCase(ctx context.Context, lower time.Time, upper *time.Time) ([]model.AnswerRecord, error) {
	query := r.DB.WithContext(ctx).
		Where("case_id IS NULL AND opt_out = ?", false).
		Where("completed_date > ?", lower.UTC())
	if upper != nil {
		query = query.Where("completed_date < ?", upper.UTC())
	}

	var rows []model.AnswerRecord
	if err := query.Order("completed_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.decodeAll(rows)
}

func (r *AnswerRepository) FindByCaseID(ctx context.Context, caseID string) ([]model.AnswerRecord, error) {
	var rows []model.AnswerRecord
	if err := r.DB.WithContext(ctx).Where("case_id = ?", caseID).Order("completed_date asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.decodeAll(rows)
}

func (r *AnswerRepository) FindExpiredWithCase(ctx context.Context, cutoff time.Time) ([]DisposalCandidate, error) {
	return r.findExpired(ctx, "case_id IS NOT NULL", cutoff)
}

func (r *AnswerRepository) FindExpiredWithoutCase(ctx context.Context, cutoff time.Time) ([]DisposalCandidate, error) {
	return r.findExpired(ctx, "case_id IS NULL", cutoff)
}

func (r *AnswerRepository) findExpired(ctx context.Context, caseCond string, cutoff time.Time) ([]DisposalCandidate, error) {
	var rows []DisposalCandidate
	err := r.DB.WithContext(ctx).
		Model(&model.AnswerRecord{}).
		Select("pcq_id, case_id, last_updated_timestamp").
		Where(caseCond).
		Where("last_updated_timestamp < ?", cutoff.UTC()).
		Order("last_updated_timestamp asc").
		Scan(&rows).Error
	return rows, err
}

// DeleteExpiredWithCase 只删除传入的 id，且再次校验保留期条件，避免误删在此期间被更新的记录
func (r *AnswerRepository) DeleteExpiredWithCase(ctx context.Context, pcqIDs []string, cutoff time.Time) (int64, error) {
	return r.deleteExpired(ctx, "case_id IS NOT NULL", pcqIDs, cutoff)
}

func (r *AnswerRepository) DeleteExpiredWithoutCase(ctx context.Context, pcqIDs []string, cutoff time.Time) (int64, error) {
	return r.deleteExpired(ctx, "case_id IS NULL", pcqIDs, cutoff)
}

func (r *AnswerRepository) deleteExpired(ctx context.Context, caseCond string, pcqIDs []string, cutoff time.Time) (int64, error) {
	if len(pcqIDs) == 0 {
		return 0, nil
	}
	result := r.DB.WithContext(ctx).
		Where("pcq_id IN ?", pcqIDs).
		Where(caseCond).
		Where("last_updated_timestamp < ?", cutoff.UTC()).
		Delete(&model.AnswerRecord{})
	return result.RowsAffected, result.Error
}

// Delete 管理员删除单条记录
func (r *AnswerRepository) Delete(ctx context.Context, pcqID string) (int64, error) {
	result := r.DB.WithContext(ctx).Delete(&model.AnswerRecord{}, "pcq_id = ?", pcqID)
	return result.RowsAffected, result.Error
}

func (r *AnswerRepository) encode(rec *model.AnswerRecord) (*model.AnswerRecord, error) {
	row := *rec
	row.CompletedDate = rec.CompletedDate.UTC()
	row.LastUpdatedTimestamp = rec.LastUpdatedTimestamp.UTC()

	partyID, err := r.Encryptor.Encode(rec.PartyID)
	if err != nil {
		return nil, fmt.Errorf("encode party_id for %s: %w", rec.PcqID, err)
	}
	row.PartyID = partyID
	return &row, nil
}

func (r *AnswerRepository) decode(row *model.AnswerRecord) (*model.AnswerRecord, error) {
	partyID, err := r.Encryptor.Decode(row.PartyID)
	if err != nil {
		return nil, fmt.Errorf("decode party_id for %s: %w", row.PcqID, err)
	}
	row.PartyID = partyID
	row.CompletedDate = row.CompletedDate.UTC()
	row.LastUpdatedTimestamp = row.LastUpdatedTimestamp.UTC()
	return row, nil
}

func (r *AnswerRepository) decodeAll(rows []model.AnswerRecord) ([]model.AnswerRecord, error) {
	for i := range rows {
		if _, err := r.decode(&rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrRecordNotFound
	}
	return err
}
