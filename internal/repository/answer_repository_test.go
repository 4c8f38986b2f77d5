package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/util"
	"pcq_backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pcq.db")), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.AnswerRecord{}))
	return db
}

func newRecord(pcqID string, lastUpdated time.Time, caseID *string) *model.AnswerRecord {
	return &model.AnswerRecord{
		PcqID:                pcqID,
		CaseID:               caseID,
		PartyID:              "party-" + pcqID,
		Channel:              model.ChannelPaper,
		ServiceID:            "SSCS",
		Actor:                "APPELLANT",
		VersionNumber:        1,
		CompletedDate:        lastUpdated,
		LastUpdatedTimestamp: lastUpdated,
	}
}

func rawPartyID(t *testing.T, db *gorm.DB, pcqID string) string {
	t.Helper()
	var stored string
	require.NoError(t, db.Raw("SELECT party_id FROM protected_characteristics WHERE pcq_id = ?", pcqID).Scan(&stored).Error)
	return stored
}

func TestAnswerRepository_PartyIDEncryptedAtRest(t *testing.T) {
	db := openTestDB(t)
	encryptor, err := security.NewFieldEncryptor("repository-test-key-0001")
	require.NoError(t, err)
	repo := NewAnswerRepository(db, encryptor)
	ctx := context.Background()

	rec := newRecord("pcq-1", t0, nil)
	require.NoError(t, repo.Create(ctx, rec))
	assert.Equal(t, "party-pcq-1", rec.PartyID, "caller's record is not mutated")

	stored := rawPartyID(t, db, "pcq-1")
	assert.NotEmpty(t, stored)
	assert.NotEqual(t, "party-pcq-1", stored)

	found, err := repo.FindByID(ctx, "pcq-1")
	require.NoError(t, err)
	assert.Equal(t, "party-pcq-1", found.PartyID)

	// 其他密钥无法解密
	other, err := security.NewFieldEncryptor("another-deployment-key")
	require.NoError(t, err)
	_, err = NewAnswerRepository(db, other).FindByID(ctx, "pcq-1")
	assert.ErrorIs(t, err, security.ErrCiphertext)
}

func TestAnswerRepository_PassThroughWithoutKey(t *testing.T) {
	db := openTestDB(t)
	encryptor, err := security.NewFieldEncryptor("")
	require.NoError(t, err)
	repo := NewAnswerRepository(db, encryptor)

	require.NoError(t, repo.Create(context.Background(), newRecord("pcq-1", t0, nil)))
	assert.Equal(t, "party-pcq-1", rawPartyID(t, db, "pcq-1"))
}

func TestAnswerRepository_NotFound(t *testing.T) {
	repo := NewAnswerRepository(openTestDB(t), &security.FieldEncryptor{})
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, util.ErrRecordNotFound)

	_, err = repo.FindByDcnNumber(ctx, "DCN-missing")
	assert.ErrorIs(t, err, util.ErrRecordNotFound)

	matched, err := repo.UpdateCaseID(ctx, "missing", "CASE-1")
	require.NoError(t, err)
	assert.Zero(t, matched)
}

func TestAnswerRepository_CreateDuplicateKeepsTransactionUsable(t *testing.T) {
	repo := NewAnswerRepository(openTestDB(t), &security.FieldEncryptor{})
	ctx := context.Background()

	dcn := "DCN-1"
	first := newRecord("pcq-1", t0, nil)
	first.DcnNumber = &dcn
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Transaction(ctx, func(tx *AnswerRepository) error {
		err := tx.Create(ctx, newRecord("pcq-1", t0.Add(time.Second), nil))
		assert.ErrorIs(t, err, util.ErrDuplicateRecord)

		sameDcn := newRecord("pcq-2", t0, nil)
		sameDcn.DcnNumber = &dcn
		assert.ErrorIs(t, tx.Create(ctx, sameDcn), util.ErrDuplicateRecord)

		// 冲突只回滚到保存点，事务内仍可继续读写
		found, err := tx.FindByIDForUpdate(ctx, "pcq-1")
		require.NoError(t, err)
		assert.True(t, found.LastUpdatedTimestamp.Equal(t0))
		return tx.Create(ctx, newRecord("pcq-3", t0, nil))
	})
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, "pcq-3")
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, "pcq-2")
	assert.ErrorIs(t, err, util.ErrRecordNotFound)
}

func TestAnswerRepository_DeleteExpiredRechecksCutoff(t *testing.T) {
	repo := NewAnswerRepository(openTestDB(t), &security.FieldEncryptor{})
	ctx := context.Background()
	cutoff := t0.AddDate(0, 0, -90)

	require.NoError(t, repo.Create(ctx, newRecord("old", t0.AddDate(0, 0, -100), nil)))
	require.NoError(t, repo.Create(ctx, newRecord("refreshed", t0.AddDate(0, 0, -100), nil)))

	candidates, err := repo.FindExpiredWithoutCase(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// 候选记录在删除前被更新
	require.NoError(t, repo.MarkOptOut(ctx, "refreshed", t0))

	deleted, err := repo.DeleteExpiredWithoutCase(ctx, []string{"old", "refreshed"}, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.FindByID(ctx, "refreshed")
	assert.NoError(t, err)
}

func TestAnswerRepository_ExpiredHorizonsAreDisjoint(t *testing.T) {
	repo := NewAnswerRepository(openTestDB(t), &security.FieldEncryptor{})
	ctx := context.Background()
	cutoff := t0.AddDate(0, 0, -30)
	caseID := "CASE-9"

	require.NoError(t, repo.Create(ctx, newRecord("with-case", t0.AddDate(0, 0, -60), &caseID)))
	require.NoError(t, repo.Create(ctx, newRecord("no-case", t0.AddDate(0, 0, -60), nil)))

	withCase, err := repo.FindExpiredWithCase(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, withCase, 1)
	assert.Equal(t, "with-case", withCase[0].PcqID)
	require.NotNil(t, withCase[0].CaseID)
	assert.Equal(t, caseID, *withCase[0].CaseID)

	noCase, err := repo.FindExpiredWithoutCase(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, noCase, 1)
	assert.Equal(t, "no-case", noCase[0].PcqID)

	deleted, err := repo.DeleteExpiredWithCase(ctx, []string{"no-case"}, cutoff)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
