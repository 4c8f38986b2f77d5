package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/repository"
	"pcq_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnswerService(t *testing.T) *AnswerService {
	t.Helper()
	return NewAnswerService(newTestRepo(t), newTestValidator(t))
}

func TestSubmitAnswers_CreatesRecord(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0, withField("dcnNumber", "DCN-1")))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.True(t, result.LastUpdatedTimestamp.Equal(t0))

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	assert.Equal(t, "party-pcq-1", rec.PartyID)
	assert.Equal(t, model.ChannelOnline, rec.Channel)
	assert.Equal(t, 1, rec.VersionNumber)
	assert.False(t, rec.OptOut)
	assert.True(t, rec.CompletedDate.Equal(t0))
	assert.True(t, rec.LastUpdatedTimestamp.Equal(t0))
	require.NotNil(t, rec.Sex)
	assert.Equal(t, 1, *rec.Sex)
}

func TestSubmitAnswers_StrictTieBreak(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)

	// 相同 completedDate 的第二次提交不覆盖
	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0, withAnswers(map[string]interface{}{"sex": 2})))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	require.NotNil(t, rec.Sex)
	assert.Equal(t, 1, *rec.Sex)

	// 晚一秒的提交覆盖答案
	later := t0.Add(time.Second)
	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", later, withAnswers(map[string]interface{}{"sex": 2})))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.True(t, result.LastUpdatedTimestamp.Equal(later))

	rec, err = svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	require.NotNil(t, rec.Sex)
	assert.Equal(t, 2, *rec.Sex)
	assert.Nil(t, rec.Religion)
	assert.True(t, rec.LastUpdatedTimestamp.Equal(later))
	assert.True(t, rec.CompletedDate.Equal(t0), "completedDate keeps the first submission time")

	// 更早的提交不会回退
	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(-time.Hour), withAnswers(map[string]interface{}{"sex": 0})))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)
	assert.True(t, result.LastUpdatedTimestamp.Equal(later))
}

func TestSubmitAnswers_SubMillisecondResubmissionIsStale(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	first := t0.Add(123456 * time.Microsecond)
	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", first))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.True(t, result.LastUpdatedTimestamp.Equal(t0.Add(123*time.Millisecond)))

	// 同一 completedDate 原样重复提交
	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", first))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	// 同一毫秒内更晚的提交也视为相等
	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(123999*time.Microsecond)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(124*time.Millisecond)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	assert.True(t, rec.LastUpdatedTimestamp.Equal(t0.Add(124*time.Millisecond)))
}

func TestSubmitAnswers_ConcurrentFirstInsertReconciles(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	// 另一请求在本请求读不到记录之后、插入之前已提交了 t0 的记录
	require.NoError(t, svc.Repo.Create(ctx, &model.AnswerRecord{
		PcqID:                "race-1",
		PartyID:              "party-race-1",
		Channel:              model.ChannelOnline,
		VersionNumber:        1,
		CompletedDate:        t0,
		LastUpdatedTimestamp: t0,
	}))

	insert := func(completed time.Time) (*SubmitResult, error) {
		req, err := svc.Validator.Validate(submission(t, "race-1", completed, withAnswers(map[string]interface{}{"sex": 2})))
		require.NoError(t, err)
		var result *SubmitResult
		err = svc.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
			var txErr error
			result, txErr = svc.insertOrReconcile(ctx, repo, req)
			return txErr
		})
		return result, err
	}

	result, err := insert(t0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	result, err = insert(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "race-1")
	require.NoError(t, err)
	assert.True(t, rec.LastUpdatedTimestamp.Equal(t0.Add(time.Second)))
	require.NotNil(t, rec.Sex)
	assert.Equal(t, 2, *rec.Sex)
}

func TestSubmitAnswers_ConcurrentDcnInsertIsConflict(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	dcn := "DCN-RACE"
	require.NoError(t, svc.Repo.Create(ctx, &model.AnswerRecord{
		PcqID:                "race-1",
		DcnNumber:            &dcn,
		Channel:              model.ChannelPaper,
		VersionNumber:        1,
		CompletedDate:        t0,
		LastUpdatedTimestamp: t0,
	}))

	req, err := svc.Validator.Validate(submission(t, "race-2", t0, withField("dcnNumber", dcn), withField("channel", 2)))
	require.NoError(t, err)

	err = svc.Repo.Transaction(ctx, func(repo *repository.AnswerRepository) error {
		_, txErr := svc.insertOrReconcile(ctx, repo, req)
		return txErr
	})
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindConflict))
	assert.True(t, errors.Is(err, util.ErrDcnExists))

	_, err = svc.GetAnswer(ctx, "race-2")
	assert.True(t, util.IsKind(err, util.KindNotFound))
}

func TestSubmitAnswers_UpdateKeepsCaseLink(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)

	linker := NewConsolidationService(svc.Repo)
	_, err = linker.AttachCase(ctx, "pcq-1", "CASE-1")
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(time.Minute)))
	require.NoError(t, err)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	require.NotNil(t, rec.CaseID)
	assert.Equal(t, "CASE-1", *rec.CaseID)
}

func TestSubmitAnswers_DcnUniqueness(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0, withField("dcnNumber", "DCN-1"), withField("channel", 2)))
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, submission(t, "pcq-2", t0, withField("dcnNumber", "DCN-1"), withField("channel", 2)))
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindConflict))
	assert.True(t, errors.Is(err, util.ErrDcnExists))

	_, err = svc.GetAnswer(ctx, "pcq-2")
	assert.True(t, util.IsKind(err, util.KindNotFound))

	// 同一记录用相同 DCN 再次提交不冲突
	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(time.Second), withField("dcnNumber", "DCN-1"), withField("channel", 2)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)
}

func TestSubmitAnswers_ValidationWritesNothing(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0, withField("versionNo", 7)))
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
	assert.True(t, errors.Is(err, util.ErrInvalidVersion))

	_, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0, withoutField("serviceId")))
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))

	var count int64
	require.NoError(t, svc.Repo.DB.Model(&model.AnswerRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessOptOut_Idempotent(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)

	later := t0.Add(2 * time.Hour)
	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", later, withField("optOut", true)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOptedOut, result.Outcome)
	assert.True(t, result.LastUpdatedTimestamp.Equal(later))

	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", later.Add(time.Hour), withField("optOut", true)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyOptedOut, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	assert.True(t, rec.OptOut)
	assert.True(t, rec.LastUpdatedTimestamp.Equal(later), "a repeated opt out changes nothing")
}

func TestProcessOptOut_TimestampNeverMovesBack(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)

	result, err := svc.ProcessOptOut(ctx, "pcq-1", t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOptedOut, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	assert.True(t, rec.OptOut)
	assert.True(t, rec.LastUpdatedTimestamp.Equal(t0))
	require.NotNil(t, rec.Sex, "opting out keeps the stored answers")
}

func TestProcessOptOut_UnknownRecord(t *testing.T) {
	svc := newTestAnswerService(t)

	_, err := svc.SubmitAnswers(context.Background(), submission(t, "pcq-404", t0, withField("optOut", true)))
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindNotFound))
	assert.True(t, errors.Is(err, util.ErrOptOutNoRecord))
}

func TestDeleteAnswer(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAnswer(ctx, "pcq-1"))

	err = svc.DeleteAnswer(ctx, "pcq-1")
	assert.True(t, util.IsKind(err, util.KindNotFound))
}

func TestSubmitAnswers_OptedOutRecordStaysOptedOut(t *testing.T) {
	svc := newTestAnswerService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0))
	require.NoError(t, err)
	_, err = svc.ProcessOptOut(ctx, "pcq-1", t0.Add(time.Minute))
	require.NoError(t, err)

	result, err := svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	result, err = svc.SubmitAnswers(ctx, submission(t, "pcq-1", t0.Add(time.Hour), withAnswers(map[string]interface{}{"sex": 2})))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, result.Outcome)

	rec, err := svc.GetAnswer(ctx, "pcq-1")
	require.NoError(t, err)
	assert.True(t, rec.OptOut)
	require.NotNil(t, rec.Sex)
	assert.Equal(t, 2, *rec.Sex)
}
