package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pcq_backend/internal/repository"
	"pcq_backend/pkg/database"
	"pcq_backend/pkg/security"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testEncryptionKey = "unit-test-party-id-key"

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *repository.AnswerRepository {
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

	require.NoError(t, database.Migrate(db))

	encryptor, err := security.NewFieldEncryptor(testEncryptionKey)
	require.NoError(t, err)

	return repository.NewAnswerRepository(db, encryptor)
}

func newTestValidator(t *testing.T) *SubmissionValidator {
	t.Helper()

	doc, err := os.ReadFile("../../configs/schema/pcq_answers.cue")
	require.NoError(t, err)

	v, err := NewSubmissionValidator(doc, 1)
	require.NoError(t, err)
	return v
}

// submission 构造一个合法的提交，可通过 mods 修改字段
func submission(t *testing.T, pcqID string, completed time.Time, mods ...func(map[string]interface{})) []byte {
	t.Helper()

	body := map[string]interface{}{
		"pcqId":         pcqID,
		"partyId":       "party-" + pcqID,
		"channel":       1,
		"serviceId":     "PROBATE",
		"actor":         "APPLICANT",
		"versionNo":     1,
		"completedDate": completed.Format(time.RFC3339Nano),
		"pcqAnswers": map[string]interface{}{
			"dob_provided": 1,
			"dob":          "1980-05-14",
			"sex":          1,
			"religion":     2,
		},
	}
	for _, mod := range mods {
		mod(body)
	}

	data, err := json.Marshal(body)
	require.NoError(t, err)
	return data
}

func withAnswers(answers map[string]interface{}) func(map[string]interface{}) {
	return func(body map[string]interface{}) {
		body["pcqAnswers"] = answers
	}
}

func withField(key string, value interface{}) func(map[string]interface{}) {
	return func(body map[string]interface{}) {
		body[key] = value
	}
}

func withoutField(key string) func(map[string]interface{}) {
	return func(body map[string]interface{}) {
		delete(body, key)
	}
}

func strPtr(s string) *string {
	return &s
}
