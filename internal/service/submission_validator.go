package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pcq_backend/internal/model"
	"pcq_backend/internal/util"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

const requestDefinition = "#PcqAnswerRequest"

// timestampPrecision 与库表 datetime(3) 一致。比较前先截断，否则 MySQL 舍入后的
// 存储值与原始提交值不再相等，同一 completedDate 的重复提交会被误判为更新。
const timestampPrecision = time.Millisecond

// SubmissionValidator 在访问数据库之前校验提交的结构与协议版本
type SubmissionValidator struct {
	expectedVersion int

	// cue.Context 不支持并发使用
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

func NewSubmissionValidator(schemaDocument []byte, expectedVersion int) (*SubmissionValidator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(schemaDocument, cue.Filename("pcq_answers.cue"))
	if err := root.Err(); err != nil {
		return nil, util.NewConfigurationError("NewSubmissionValidator", fmt.Errorf("compile answer schema: %w", err))
	}

	def := root.LookupPath(cue.ParsePath(requestDefinition))
	if !def.Exists() {
		return nil, util.NewConfigurationError("NewSubmissionValidator", fmt.Errorf("answer schema has no %s definition", requestDefinition))
	}

	return &SubmissionValidator{
		expectedVersion: expectedVersion,
		ctx:             ctx,
		schema:          def,
	}, nil
}

func (v *SubmissionValidator) ExpectedVersion() int {
	return v.expectedVersion
}

// Validate 校验 body 并返回解析后的请求；结构错误返回带违规列表的 Validation 错误，
// 版本不一致返回包裹 ErrInvalidVersion 的 Validation 错误。
func (v *SubmissionValidator) Validate(body []byte) (*model.PcqAnswerRequest, error) {
	if violations := v.checkShape(body); len(violations) > 0 {
		return nil, util.NewValidationError("validate", pcqIDHint(body), violations, nil)
	}

	var req model.PcqAnswerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, util.NewValidationError("validate", "", []string{err.Error()}, err)
	}

	if req.VersionNo != v.expectedVersion {
		return nil, &util.AppError{
			Kind:    util.KindValidation,
			Op:      "validate",
			PcqID:   req.PcqID,
			Message: util.ErrInvalidVersion.Error(),
			Details: []string{fmt.Sprintf("versionNo %d does not match expected version %d", req.VersionNo, v.expectedVersion)},
			Err:     util.ErrInvalidVersion,
		}
	}

	completedAt, err := time.Parse(time.RFC3339Nano, req.CompletedDate)
	if err != nil {
		return nil, util.NewValidationError("validate", req.PcqID, []string{"completedDate: " + err.Error()}, err)
	}
	req.CompletedAt = completedAt.UTC().Truncate(timestampPrecision)

	return &req, nil
}

func (v *SubmissionValidator) checkShape(body []byte) []string {
	expr, err := cuejson.Extract("submission", body)
	if err != nil {
		return []string{"malformed JSON: " + err.Error()}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	data := v.ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return []string{"malformed JSON: " + err.Error()}
	}

	err = v.schema.Unify(data).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	seen := make(map[string]bool)
	var violations []string
	for _, e := range cueerrors.Errors(err) {
		msg := strings.TrimPrefix(e.Error(), requestDefinition+".")
		if !seen[msg] {
			seen[msg] = true
			violations = append(violations, msg)
		}
	}
	if len(violations) == 0 {
		violations = append(violations, err.Error())
	}
	sort.Strings(violations)
	return violations
}

// pcqIDHint 结构校验失败时尽量取出 pcqId 用于日志
func pcqIDHint(body []byte) string {
	var probe struct {
		PcqID string `json:"pcqId"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return probe.PcqID
}
