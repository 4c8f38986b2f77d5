package util

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound  = errors.New("pcq record not found")
	ErrInvalidVersion  = errors.New("invalid version number")
	ErrDcnExists       = errors.New("dcn number already exists")
	ErrDuplicateRecord = errors.New("pcq record violates a unique constraint")
	ErrOptOutNoRecord  = errors.New("cannot opt out a pcq record that was never submitted")
	ErrInvalidWindow   = errors.New("lower bound must be before upper bound")
	ErrEncryptionSetup = errors.New("field encryption is not configured correctly")
)

// ErrorKind 错误分类，决定边界层返回的状态码，也决定是否允许重试（均不自动重试）
type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindConfiguration:
		return "configuration"
	default:
		return "fatal"
	}
}

// AppError 核心操作返回的错误，Details 用于 schema 校验的违规列表
type AppError struct {
	Kind    ErrorKind
	Op      string
	PcqID   string
	Message string
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.PcqID != "" {
		fmt.Fprintf(&b, " (pcqId=%s)", e.PcqID)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindFatal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func NewValidationError(op, pcqID string, details []string, err error) *AppError {
	return &AppError{Kind: KindValidation, Op: op, PcqID: pcqID, Message: "invalid submission", Details: details, Err: err}
}

func NewConflictError(op, pcqID string, err error) *AppError {
	return &AppError{Kind: KindConflict, Op: op, PcqID: pcqID, Message: err.Error(), Err: err}
}

func NewNotFoundError(op, pcqID string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Op: op, PcqID: pcqID, Message: err.Error(), Err: err}
}

func NewConfigurationError(op string, err error) *AppError {
	return &AppError{Kind: KindConfiguration, Op: op, Message: err.Error(), Err: err}
}

func NewFatalError(op, pcqID string, err error) *AppError {
	return &AppError{Kind: KindFatal, Op: op, PcqID: pcqID, Message: "unexpected failure", Err: err}
}
