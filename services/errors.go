package services

import (
	"errors"
	"fmt"
)

// 错误分类：校验失败在任何写入前拒绝；NotFound无副作用；Conflict可重试；
// OperationFailed表示几何引擎返回空结果，不产生新记录；ExternalTool携带
// 子进程诊断输出；Expired按不存在处理
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindOperationFailed
	KindExternalTool
	KindExpired
)

type ServiceError struct {
	Kind   ErrorKind
	Msg    string
	Detail string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Msg, e.Detail)
	}
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func NewConflictError(msg string, err error) error {
	return &ServiceError{Kind: KindConflict, Msg: msg, Err: err}
}

func NewOperationFailedError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindOperationFailed, Msg: fmt.Sprintf(format, args...)}
}

// NewExternalToolError detail为子进程捕获的stderr输出
func NewExternalToolError(msg string, detail string, err error) error {
	return &ServiceError{Kind: KindExternalTool, Msg: msg, Detail: detail, Err: err}
}

func NewExpiredError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindExpired, Msg: fmt.Sprintf(format, args...)}
}

func KindOf(err error) (ErrorKind, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsNotFound(err error) bool        { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool        { return IsKind(err, KindConflict) }
func IsValidation(err error) bool      { return IsKind(err, KindValidation) }
func IsOperationFailed(err error) bool { return IsKind(err, KindOperationFailed) }
func IsExternalTool(err error) bool    { return IsKind(err, KindExternalTool) }
func IsExpired(err error) bool         { return IsKind(err, KindExpired) }
