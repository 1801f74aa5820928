package shred

import (
	"context"
	"errors"

	"fileshredder_pro/internal/guard"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/system"
)

var (
	// ErrVerificationFailed: перезапись выполнена, но не подтверждена.
	// Операция не сертифицируется.
	ErrVerificationFailed = errors.New("верификация затирания не пройдена")

	// ErrPartialDirectory: директория содержит незатёртые элементы
	// (например, заблокированный файл) и оставлена на месте.
	ErrPartialDirectory = errors.New("директория затёрта частично")

	// ErrInsufficientSpace: исчерпание места. Для затирания свободного
	// места это ожидаемый терминатор, для файла - ошибка.
	ErrInsufficientSpace = errors.New("недостаточно места на диске")
)

// ClassifyError сопоставляет ошибку с видом для аудита
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrKindNone
	case errors.Is(err, pattern.ErrInvalidPassCount):
		return ErrKindInvalidPassCount
	case errors.Is(err, pattern.ErrUnknownStandard), errors.Is(err, pattern.ErrEmptyPattern):
		return ErrKindUnknownStandard
	case errors.Is(err, guard.ErrPathDenied):
		return ErrKindPathDenied
	case errors.Is(err, system.ErrTargetLocked):
		return ErrKindTargetLocked
	case errors.Is(err, ErrVerificationFailed):
		return ErrKindVerificationFailed
	case errors.Is(err, ErrPartialDirectory):
		return ErrKindPartialDirectory
	case errors.Is(err, ErrInsufficientSpace), system.IsDiskFull(err):
		return ErrKindInsufficientSpace
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrKindCancelled
	default:
		return ErrKindIoError
	}
}

// statusForKind возвращает терминальный статус для вида ошибки.
// PathDenied и TargetLocked означают, что ничего разрушено не было.
func statusForKind(kind ErrorKind) TaskStatus {
	switch kind {
	case ErrKindNone:
		return StatusDone
	case ErrKindPathDenied, ErrKindTargetLocked, ErrKindPartialDirectory:
		return StatusSkipped
	case ErrKindCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}

func failResult(task *ShredTask, res *OperationResult, err error) *OperationResult {
	kind := ClassifyError(err)
	res.ErrKind = kind
	res.Error = err.Error()
	res.Status = statusForKind(kind)
	task.Status = res.Status
	return res
}
