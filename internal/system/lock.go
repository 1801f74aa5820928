package system

import "errors"

// ErrTargetLocked возвращается ProbeLock, когда цель эксклюзивно занята
// другим процессом. Заблокированная цель никогда не затирается повторно
// автоматически: освобождение блокировки посреди операции чужим процессом
// привело бы к частичной, несогласованной перезаписи.
var ErrTargetLocked = errors.New("цель заблокирована другим процессом")

// IsLocked сообщает, является ли ошибка блокировкой цели
func IsLocked(err error) bool {
	return errors.Is(err, ErrTargetLocked)
}
