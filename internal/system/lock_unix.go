//go:build !windows

package system

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ProbeLock пытается неблокирующе получить эксклюзивный доступ к файлу.
// Возвращает nil, если цель свободна, или ошибку с ErrTargetLocked,
// если файл удерживается другим процессом. Блокировка снимается сразу:
// probe - это проверка, а не удержание.
func ProbeLock(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("ошибка открытия %s для проверки блокировки: %w", path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return fmt.Errorf("%w: %s (flock удерживается другим процессом)", ErrTargetLocked, path)
		}
		return fmt.Errorf("ошибка flock для %s: %w", path, err)
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return nil
}

// IsDiskFull сообщает, означает ли ошибка исчерпание места на диске
func IsDiskFull(err error) bool {
	return errors.Is(err, unix.ENOSPC)
}
