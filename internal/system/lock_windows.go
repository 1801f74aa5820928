//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// ProbeLock пытается открыть файл без share-режима: если файл уже открыт
// другим процессом, Windows вернёт sharing violation. Дескриптор закрывается
// сразу - probe не удерживает доступ.
func ProbeLock(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("ошибка преобразования пути %s: %w", path, err)
	}

	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, // эксклюзивный доступ, никакого sharing
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return fmt.Errorf("%w: %s (файл занят другим процессом)", ErrTargetLocked, path)
		}
		return fmt.Errorf("ошибка открытия %s для проверки блокировки: %w", path, err)
	}
	windows.CloseHandle(h)
	return nil
}

// IsDiskFull сообщает, означает ли ошибка исчерпание места на диске
func IsDiskFull(err error) bool {
	return errors.Is(err, windows.ERROR_DISK_FULL) || errors.Is(err, windows.ERROR_HANDLE_DISK_FULL)
}
