package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// VolumeInfo описывает том, на котором находится целевой путь
type VolumeInfo struct {
	Mountpoint string
	Fstype     string
	TotalSize  uint64
	FreeSize   uint64
	IsSystem   bool
}

// GetVolumeInfoForPath возвращает информацию о томе, содержащем путь.
// Точка монтирования определяется как самый длинный mountpoint-префикс.
func GetVolumeInfoForPath(path string) (*VolumeInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка нормализации пути %s: %w", path, err)
	}

	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка разделов: %w", err)
	}

	mount := ""
	fstype := ""
	for _, p := range parts {
		if isUnderMount(abs, p.Mountpoint) && len(p.Mountpoint) > len(mount) {
			mount = p.Mountpoint
			fstype = p.Fstype
		}
	}
	if mount == "" {
		// Fallback: статистика по самому пути (chroot, контейнер)
		mount = abs
	}

	usage, err := disk.Usage(mount)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики тома %s: %w", mount, err)
	}

	return &VolumeInfo{
		Mountpoint: mount,
		Fstype:     fstype,
		TotalSize:  usage.Total,
		FreeSize:   usage.Free,
		IsSystem:   isSystemMount(mount),
	}, nil
}

// FreeSpace возвращает свободное место в байтах для тома, содержащего путь
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения свободного места для %s: %w", path, err)
	}
	return usage.Free, nil
}

func isUnderMount(path, mount string) bool {
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		mount = strings.ToLower(mount)
	}
	if mount == string(filepath.Separator) {
		return true
	}
	if path == mount {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(mount, sep) {
		mount += sep
	}
	return strings.HasPrefix(path, mount)
}

// isSystemMount определяет, является ли точка монтирования корневым/загрузочным томом
func isSystemMount(mount string) bool {
	if runtime.GOOS == "windows" {
		sysDrive := os.Getenv("SystemDrive")
		if sysDrive == "" {
			sysDrive = "C:"
		}
		return strings.EqualFold(strings.TrimSuffix(mount, `\`), sysDrive)
	}
	return mount == "/" || mount == "/boot"
}
