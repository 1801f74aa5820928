package shred

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fileshredder_pro/internal/logging"
)

// DirectoryShredder уничтожает дерево снизу вверх: сначала каждый
// файл-лист через FileShredder, затем опустевшие директории, начиная
// с самой глубокой. Непустая директория никогда не удаляется силой.
type DirectoryShredder struct {
	Files  *FileShredder
	Logger *logging.ShredLogger
}

// Execute выполняет манифест дерева. Возвращает результат по каждому
// файлу плюс итоговый результат по самой задаче-дереву.
func (ds *DirectoryShredder) Execute(ctx context.Context, task *ShredTask) []*OperationResult {
	started := time.Now()
	task.Status = StatusRunning

	manifest := task.Manifest
	results := make([]*OperationResult, 0, len(manifest.Files)+1)

	for _, fileTask := range manifest.Files {
		results = append(results, ds.Files.Execute(ctx, fileTask))
	}

	treeRes := newResult(task, started)
	for _, r := range results {
		treeRes.BytesOverwritten += r.BytesOverwritten
	}

	if err := ctx.Err(); err != nil {
		treeRes.DurationMs = time.Since(started).Milliseconds()
		return append(results, failResult(task, treeRes, err))
	}

	// Нерегулярные элементы (symlink, socket) не содержат собственных
	// данных - достаточно unlink-а
	ds.removeIrregular(manifest)

	partial := 0
	for _, dir := range manifest.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			treeRes.DurationMs = time.Since(started).Milliseconds()
			return append(results, failResult(task, treeRes, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)))
		}

		if len(entries) > 0 {
			// Внутри остался пропущенный (например, заблокированный) файл:
			// директория остаётся на месте
			ds.Logger.Log("WARN", "Директория не пуста, оставлена на месте", "dir", dir, "entries", len(entries))
			partial++
			continue
		}

		if err := removeDirectory(dir, ds.Logger); err != nil {
			treeRes.DurationMs = time.Since(started).Milliseconds()
			return append(results, failResult(task, treeRes, err))
		}
	}

	treeRes.DurationMs = time.Since(started).Milliseconds()
	if partial > 0 {
		return append(results, failResult(task, treeRes,
			fmt.Errorf("%w: %d директорий осталось непустыми в %s", ErrPartialDirectory, partial, task.TargetPath)))
	}

	task.Status = StatusDone
	treeRes.Status = StatusDone
	treeRes.PassesCompleted = len(task.Passes)
	treeRes.Verified = allVerified(results)
	return append(results, treeRes)
}

func (ds *DirectoryShredder) removeIrregular(manifest *TreeManifest) {
	for _, dir := range manifest.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if e.Type().IsRegular() {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if err := os.Remove(p); err != nil {
				ds.Logger.Log("WARN", "Не удалось удалить нерегулярный элемент", "path", p, "error", err.Error())
			}
		}
	}
}

// removeDirectory переименовывает пустую директорию в неинформативное имя
// и удаляет её: имя директории - тоже метаданные.
func removeDirectory(dir string, logger *logging.ShredLogger) error {
	var raw [8]byte
	finalPath := dir
	if _, err := rand.Read(raw[:]); err == nil {
		newPath := filepath.Join(filepath.Dir(dir), hex.EncodeToString(raw[:]))
		if err := os.Rename(dir, newPath); err == nil {
			finalPath = newPath
		} else {
			logger.Log("WARN", "Не удалось переименовать директорию", "dir", dir, "error", err.Error())
		}
	}
	if err := os.Remove(finalPath); err != nil {
		return fmt.Errorf("ошибка удаления директории %s: %w", finalPath, err)
	}
	return nil
}

func allVerified(results []*OperationResult) bool {
	for _, r := range results {
		if r.Status == StatusDone && !r.Verified {
			return false
		}
	}
	return true
}
