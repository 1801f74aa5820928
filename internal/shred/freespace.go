package shred

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/system"
)

// Параметры файлов-заполнителей
const (
	minFillerSize        = 4 * 1024 * 1024
	defaultMaxFillerSize = 256 * 1024 * 1024
	maxFillerFiles       = 100000
)

// FreeSpaceWiper насыщает свободное место тома файлами-заполнителями,
// перезаписывает их паттерном и удаляет. Настраиваемый headroom никогда
// не расходуется: движок не должен душить работающую систему.
type FreeSpaceWiper struct {
	Logger        *logging.ShredLogger
	Progress      *Progress
	Headroom      uint64
	FillerDir     string // имя скрытой директории в корне тома
	MaxFillerSize uint64
	MaxSpeedMBps  float64
}

// Execute выполняет задачу затирания свободного места. Исчерпание места -
// ожидаемый терминатор, а не ошибка. Все заполнители удаляются на любом
// пути выхода, включая отмену.
func (fw *FreeSpaceWiper) Execute(ctx context.Context, task *ShredTask) *OperationResult {
	started := time.Now()
	res := newResult(task, started)
	defer func() { res.DurationMs = time.Since(started).Milliseconds() }()

	task.Status = StatusRunning

	maxFiller := fw.MaxFillerSize
	if maxFiller == 0 {
		maxFiller = defaultMaxFillerSize
	}

	tempDir := filepath.Join(task.VolumeRoot, fw.FillerDir)
	if err := os.MkdirAll(tempDir, 0700); err != nil {
		return failResult(task, res, fmt.Errorf("ошибка создания директории заполнителей: %w", err))
	}

	var fillers []string
	defer func() {
		// Уборка обязательна на каждом пути выхода
		for _, f := range fillers {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				fw.Logger.Log("WARN", "Ошибка удаления заполнителя", "file", f, "error", err.Error())
			}
		}
		if err := os.Remove(tempDir); err != nil && !os.IsNotExist(err) {
			fw.Logger.Log("WARN", "Ошибка удаления директории заполнителей", "dir", tempDir, "error", err.Error())
		}
	}()

	fw.Logger.Log("INFO", "Начало затирания свободного места",
		"volume", task.VolumeRoot, "headroom", fw.Headroom, "passes", len(task.Passes))

	fillerSize := uint64(minFillerSize)
	fileIndex := 0

	for fileIndex < maxFillerFiles {
		if err := ctx.Err(); err != nil {
			fw.Logger.Log("WARN", "Затирание свободного места отменено", "volume", task.VolumeRoot)
			return failResult(task, res, err)
		}

		free, err := system.FreeSpace(task.VolumeRoot)
		if err != nil {
			return failResult(task, res, err)
		}
		if free <= fw.Headroom {
			break
		}

		available := free - fw.Headroom
		size := fillerSize
		if size > available {
			size = available
		}
		if size > maxFiller {
			size = maxFiller
		}
		if size == 0 {
			break
		}

		filename := filepath.Join(tempDir, fmt.Sprintf("wipe_%05d.tmp", fileIndex))
		full, err := fw.fillFile(ctx, filename, size, task)
		if full {
			// Место исчерпано досрочно - нормальное завершение
			fillers = append(fillers, filename)
			fw.Logger.Log("INFO", "Свободное место исчерпано", "volume", task.VolumeRoot, "fillers", fileIndex+1)
			break
		}
		if err != nil {
			fillers = append(fillers, filename)
			return failResult(task, res, err)
		}

		fillers = append(fillers, filename)
		res.BytesOverwritten += size * uint64(len(task.Passes))
		if fw.Progress != nil {
			fw.Progress.AddBytes(size * uint64(len(task.Passes)))
		}
		fileIndex++

		// Наращиваем размер заполнителя, пока выделение проходит успешно
		if fillerSize < maxFiller {
			fillerSize *= 2
		}
	}

	res.PassesCompleted = len(task.Passes)
	task.Status = StatusDone
	res.Status = StatusDone
	res.Verified = true

	fw.Logger.Log("INFO", "Затирание свободного места завершено",
		"volume", task.VolumeRoot, "bytes", res.BytesOverwritten, "fillers", len(fillers))

	return res
}

// fillFile создаёт заполнитель и прогоняет по нему все проходы паттерна.
// Возвращает full=true, если место кончилось посреди записи (ENOSPC).
func (fw *FreeSpaceWiper) fillFile(ctx context.Context, filename string, size uint64, task *ShredTask) (full bool, err error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
	if err != nil {
		if system.IsDiskFull(err) {
			return true, nil
		}
		return false, fmt.Errorf("ошибка создания заполнителя %s: %w", filename, err)
	}
	defer file.Close()

	writer := NewThrottledWriter(file, fw.MaxSpeedMBps)

	buf := GetBuffer(int(task.ChunkSize))
	defer PutBuffer(buf)

	for _, pass := range task.Passes {
		if _, err := file.Seek(0, 0); err != nil {
			return false, fmt.Errorf("ошибка позиционирования в заполнителе: %w", err)
		}

		var written uint64
		for written < size {
			if err := ctx.Err(); err != nil {
				return false, err
			}

			toWrite := uint64(len(buf))
			if remaining := size - written; remaining < toWrite {
				toWrite = remaining
			}

			chunk := buf[:toWrite]
			if err := pass.Fill(chunk, int64(written)); err != nil {
				return false, err
			}

			n, err := writer.Write(chunk)
			written += uint64(n)
			if err != nil {
				if system.IsDiskFull(err) {
					// Синхронизируем то, что успели записать
					_ = writer.Sync()
					return true, nil
				}
				return false, fmt.Errorf("ошибка записи заполнителя %s: %w", filename, err)
			}
		}

		if err := writer.Sync(); err != nil {
			if system.IsDiskFull(err) {
				return true, nil
			}
			return false, fmt.Errorf("ошибка синхронизации заполнителя %s: %w", filename, err)
		}
	}

	return false, nil
}
