package shred

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"os"
	"path/filepath"
	"time"

	"fileshredder_pro/internal/guard"
	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/system"
)

// FileShredder выполняет последовательность проходов над одним файлом
// и уничтожает его метаданные. Файловый дескриптор принадлежит задаче
// эксклюзивно на всё время её жизни.
type FileShredder struct {
	Rules        *guard.RuleSet
	Logger       *logging.ShredLogger
	Verifier     *Verifier
	Progress     *Progress
	MaxSpeedMBps float64
	DestroyMeta  bool
}

// Execute выполняет задачу затирания файла. Никогда не повторяет проходы
// неявно: упавший посреди проход не перезапускается с первого прохода -
// вызывающий получает точное число завершённых проходов и решает сам.
func (fsh *FileShredder) Execute(ctx context.Context, task *ShredTask) *OperationResult {
	started := time.Now()
	res := newResult(task, started)
	defer func() { res.DurationMs = time.Since(started).Milliseconds() }()

	task.Status = StatusRunning

	// Повторная проверка правил непосредственно перед первой записью:
	// защита от гонок с конкурентными изменениями файловой системы
	if err := fsh.Rules.Check(task.TargetPath); err != nil {
		return failResult(task, res, err)
	}

	if err := system.ProbeLock(task.TargetPath); err != nil {
		if system.IsLocked(err) {
			fsh.Logger.Log("WARN", "Цель заблокирована, задача пропущена", "target", task.TargetPath)
		}
		return failResult(task, res, err)
	}

	file, err := os.OpenFile(task.TargetPath, os.O_RDWR, 0)
	if err != nil {
		return failResult(task, res, fmt.Errorf("ошибка открытия файла %s: %w", task.TargetPath, err))
	}

	writer := NewThrottledWriter(file, fsh.MaxSpeedMBps)

	for passIdx, pass := range task.Passes {
		// Кооперативная отмена между проходами
		if err := ctx.Err(); err != nil {
			file.Close()
			fsh.Logger.Log("WARN", "Затирание отменено", "target", task.TargetPath, "passes_completed", res.PassesCompleted)
			return failResult(task, res, err)
		}

		// Длина файла могла измениться между планированием и выполнением:
		// перед каждым проходом измеряем заново, а не доверяем плану
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return failResult(task, res, fmt.Errorf("ошибка stat перед проходом %d: %w", passIdx+1, err))
		}
		size := info.Size()

		if err := fsh.writePass(ctx, file, writer, pass, size, task.ChunkSize, res); err != nil {
			file.Close()
			if ClassifyError(err) == ErrKindCancelled {
				fsh.Logger.Log("WARN", "Затирание отменено посреди прохода", "target", task.TargetPath, "pass", passIdx+1)
			}
			return failResult(task, res, err)
		}

		// Каждый проход должен достичь физического носителя до начала
		// следующего: отложенная запись в кэш обесценивает гарантию
		if err := writer.Sync(); err != nil {
			file.Close()
			return failResult(task, res, fmt.Errorf("ошибка синхронизации после прохода %d: %w", passIdx+1, err))
		}

		res.PassesCompleted++
	}

	// Верификация до уничтожения файла: читаем перезаписанное содержимое
	if fsh.Verifier != nil {
		task.Status = StatusVerifying
		finalPass := task.Passes[len(task.Passes)-1]
		if err := fsh.Verifier.VerifyFile(file, finalPass); err != nil {
			file.Close()
			fsh.Logger.Log("ERROR", "Верификация не пройдена, операция не сертифицирована",
				"target", task.TargetPath, "error", err.Error())
			return failResult(task, res, err)
		}
		res.Verified = true
	}

	if err := file.Close(); err != nil {
		return failResult(task, res, fmt.Errorf("ошибка закрытия файла %s: %w", task.TargetPath, err))
	}

	finalPath := task.TargetPath
	if fsh.DestroyMeta {
		finalPath = destroyMetadata(task.TargetPath, fsh.Logger)
	}

	if err := os.Remove(finalPath); err != nil {
		return failResult(task, res, fmt.Errorf("ошибка удаления файла %s: %w", finalPath, err))
	}

	// Файл не должен существовать ни под исходным, ни под временным именем
	if _, err := os.Lstat(task.TargetPath); err == nil {
		return failResult(task, res, fmt.Errorf("%w: файл %s всё ещё существует", ErrVerificationFailed, task.TargetPath))
	}

	task.Status = StatusDone
	res.Status = StatusDone
	return res
}

// writePass перезаписывает весь файл одним паттерном, чанками.
// Отмена проверяется между чанками: начатый чанк всегда дописывается,
// полузаписанных чанков не остаётся.
func (fsh *FileShredder) writePass(ctx context.Context, file *os.File, writer *ThrottledWriter, pass pattern.PassSpec, size, chunkSize int64, res *OperationResult) error {
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("ошибка позиционирования: %w", err)
	}

	buf := GetBuffer(int(chunkSize))
	defer PutBuffer(buf)

	var offset int64
	for offset < size {
		if err := ctx.Err(); err != nil {
			return err
		}

		toWrite := chunkSize
		if remaining := size - offset; remaining < toWrite {
			toWrite = remaining
		}

		chunk := buf[:toWrite]
		if err := pass.Fill(chunk, offset); err != nil {
			return err
		}

		// Короткие записи дописываются в цикле
		written := 0
		for written < len(chunk) {
			n, err := writer.Write(chunk[written:])
			if n > 0 {
				written += n
				res.BytesOverwritten += uint64(n)
				if fsh.Progress != nil {
					fsh.Progress.AddBytes(uint64(n))
				}
			}
			if err != nil {
				return fmt.Errorf("ошибка записи (смещение %d): %w", offset+int64(written), err)
			}
			if n == 0 {
				return fmt.Errorf("запись вернула 0 байт без ошибки (смещение %d)", offset)
			}
		}

		offset += toWrite
	}

	return nil
}

// destroyMetadata затирает метаданные файла: рандомизирует временные метки
// и переименовывает в неинформативное имя. Ошибки здесь не фатальны -
// содержимое уже уничтожено, файл будет удалён под исходным именем.
func destroyMetadata(path string, logger *logging.ShredLogger) string {
	randomTime := time.Unix(mrand.Int63n(1<<31), 0)
	if err := os.Chtimes(path, randomTime, randomTime); err != nil {
		logger.Log("WARN", "Не удалось рандомизировать временные метки", "target", path, "error", err.Error())
	}

	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return path
	}
	newPath := filepath.Join(filepath.Dir(path), hex.EncodeToString(raw[:]))
	if err := os.Rename(path, newPath); err != nil {
		logger.Log("WARN", "Не удалось переименовать файл перед удалением", "target", path, "error", err.Error())
		return path
	}
	return newPath
}
