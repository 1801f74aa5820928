package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"fileshredder_pro/internal/shred"
)

// AuditRecord - append-only запись аудита об одной операции.
// Формат хранения и ротация принадлежат внешнему коллаборатору;
// здесь только эмиссия записей.
type AuditRecord struct {
	Timestamp        time.Time        `json:"timestamp"`
	TaskID           string           `json:"task_id"`
	Target           string           `json:"target"`
	Kind             shred.TaskKind   `json:"kind"`
	Status           shred.TaskStatus `json:"status"`
	PassesCompleted  int              `json:"passes_completed"`
	BytesOverwritten uint64           `json:"bytes_overwritten"`
	Verified         bool             `json:"verified"`
	Error            string           `json:"error,omitempty"`
	DurationMs       int64            `json:"duration_ms"`
}

// RecordFromResult строит запись аудита из результата операции
func RecordFromResult(r *shred.OperationResult) AuditRecord {
	return AuditRecord{
		Timestamp:        time.Now().UTC(),
		TaskID:           r.TaskID,
		Target:           r.TargetPath,
		Kind:             r.Kind,
		Status:           r.Status,
		PassesCompleted:  r.PassesCompleted,
		BytesOverwritten: r.BytesOverwritten,
		Verified:         r.Verified,
		Error:            r.Error,
		DurationMs:       r.DurationMs,
	}
}

// AuditAppender принимает записи аудита по одной; каждая запись
// добавляется единственным аппендером, синхронизация внешняя
type AuditAppender interface {
	Append(rec AuditRecord) error
}

// FileAuditAppender пишет записи аудита в JSONL-файл
type FileAuditAppender struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileAuditAppender открывает файл аудита в режиме дозаписи
func NewFileAuditAppender(path string) (*FileAuditAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла аудита %s: %w", path, err)
	}
	return &FileAuditAppender{file: f}, nil
}

func (a *FileAuditAppender) Append(rec AuditRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи аудита: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}
	return a.file.Sync()
}

func (a *FileAuditAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
