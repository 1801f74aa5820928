package shred

import (
	"time"

	"fileshredder_pro/internal/pattern"
)

// TaskKind определяет вид цели затирания
type TaskKind string

const (
	KindFile      TaskKind = "file"
	KindDirectory TaskKind = "directory"
	KindFreeSpace TaskKind = "free_space"
)

// TaskStatus - статус задачи. Терминальные статусы неизменяемы.
type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusRunning   TaskStatus = "RUNNING"
	StatusVerifying TaskStatus = "VERIFYING"
	StatusDone      TaskStatus = "DONE"
	StatusFailed    TaskStatus = "FAILED"
	StatusSkipped   TaskStatus = "SKIPPED"
	StatusCancelled TaskStatus = "CANCELLED"
)

// IsTerminal сообщает, достигла ли задача терминального состояния
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// ErrorKind классифицирует ошибку операции для аудита
type ErrorKind string

const (
	ErrKindNone               ErrorKind = ""
	ErrKindInvalidPassCount   ErrorKind = "InvalidPassCount"
	ErrKindUnknownStandard    ErrorKind = "UnknownStandard"
	ErrKindPathDenied         ErrorKind = "PathDenied"
	ErrKindTargetLocked       ErrorKind = "TargetLocked"
	ErrKindIoError            ErrorKind = "IoError"
	ErrKindInsufficientSpace  ErrorKind = "InsufficientSpace"
	ErrKindVerificationFailed ErrorKind = "VerificationFailed"
	ErrKindCancelled          ErrorKind = "Cancelled"
	ErrKindPartialDirectory   ErrorKind = "PartialDirectory"
)

// ShredTask - единица работы пула. Создаётся планировщиком, мутируется
// только выполняющим её воркером.
type ShredTask struct {
	ID           string
	RequestID    string
	TargetPath   string
	Kind         TaskKind
	Passes       []pattern.PassSpec
	ChunkSize    int64
	PlannedBytes uint64
	Status       TaskStatus

	// Только для KindDirectory
	Manifest *TreeManifest

	// Только для KindFreeSpace
	VolumeRoot string
}

// TreeManifest - план уничтожения дерева: файлы всегда раньше
// собственного уничтожения родительской директории.
type TreeManifest struct {
	Files []*ShredTask // задачи по файлам-листьям
	Dirs  []string     // директории, от самой глубокой к корню дерева
}

// OperationResult - итог выполнения одной задачи. Создаётся ровно один раз
// и после эмиссии не мутируется.
type OperationResult struct {
	TaskID           string     `json:"task_id"`
	TargetPath       string     `json:"target"`
	Kind             TaskKind   `json:"kind"`
	Status           TaskStatus `json:"status"`
	BytesOverwritten uint64     `json:"bytes_overwritten"`
	PassesCompleted  int        `json:"passes_completed"`
	Verified         bool       `json:"verified"`
	ErrKind          ErrorKind  `json:"error_kind,omitempty"`
	Error            string     `json:"error,omitempty"`
	DurationMs       int64      `json:"duration_ms"`
}

// ProgressSnapshot - согласованный в конечном счёте снимок прогресса
type ProgressSnapshot struct {
	TotalBytesPlanned uint64 `json:"total_bytes_planned"`
	BytesDone         uint64 `json:"bytes_done"`
	TasksDone         int64  `json:"tasks_done"`
	TasksTotal        int64  `json:"tasks_total"`
	EtaMs             int64  `json:"eta_ms"`
}

func newResult(task *ShredTask, started time.Time) *OperationResult {
	return &OperationResult{
		TaskID:     task.ID,
		TargetPath: task.TargetPath,
		Kind:       task.Kind,
		DurationMs: time.Since(started).Milliseconds(),
	}
}
