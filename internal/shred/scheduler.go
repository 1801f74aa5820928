package shred

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"fileshredder_pro/internal/guard"
	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/system"
)

// Границы эффективного размера чанка: пол ограничивает накладные расходы
// на syscall-ы, потолок - пиковую память при параллельных воркерах.
const (
	MinChunkSize     = 64 * 1024
	MaxChunkSize     = 16 * 1024 * 1024
	DefaultChunkSize = 1024 * 1024
)

// Planner превращает запрос затирания в задачи для пула. Все ошибки
// планирования возвращаются до любой деструктивной операции.
type Planner struct {
	Rules             *guard.RuleSet
	Logger            *logging.ShredLogger
	AllowSystemVolume bool
}

// NewPlanner создаёт планировщик с заданными правилами защиты
func NewPlanner(rules *guard.RuleSet, logger *logging.ShredLogger) *Planner {
	return &Planner{Rules: rules, Logger: logger}
}

// ClampChunkSize приводит подсказку размера чанка к допустимым границам
func ClampChunkSize(hint int64) int64 {
	if hint <= 0 {
		return DefaultChunkSize
	}
	if hint < MinChunkSize {
		return MinChunkSize
	}
	if hint > MaxChunkSize {
		return MaxChunkSize
	}
	return hint
}

// PlanFile строит задачу затирания одного файла
func (pl *Planner) PlanFile(requestID, path string, spec pattern.Spec, chunkHint int64) (*ShredTask, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка доступа к цели %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("цель %s является директорией, требуется рекурсивный режим", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("цель %s не является обычным файлом", path)
	}

	if err := pl.Rules.Check(path); err != nil {
		return nil, err
	}

	passes, err := pattern.Resolve(spec)
	if err != nil {
		return nil, err
	}

	return &ShredTask{
		ID:           uuid.NewString(),
		RequestID:    requestID,
		TargetPath:   path,
		Kind:         KindFile,
		Passes:       passes,
		ChunkSize:    ClampChunkSize(chunkHint),
		PlannedBytes: uint64(info.Size()) * uint64(len(passes)),
		Status:       StatusPending,
	}, nil
}

// PlanTree строит задачу уничтожения дерева: манифест перечисляет файлы
// раньше уничтожения их родительских директорий, директории - от самой
// глубокой к корню.
func (pl *Planner) PlanTree(requestID, root string, spec pattern.Spec, chunkHint int64) (*ShredTask, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("ошибка доступа к цели %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("цель %s не является директорией", root)
	}

	if err := pl.Rules.Check(root); err != nil {
		return nil, err
	}

	passes, err := pattern.Resolve(spec)
	if err != nil {
		return nil, err
	}
	chunk := ClampChunkSize(chunkHint)

	manifest := &TreeManifest{}
	var planned uint64

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("ошибка обхода %s: %w", path, walkErr)
		}
		if d.IsDir() {
			manifest.Dirs = append(manifest.Dirs, path)
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("ошибка чтения атрибутов %s: %w", path, err)
		}
		if !fi.Mode().IsRegular() {
			// Нерегулярные элементы (symlink, socket) не содержат собственных
			// данных: их уничтожает DirectoryShredder простым unlink-ом
			return nil
		}
		manifest.Files = append(manifest.Files, &ShredTask{
			ID:           uuid.NewString(),
			RequestID:    requestID,
			TargetPath:   path,
			Kind:         KindFile,
			Passes:       passes,
			ChunkSize:    chunk,
			PlannedBytes: uint64(fi.Size()) * uint64(len(passes)),
			Status:       StatusPending,
		})
		planned += uint64(fi.Size()) * uint64(len(passes))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir даёт pre-order (родитель раньше детей); уничтожение идёт
	// в обратном порядке - изнутри наружу
	for i, j := 0, len(manifest.Dirs)-1; i < j; i, j = i+1, j-1 {
		manifest.Dirs[i], manifest.Dirs[j] = manifest.Dirs[j], manifest.Dirs[i]
	}

	return &ShredTask{
		ID:           uuid.NewString(),
		RequestID:    requestID,
		TargetPath:   root,
		Kind:         KindDirectory,
		Passes:       passes,
		ChunkSize:    chunk,
		PlannedBytes: planned,
		Status:       StatusPending,
		Manifest:     manifest,
	}, nil
}

// PlanFreeSpace строит задачу затирания свободного места тома.
// Системный (корневой/загрузочный) том запрещён без явного разрешения.
func (pl *Planner) PlanFreeSpace(requestID, volumeRoot string, spec pattern.Spec, headroom uint64) (*ShredTask, error) {
	if err := pl.Rules.Check(volumeRoot); err != nil {
		return nil, err
	}

	vol, err := system.GetVolumeInfoForPath(volumeRoot)
	if err != nil {
		return nil, err
	}
	if vol.IsSystem && !pl.AllowSystemVolume {
		return nil, fmt.Errorf("%w: %s является активным системным томом", guard.ErrPathDenied, volumeRoot)
	}

	passes, err := pattern.Resolve(spec)
	if err != nil {
		return nil, err
	}

	var planned uint64
	if vol.FreeSize > headroom {
		planned = (vol.FreeSize - headroom) * uint64(len(passes))
	}

	return &ShredTask{
		ID:           uuid.NewString(),
		RequestID:    requestID,
		TargetPath:   volumeRoot,
		Kind:         KindFreeSpace,
		Passes:       passes,
		ChunkSize:    DefaultChunkSize,
		PlannedBytes: planned,
		Status:       StatusPending,
		VolumeRoot:   volumeRoot,
	}, nil
}
