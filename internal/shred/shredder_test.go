package shred

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshredder_pro/internal/guard"
	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
)

func testShredder(verify bool) *FileShredder {
	fsh := &FileShredder{
		Rules:       guard.NewRuleSet(nil, nil),
		Logger:      logging.Discard(),
		DestroyMeta: true,
	}
	if verify {
		fsh.Verifier = NewVerifier(1)
	}
	return fsh
}

func planFileTask(t *testing.T, path string, spec pattern.Spec, chunkHint int64) *ShredTask {
	t.Helper()
	task, err := testPlanner().PlanFile("req", path, spec, chunkHint)
	require.NoError(t, err)
	return task
}

func TestExecuteDoD3Scenario(t *testing.T) {
	// Сценарий: файл 1 MiB, DoD-3, чанк 256 KiB -> 3 прохода, ~3 MiB записей,
	// верификация пройдена, файла нет
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	size := 1024 * 1024
	writeFile(t, path, size)

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardDoD3}, 256*1024)
	res := testShredder(true).Execute(context.Background(), task)

	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, 3, res.PassesCompleted)
	assert.Equal(t, uint64(3*size), res.BytesOverwritten)
	assert.True(t, res.Verified)
	assert.Equal(t, ErrKindNone, res.ErrKind)
	assert.NoFileExists(t, path)

	// В директории не должно остаться и переименованного остатка
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecuteGutmannEmptyFile(t *testing.T) {
	// 0-байтовый файл: 35 проходов по 0 байт, мгновенный успех, файла нет
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardGutmann}, 0)
	res := testShredder(true).Execute(context.Background(), task)

	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, 35, res.PassesCompleted)
	assert.Equal(t, uint64(0), res.BytesOverwritten)
	assert.True(t, res.Verified)
	assert.NoFileExists(t, path)
}

func TestExecuteWritesFullLengthPerPass(t *testing.T) {
	// Размер не кратен чанку: каждый проход всё равно покрывает файл целиком
	path := filepath.Join(t.TempDir(), "odd.bin")
	size := 3*64*1024 + 17
	writeFile(t, path, size)

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardCustom, Custom: []byte{0xDE, 0xAD, 0xBE, 0xEF}, Passes: 5}, MinChunkSize)
	res := testShredder(true).Execute(context.Background(), task)

	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, 5, res.PassesCompleted)
	assert.Equal(t, uint64(5*size), res.BytesOverwritten)
}

func TestExecuteCancelledBeforeStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.bin")
	writeFile(t, path, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardZero}, 0)
	res := testShredder(false).Execute(ctx, task)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ErrKindCancelled, res.ErrKind)
	assert.Equal(t, 0, res.PassesCompleted)

	// Файл не удалён и не усечён
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())
}

func TestExecuteCancelledMidRun(t *testing.T) {
	// Троттлинг растягивает проход, отмена прилетает посреди него.
	// Файл не удаляется, не усекается, завершённые проходы сохраняются.
	path := filepath.Join(t.TempDir(), "slow.bin")
	size := 256 * 1024
	writeFile(t, path, size)

	fsh := testShredder(false)
	fsh.MaxSpeedMBps = 0.25 // ~1 секунда на проход

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardCustom, Custom: []byte{0xAA}, Passes: 7}, MinChunkSize)
	res := fsh.Execute(ctx, task)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Less(t, res.PassesCompleted, 7)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(size), info.Size())
}

func TestExecuteReChecksGuardBeforeWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guarded.bin")
	writeFile(t, path, 128)

	// Планируем с разрешающими правилами, выполняем с запрещающими:
	// повторная проверка перед первой записью должна отказать
	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardZero}, 0)

	fsh := testShredder(false)
	fsh.Rules = guard.NewRuleSet([]string{dir}, nil)
	res := fsh.Execute(context.Background(), task)

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, ErrKindPathDenied, res.ErrKind)
	assert.FileExists(t, path)
}

func TestExecuteKeepMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bin")
	writeFile(t, path, 512)

	fsh := testShredder(false)
	fsh.DestroyMeta = false

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardOne}, 0)
	res := fsh.Execute(context.Background(), task)

	assert.Equal(t, StatusDone, res.Status)
	assert.NoFileExists(t, path)
}

func TestExecuteReMeasuresLengthBetweenPasses(t *testing.T) {
	// Файл вырос после планирования: проход обязан покрыть актуальную длину
	path := filepath.Join(t.TempDir(), "grown.bin")
	writeFile(t, path, 1000)

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardZero}, 0)

	grown := make([]byte, 5000)
	require.NoError(t, os.WriteFile(path, grown, 0644))

	res := testShredder(true).Execute(context.Background(), task)
	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, uint64(5000), res.BytesOverwritten)
}
