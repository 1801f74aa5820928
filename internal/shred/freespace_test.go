package shred

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/system"
)

func freeSpaceTask(t *testing.T, volumeRoot string) *ShredTask {
	t.Helper()

	passes, err := pattern.Resolve(pattern.Spec{Standard: pattern.StandardZero})
	require.NoError(t, err)

	return &ShredTask{
		ID:         "fs-test",
		TargetPath: volumeRoot,
		Kind:       KindFreeSpace,
		VolumeRoot: volumeRoot,
		Passes:     passes,
		ChunkSize:  64 * 1024,
		Status:     StatusPending,
	}
}

func TestFreeSpaceWiperFillsAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	task := freeSpaceTask(t, dir)

	free, err := system.FreeSpace(dir)
	require.NoError(t, err)
	if free < 32*1024*1024 {
		t.Skip("недостаточно свободного места для теста")
	}

	// Headroom подбирается так, чтобы записать лишь несколько мегабайт
	wiper := &FreeSpaceWiper{
		Logger:        logging.Discard(),
		Headroom:      free - 6*1024*1024,
		FillerDir:     ".shredder_tmp",
		MaxFillerSize: 1024 * 1024,
	}

	res := wiper.Execute(context.Background(), task)
	require.Equal(t, StatusDone, res.Status)
	assert.Greater(t, res.BytesOverwritten, uint64(0))
	assert.True(t, res.Verified)

	// Заполнители и их директория убраны
	_, err = os.Stat(filepath.Join(dir, ".shredder_tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFreeSpaceWiperHeadroomAlreadySatisfied(t *testing.T) {
	dir := t.TempDir()
	task := freeSpaceTask(t, dir)

	free, err := system.FreeSpace(dir)
	require.NoError(t, err)

	wiper := &FreeSpaceWiper{
		Logger:    logging.Discard(),
		Headroom:  free + 1024*1024*1024,
		FillerDir: ".shredder_tmp",
	}

	res := wiper.Execute(context.Background(), task)
	require.Equal(t, StatusDone, res.Status)
	assert.Equal(t, uint64(0), res.BytesOverwritten)

	_, err = os.Stat(filepath.Join(dir, ".shredder_tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFreeSpaceWiperCancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	task := freeSpaceTask(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wiper := &FreeSpaceWiper{
		Logger:    logging.Discard(),
		Headroom:  512 * 1024 * 1024,
		FillerDir: ".shredder_tmp",
	}

	res := wiper.Execute(ctx, task)
	require.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, ErrKindCancelled, res.ErrKind)

	// Директория заполнителей не переживает отмену
	_, err := os.Stat(filepath.Join(dir, ".shredder_tmp"))
	assert.True(t, os.IsNotExist(err))
}
