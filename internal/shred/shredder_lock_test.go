//go:build !windows

package shred

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"fileshredder_pro/internal/pattern"
)

func holdFlock(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB))
	t.Cleanup(func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	})
}

func TestExecuteSkipsLockedTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.bin")
	writeFile(t, path, 1024)
	holdFlock(t, path)

	task := planFileTask(t, path, pattern.Spec{Standard: pattern.StandardZero}, 0)
	res := testShredder(false).Execute(context.Background(), task)

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, ErrKindTargetLocked, res.ErrKind)
	assert.Equal(t, uint64(0), res.BytesOverwritten)
	assert.FileExists(t, path)
}

func TestDirectoryWithLockedChildIsPartial(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.MkdirAll(root, 0755))
	freePath := filepath.Join(root, "free.bin")
	lockedPath := filepath.Join(root, "locked.bin")
	writeFile(t, freePath, 512)
	writeFile(t, lockedPath, 512)
	holdFlock(t, lockedPath)

	task, err := testPlanner().PlanTree("req", root, pattern.Spec{Standard: pattern.StandardZero}, 0)
	require.NoError(t, err)

	ds := &DirectoryShredder{Files: testShredder(false), Logger: testShredder(false).Logger}
	results := ds.Execute(context.Background(), task)

	treeRes := results[len(results)-1]
	assert.Equal(t, StatusSkipped, treeRes.Status)
	assert.Equal(t, ErrKindPartialDirectory, treeRes.ErrKind)

	// Свободный файл уничтожен, заблокированный и директория остались
	assert.NoFileExists(t, freePath)
	assert.FileExists(t, lockedPath)
	assert.DirExists(t, root)
}
