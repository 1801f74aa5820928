package shred

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshredder_pro/internal/logging"
)

func makeTasks(n int) []*ShredTask {
	tasks := make([]*ShredTask, n)
	for i := range tasks {
		tasks[i] = &ShredTask{
			ID:         fmt.Sprintf("task-%d", i),
			TargetPath: fmt.Sprintf("/x/%d", i),
			Kind:       KindFile,
			Status:     StatusPending,
		}
	}
	return tasks
}

func TestPoolExecutesEachTaskExactlyOnce(t *testing.T) {
	tasks := makeTasks(50)

	var mu sync.Mutex
	seen := make(map[string]int)

	pool := NewPool(4, logging.Discard(), NewProgress())
	results := pool.Run(context.Background(), tasks, func(ctx context.Context, task *ShredTask) []*OperationResult {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		task.Status = StatusDone
		return []*OperationResult{{TaskID: task.ID, Status: StatusDone}}
	})

	require.Len(t, results, 50)
	require.Len(t, seen, 50)
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s", id)
	}
}

func TestPoolIsolatesPanicToOneTask(t *testing.T) {
	tasks := makeTasks(10)

	pool := NewPool(3, logging.Discard(), nil)
	results := pool.Run(context.Background(), tasks, func(ctx context.Context, task *ShredTask) []*OperationResult {
		if task.ID == "task-4" {
			panic("имитация сбоя воркера")
		}
		return []*OperationResult{{TaskID: task.ID, Status: StatusDone}}
	})

	require.Len(t, results, 10)

	failed := 0
	for _, r := range results {
		if r.Status == StatusFailed {
			failed++
			assert.Equal(t, "task-4", r.TaskID)
			assert.Equal(t, ErrKindIoError, r.ErrKind)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPoolEmitsResultsViaCallback(t *testing.T) {
	tasks := makeTasks(7)

	var emitted []string
	pool := NewPool(2, logging.Discard(), nil)
	pool.OnResult = func(r *OperationResult) {
		emitted = append(emitted, r.TaskID)
	}

	pool.Run(context.Background(), tasks, func(ctx context.Context, task *ShredTask) []*OperationResult {
		return []*OperationResult{{TaskID: task.ID, Status: StatusDone}}
	})

	assert.Len(t, emitted, 7)
}

func TestPoolCountsProgress(t *testing.T) {
	tasks := makeTasks(5)
	progress := NewProgress()
	for range tasks {
		progress.AddPlanned(100)
	}

	pool := NewPool(2, logging.Discard(), progress)
	pool.Run(context.Background(), tasks, func(ctx context.Context, task *ShredTask) []*OperationResult {
		progress.AddBytes(100)
		return []*OperationResult{{TaskID: task.ID, Status: StatusDone}}
	})

	snap := progress.Snapshot()
	assert.Equal(t, int64(5), snap.TasksDone)
	assert.Equal(t, int64(5), snap.TasksTotal)
	assert.Equal(t, uint64(500), snap.BytesDone)
	assert.Equal(t, uint64(500), snap.TotalBytesPlanned)
}

func TestPoolDefaultWorkerCount(t *testing.T) {
	pool := NewPool(0, logging.Discard(), nil)
	assert.Greater(t, pool.Workers, 0)
}
