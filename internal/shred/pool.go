package shred

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"fileshredder_pro/internal/logging"
)

// Executor выполняет одну задачу до терминального состояния
type Executor func(ctx context.Context, task *ShredTask) []*OperationResult

// Pool - ограниченный пул воркеров над общей очередью задач. Каждая задача
// выполняется ровно одним воркером; порядок задач между собой не
// гарантируется, порядок проходов внутри задачи строго последовательный.
type Pool struct {
	Workers  int
	Logger   *logging.ShredLogger
	Progress *Progress

	// OnResult вызывается для каждого результата по мере готовности.
	// Вызовы сериализованы.
	OnResult func(*OperationResult)
}

// NewPool создаёт пул. При workers <= 0 берётся доступный параллелизм.
func NewPool(workers int, logger *logging.ShredLogger, progress *Progress) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{Workers: workers, Logger: logger, Progress: progress}
}

// Run выполняет задачи и возвращает все результаты. Сбой одной задачи
// изолируется в её результат и не затрагивает соседние задачи.
func (p *Pool) Run(ctx context.Context, tasks []*ShredTask, exec Executor) []*OperationResult {
	queue := make(chan *ShredTask)
	resultsCh := make(chan []*OperationResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range queue {
				resultsCh <- p.runTask(ctx, workerID, task, exec)
				if p.Progress != nil {
					p.Progress.TaskDone()
				}
			}
		}(i)
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-ctx.Done():
				// Не принятые воркерами задачи завершаются как отменённые
				resultsCh <- []*OperationResult{cancelledResult(task)}
				if p.Progress != nil {
					p.Progress.TaskDone()
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var all []*OperationResult
	for batch := range resultsCh {
		for _, r := range batch {
			all = append(all, r)
			if p.OnResult != nil {
				p.OnResult(r)
			}
		}
	}
	return all
}

// runTask изолирует панику воркера в результат этой задачи
func (p *Pool) runTask(ctx context.Context, workerID int, task *ShredTask, exec Executor) (results []*OperationResult) {
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Log("ERROR", "Паника воркера изолирована в задачу",
				"worker", workerID, "task", task.ID, "panic", fmt.Sprintf("%v", r))
			res := &OperationResult{
				TaskID:     task.ID,
				TargetPath: task.TargetPath,
				Kind:       task.Kind,
				Status:     StatusFailed,
				ErrKind:    ErrKindIoError,
				Error:      fmt.Sprintf("внутренняя ошибка воркера: %v", r),
			}
			task.Status = StatusFailed
			results = []*OperationResult{res}
		}
	}()

	return exec(ctx, task)
}

func cancelledResult(task *ShredTask) *OperationResult {
	task.Status = StatusCancelled
	return &OperationResult{
		TaskID:     task.ID,
		TargetPath: task.TargetPath,
		Kind:       task.Kind,
		Status:     StatusCancelled,
		ErrKind:    ErrKindCancelled,
		Error:      "операция отменена до начала выполнения",
	}
}
