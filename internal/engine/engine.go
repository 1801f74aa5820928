package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileshredder_pro/internal/config"
	"fileshredder_pro/internal/guard"
	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/reporting"
	"fileshredder_pro/internal/shred"
)

// Options - параметры одного запроса затирания
type Options struct {
	Standard      pattern.Standard
	CustomPattern []byte
	Passes        int
	Recursive     bool
	ChunkSizeHint int64
	WorkerCount   int
	Verify        bool
	DestroyMeta   bool
}

// Event - элемент потока событий подписки: снимок прогресса либо результат
type Event struct {
	Progress *shred.ProgressSnapshot
	Result   *shred.OperationResult
}

// request - состояние одного принятого запроса
type request struct {
	id       string
	cancel   context.CancelFunc
	progress *shred.Progress

	mu      sync.Mutex
	results []*shred.OperationResult
	subs    []chan Event
	done    bool
}

// Engine - фасад движка для внешних интерфейсов (CLI/GUI). Деструктивная
// работа идёт в пуле воркеров; вызывающий наблюдает за ней через подписку.
type Engine struct {
	cfg    *config.Config
	rules  *guard.RuleSet
	logger *logging.ShredLogger
	audit  reporting.AuditAppender

	mu       sync.Mutex
	requests map[string]*request
}

// New создаёт движок. Правила защиты загружаются один раз и неизменяемы
// на время жизни движка.
func New(cfg *config.Config, logger *logging.ShredLogger, audit reporting.AuditAppender) *Engine {
	return &Engine{
		cfg:      cfg,
		rules:    guard.NewRuleSet(cfg.Security.ProtectedPaths, cfg.Security.WhitelistPaths),
		logger:   logger,
		audit:    audit,
		requests: make(map[string]*request),
	}
}

// Rules возвращает действующий набор правил защиты
func (e *Engine) Rules() *guard.RuleSet { return e.rules }

func (e *Engine) patternSpec(opts Options) pattern.Spec {
	return pattern.Spec{
		Standard: opts.Standard,
		Custom:   opts.CustomPattern,
		Passes:   opts.Passes,
	}
}

// Submit принимает список целей и запускает их затирание. Все ошибки
// планирования возвращаются сразу, до любой деструктивной операции.
func (e *Engine) Submit(targets []string, opts Options) (string, error) {
	if len(targets) == 0 {
		return "", fmt.Errorf("пустой список целей")
	}

	requestID := uuid.NewString()
	planner := shred.NewPlanner(e.rules, e.logger)
	planner.AllowSystemVolume = e.cfg.Security.AllowSystemVolume
	spec := e.patternSpec(opts)

	tasks := make([]*shred.ShredTask, 0, len(targets))
	for _, target := range targets {
		info, err := os.Lstat(target)
		if err != nil {
			return "", fmt.Errorf("ошибка доступа к цели %s: %w", target, err)
		}

		var task *shred.ShredTask
		if info.IsDir() {
			if !opts.Recursive {
				return "", fmt.Errorf("цель %s является директорией, требуется рекурсивный режим", target)
			}
			task, err = planner.PlanTree(requestID, target, spec, opts.ChunkSizeHint)
		} else {
			task, err = planner.PlanFile(requestID, target, spec, opts.ChunkSizeHint)
		}
		if err != nil {
			return "", err
		}
		tasks = append(tasks, task)
	}

	e.launch(requestID, tasks, opts)
	return requestID, nil
}

// WipeFreeSpace запускает затирание свободного места тома.
// Контракт событий тот же, что у Submit.
func (e *Engine) WipeFreeSpace(volumeRoot string, opts Options) (string, error) {
	requestID := uuid.NewString()
	planner := shred.NewPlanner(e.rules, e.logger)
	planner.AllowSystemVolume = e.cfg.Security.AllowSystemVolume

	task, err := planner.PlanFreeSpace(requestID, volumeRoot, e.patternSpec(opts), e.cfg.FreeSpace.HeadroomBytes)
	if err != nil {
		return "", err
	}

	e.launch(requestID, []*shred.ShredTask{task}, opts)
	return requestID, nil
}

// Subscribe возвращает ленивый поток событий запроса. Канал закрывается,
// когда все задачи запроса достигают терминального состояния. Повторная
// подписка воспроизводит уже эмитированные результаты.
func (e *Engine) Subscribe(requestID string) (<-chan Event, error) {
	e.mu.Lock()
	req, ok := e.requests[requestID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("неизвестный запрос: %s", requestID)
	}

	req.mu.Lock()
	ch := make(chan Event, len(req.results)+64)
	// Воспроизводим терминальные результаты для нового подписчика
	for _, r := range req.results {
		ch <- Event{Result: r}
	}
	if req.done {
		req.mu.Unlock()
		close(ch)
		return ch, nil
	}
	req.subs = append(req.subs, ch)
	req.mu.Unlock()

	return ch, nil
}

// Cancel запускает кооперативную отмену: задачи останавливаются после
// текущего чанка, уже завершённые проходы сохраняются в результатах.
func (e *Engine) Cancel(requestID string) {
	e.mu.Lock()
	req, ok := e.requests[requestID]
	e.mu.Unlock()
	if ok {
		req.cancel()
	}
}

// launch регистрирует запрос и запускает его выполнение в фоне
func (e *Engine) launch(requestID string, tasks []*shred.ShredTask, opts Options) {
	ctx, cancel := context.WithCancel(context.Background())
	progress := shred.NewProgress()
	for _, t := range tasks {
		progress.AddPlanned(t.PlannedBytes)
	}

	req := &request{id: requestID, cancel: cancel, progress: progress}
	e.mu.Lock()
	e.requests[requestID] = req
	e.mu.Unlock()

	var verifier *shred.Verifier
	if opts.Verify {
		verifier = shred.NewVerifier(e.cfg.Shred.VerifySample)
	}

	fileShredder := &shred.FileShredder{
		Rules:        e.rules,
		Logger:       e.logger,
		Verifier:     verifier,
		Progress:     progress,
		MaxSpeedMBps: e.cfg.Shred.MaxSpeedMBps,
		DestroyMeta:  opts.DestroyMeta,
	}
	dirShredder := &shred.DirectoryShredder{Files: fileShredder, Logger: e.logger}
	spaceWiper := &shred.FreeSpaceWiper{
		Logger:        e.logger,
		Progress:      progress,
		Headroom:      e.cfg.FreeSpace.HeadroomBytes,
		FillerDir:     e.cfg.FreeSpace.FillerDir,
		MaxFillerSize: e.cfg.FreeSpace.MaxFillerSize,
		MaxSpeedMBps:  e.cfg.Shred.MaxSpeedMBps,
	}

	workers := opts.WorkerCount
	if workers <= 0 {
		workers = e.cfg.Shred.Workers
	}
	pool := shred.NewPool(workers, e.logger, progress)
	pool.OnResult = func(r *shred.OperationResult) {
		e.emitResult(req, r)
	}

	exec := func(ctx context.Context, task *shred.ShredTask) []*shred.OperationResult {
		switch task.Kind {
		case shred.KindDirectory:
			return dirShredder.Execute(ctx, task)
		case shred.KindFreeSpace:
			return []*shred.OperationResult{spaceWiper.Execute(ctx, task)}
		default:
			return []*shred.OperationResult{fileShredder.Execute(ctx, task)}
		}
	}

	go func() {
		defer cancel()

		stopTicker := make(chan struct{})
		go e.progressLoop(req, stopTicker)

		e.logger.Log("INFO", "Запрос принят в работу", "request", requestID, "tasks", len(tasks))
		pool.Run(ctx, tasks, exec)
		close(stopTicker)

		e.finish(req)
	}()
}

// progressLoop периодически рассылает снимки прогресса подписчикам
func (e *Engine) progressLoop(req *request, stop <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := req.progress.Snapshot()
			req.mu.Lock()
			for _, ch := range req.subs {
				select {
				case ch <- Event{Progress: &snap}:
				default: // медленный подписчик пропускает снимок
				}
			}
			req.mu.Unlock()
		}
	}
}

// emitResult рассылает результат подписчикам и передаёт его в аудит
func (e *Engine) emitResult(req *request, r *shred.OperationResult) {
	if e.audit != nil {
		if err := e.audit.Append(reporting.RecordFromResult(r)); err != nil {
			e.logger.Log("ERROR", "Ошибка записи в аудит", "task", r.TaskID, "error", err.Error())
		}
	}

	req.mu.Lock()
	req.results = append(req.results, r)
	for _, ch := range req.subs {
		ch <- Event{Result: r}
	}
	req.mu.Unlock()
}

func (e *Engine) finish(req *request) {
	req.mu.Lock()
	req.done = true
	subs := req.subs
	req.subs = nil
	req.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}

	e.logger.Log("INFO", "Запрос завершён", "request", req.id, "results", len(req.results))
}

// Results возвращает накопленные результаты запроса (для отчётов)
func (e *Engine) Results(requestID string) []*shred.OperationResult {
	e.mu.Lock()
	req, ok := e.requests[requestID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	req.mu.Lock()
	defer req.mu.Unlock()
	out := make([]*shred.OperationResult, len(req.results))
	copy(out, req.results)
	return out
}
