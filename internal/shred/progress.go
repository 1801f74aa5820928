package shred

import (
	"sync/atomic"
	"time"
)

// Progress - разделяемые счётчики прогресса. Воркеры инкрементируют
// атомарно, читатель получает снимок в любой момент без блокировок.
type Progress struct {
	totalBytes atomic.Uint64
	bytesDone  atomic.Uint64
	tasksDone  atomic.Int64
	tasksTotal atomic.Int64
	startNano  atomic.Int64
}

// NewProgress создаёт счётчики для набора задач
func NewProgress() *Progress {
	p := &Progress{}
	p.startNano.Store(time.Now().UnixNano())
	return p
}

// AddPlanned учитывает запланированную задачу
func (p *Progress) AddPlanned(bytes uint64) {
	p.totalBytes.Add(bytes)
	p.tasksTotal.Add(1)
}

// AddBytes учитывает записанные байты
func (p *Progress) AddBytes(n uint64) {
	p.bytesDone.Add(n)
}

// TaskDone учитывает завершённую задачу
func (p *Progress) TaskDone() {
	p.tasksDone.Add(1)
}

// Snapshot возвращает снимок прогресса с оценкой оставшегося времени.
// Снимок согласован в конечном счёте: счётчики читаются независимо.
func (p *Progress) Snapshot() ProgressSnapshot {
	snap := ProgressSnapshot{
		TotalBytesPlanned: p.totalBytes.Load(),
		BytesDone:         p.bytesDone.Load(),
		TasksDone:         p.tasksDone.Load(),
		TasksTotal:        p.tasksTotal.Load(),
	}

	elapsed := time.Since(time.Unix(0, p.startNano.Load()))
	if snap.BytesDone > 0 && snap.BytesDone < snap.TotalBytesPlanned && elapsed > 0 {
		rate := float64(snap.BytesDone) / elapsed.Seconds()
		if rate > 0 {
			remaining := float64(snap.TotalBytesPlanned - snap.BytesDone)
			snap.EtaMs = int64(remaining / rate * 1000)
		}
	}

	return snap
}
