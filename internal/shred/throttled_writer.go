package shred

import (
	"io"
	"os"
	"sync"
	"time"
)

// ThrottledWriter ограничивает скорость записи в файл (thread-safe).
// При maxSpeedMBps <= 0 запись идёт без ограничения.
type ThrottledWriter struct {
	file         *os.File
	maxSpeedMBps float64
	start        time.Time
	written      uint64
	mu           sync.Mutex
	closed       bool
}

// NewThrottledWriter создаёт writer с ограничением скорости
func NewThrottledWriter(file *os.File, maxSpeedMBps float64) *ThrottledWriter {
	return &ThrottledWriter{
		file:         file,
		maxSpeedMBps: maxSpeedMBps,
		start:        time.Now(),
	}
}

// Write записывает данные, выдерживая среднюю скорость не выше лимита
func (tw *ThrottledWriter) Write(data []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return 0, io.ErrClosedPipe
	}
	if len(data) == 0 {
		return 0, nil
	}

	if tw.maxSpeedMBps > 0 {
		bytesPerSec := tw.maxSpeedMBps * 1024 * 1024
		expected := time.Duration(float64(tw.written+uint64(len(data))) / bytesPerSec * float64(time.Second))
		elapsed := time.Since(tw.start)
		if elapsed < expected {
			time.Sleep(expected - elapsed)
		}
	}

	n, err := tw.file.Write(data)
	if n > 0 {
		tw.written += uint64(n)
	}
	return n, err
}

// Sync сбрасывает данные на физический носитель
func (tw *ThrottledWriter) Sync() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return io.ErrClosedPipe
	}
	return tw.file.Sync()
}

// Close закрывает writer, не закрывая нижележащий файл
func (tw *ThrottledWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.closed = true
	return nil
}
