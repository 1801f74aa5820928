package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fileshredder_pro/internal/shred"
)

// Report - JSON-отчёт об одном запуске
type Report struct {
	RunID      string                   `json:"run_id"`
	Version    string                   `json:"version"`
	Timestamp  time.Time                `json:"timestamp"`
	Standard   string                   `json:"standard"`
	DryRun     bool                     `json:"dry_run"`
	Operations []*shred.OperationResult `json:"operations"`
	Summary    SummaryReport            `json:"summary"`
	Duration   string                   `json:"duration"`
}

// SummaryReport - сводная информация по запуску
type SummaryReport struct {
	TotalTasks  int     `json:"total_tasks"`
	Done        int     `json:"done"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	Cancelled   int     `json:"cancelled"`
	TotalBytes  uint64  `json:"total_bytes"`
	Verified    int     `json:"verified"`
	SuccessRate float64 `json:"success_rate"`
}

// GenerateReport строит отчёт о запуске из результатов операций
func GenerateReport(runID, version, standard string, results []*shred.OperationResult, startTime, endTime time.Time) *Report {
	report := &Report{
		RunID:      runID,
		Version:    version,
		Timestamp:  startTime,
		Standard:   standard,
		Operations: results,
		Duration:   endTime.Sub(startTime).String(),
	}

	s := &report.Summary
	s.TotalTasks = len(results)
	for _, r := range results {
		s.TotalBytes += r.BytesOverwritten
		if r.Verified {
			s.Verified++
		}
		switch r.Status {
		case shred.StatusDone:
			s.Done++
		case shred.StatusFailed:
			s.Failed++
		case shred.StatusSkipped:
			s.Skipped++
		case shred.StatusCancelled:
			s.Cancelled++
		}
	}
	if s.TotalTasks > 0 {
		s.SuccessRate = float64(s.Done) / float64(s.TotalTasks) * 100
	}

	return report
}

// SaveLocal сохраняет отчёт в локальную директорию отчётов
func SaveLocal(report *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории отчётов: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("shred_report_%s.json", report.Timestamp.Format("20060102_150405")))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации отчёта: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи отчёта %s: %w", path, err)
	}
	return path, nil
}
