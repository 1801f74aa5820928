package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileshredder_pro/internal/shred"
)

func sampleResults() []*shred.OperationResult {
	return []*shred.OperationResult{
		{TaskID: "t1", TargetPath: "/data/a.bin", Kind: shred.KindFile, Status: shred.StatusDone, BytesOverwritten: 3000, Verified: true},
		{TaskID: "t2", TargetPath: "/data/b.bin", Kind: shred.KindFile, Status: shred.StatusDone, BytesOverwritten: 1500, Verified: true},
		{TaskID: "t3", TargetPath: "/data/locked.bin", Kind: shred.KindFile, Status: shred.StatusSkipped, ErrKind: shred.ErrKindTargetLocked},
		{TaskID: "t4", TargetPath: "/data/c.bin", Kind: shred.KindFile, Status: shred.StatusFailed, ErrKind: shred.ErrKindIoError},
	}
}

func TestGenerateReportSummary(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	report := GenerateReport("run-1", "1.0.2", "dod3", sampleResults(), start, time.Now())

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "dod3", report.Standard)
	assert.Equal(t, 4, report.Summary.TotalTasks)
	assert.Equal(t, 2, report.Summary.Done)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Skipped)
	assert.Equal(t, 2, report.Summary.Verified)
	assert.Equal(t, uint64(4500), report.Summary.TotalBytes)
	assert.InDelta(t, 50.0, report.Summary.SuccessRate, 0.01)
}

func TestGenerateReportEmpty(t *testing.T) {
	report := GenerateReport("run-2", "1.0.2", "zero", nil, time.Now(), time.Now())
	assert.Equal(t, 0, report.Summary.TotalTasks)
	assert.Equal(t, 0.0, report.Summary.SuccessRate)
}

func TestSaveLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := GenerateReport("run-3", "1.0.2", "gutmann35", sampleResults(), time.Now(), time.Now())

	path, err := SaveLocal(report, filepath.Join(dir, "reports"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "run-3", loaded.RunID)
	assert.Len(t, loaded.Operations, 4)
	assert.Equal(t, report.Summary, loaded.Summary)
}

func TestFileAuditAppenderWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	appender, err := NewFileAuditAppender(path)
	require.NoError(t, err)
	defer appender.Close()

	for _, r := range sampleResults() {
		require.NoError(t, appender.Append(RecordFromResult(r)))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := 0
	for _, line := range splitLines(data) {
		var rec AuditRecord
		require.NoError(t, json.Unmarshal(line, &rec))
		assert.NotEmpty(t, rec.TaskID)
		lines++
	}
	assert.Equal(t, 4, lines)
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, data[start:])
	}
	return out
}
