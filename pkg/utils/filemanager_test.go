package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runTime = time.Date(2026, 3, 15, 18, 0, 0, 0, time.Local)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{kind}_{timestamp}", map[string]string{"kind": "daily_settlement"}, runTime)
	assert.Equal(t, "daily_settlement_20260315_180000", name)

	name = GenerateOutputFileName("{date}-{kind}-{uuid}", map[string]string{"kind": "a/b"}, runTime)
	assert.True(t, strings.HasPrefix(name, "20260315-a_b-"))
	assert.Len(t, name, len("20260315-a_b-")+36)
}

func TestRunDirAndReportPath(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "exports"), "")
	require.NoError(t, fm.EnsureDirectories())

	dir, err := fm.NewRunDir(runTime)
	require.NoError(t, err)
	assert.Equal(t, "20260315_180000", filepath.Base(dir))
	assert.True(t, FileExists(dir))

	path := fm.ReportPath(dir, "printer_summary", ".txt", runTime)
	assert.Equal(t, filepath.Join(dir, "printer_summary_20260315_180000.txt"), path)
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSummaryLog(ExportSummary{
		RunID:     "run-1",
		StartTime: runTime,
		EndTime:   runTime.Add(time.Second),
		Orders:    3,
		Reports:   []ReportInfo{{Kind: "printer_summary", Path: filepath.Join(dir, "p.txt"), Rows: 4}},
		Failures:  []string{"supplier_split: disk full"},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Run ID:         run-1")
	assert.Contains(t, content, "printer_summary")
	assert.Contains(t, content, "supplier_split: disk full")
}

func TestCleanOldRuns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20260101_090000", "20260314_090000", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0755))
	}

	removed, err := CleanOldRuns(dir, 7*24*time.Hour, runTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101_090000"}, removed)
	assert.True(t, FileExists(filepath.Join(dir, "20260314_090000")))
	assert.True(t, FileExists(filepath.Join(dir, "notes")))

	removed, err = CleanOldRuns(filepath.Join(dir, "missing"), time.Hour, runTime)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
