// =============================================================================
// Photo Sale Ledger - Report File Manager
// =============================================================================
//
// This module manages the output side of the export pipelines:
//   - Timestamped run directories under output_dir
//   - Report file naming
//   - Export run summaries
//   - Pruning of old run directories
//
// OUTPUT LAYOUT:
//   exports/
//   └── 20260315_180000/
//       ├── printer_summary_20260315_180000.txt
//       ├── picking_by_activity_20260315_180000.txt
//       ├── daily_settlement_20260315_180000.csv
//       ├── daily_settlement_20260315_180000.xlsx
//       └── export_summary_20260315_180000.txt
//
// Reports are written once and never re-read by the application.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunDirLayout is the time layout of run directory names.
const RunDirLayout = "20060102_150405"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles report output locations.
type FileManager struct {
	// OutputDir is the directory holding one subdirectory per export run.
	OutputDir string

	// NameFormat is the report file name format. See GenerateOutputFileName.
	NameFormat string
}

// NewFileManager creates a FileManager over outputDir.
func NewFileManager(outputDir, nameFormat string) *FileManager {
	if nameFormat == "" {
		nameFormat = "{kind}_{timestamp}"
	}
	return &FileManager{
		OutputDir:  outputDir,
		NameFormat: nameFormat,
	}
}

// EnsureDirectories creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// NewRunDir creates the run directory of an export started at now.
//
// RETURNS:
//   - The path to the new directory.
//   - An error if it cannot be created.
func (fm *FileManager) NewRunDir(now time.Time) (string, error) {
	dir := filepath.Join(fm.OutputDir, now.Format(RunDirLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return dir, nil
}

// ReportPath returns the path of a report of the given kind and extension
// inside runDir.
func (fm *FileManager) ReportPath(runDir, kind, ext string, now time.Time) string {
	name := GenerateOutputFileName(fm.NameFormat, map[string]string{"kind": kind}, now)
	return filepath.Join(runDir, name+ext)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a report file name, without extension.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Date (YYYYMMDD)
//               {time}      - Time (HHMMSS)
//               {kind}      - Report kind
//   - params: A map of placeholder values.
//   - now: The time used for the date placeholders.
//
// EXAMPLE:
//   format: "{kind}_{timestamp}"
//   params: {"kind": "daily_settlement"}
//   output: "daily_settlement_20260315_180000"
func GenerateOutputFileName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{timestamp}": now.Format(RunDirLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return sanitizeFileName(result)
}

// sanitizeFileName replaces path separators and characters rejected by
// common filesystems.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// =============================================================================
// EXPORT SUMMARY
// =============================================================================

// ReportInfo describes one written report.
type ReportInfo struct {
	Kind string
	Path string
	Rows int
}

// ExportSummary describes one export run.
type ExportSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Orders    int
	Reports   []ReportInfo
	Failures  []string
}

// WriteSummaryLog writes an export summary into runDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ExportSummary, runDir string) (string, error) {
	summaryPath := filepath.Join(runDir, fmt.Sprintf("export_summary_%s.txt", summary.StartTime.Format(RunDirLayout)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Photo Sale Ledger - Export Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Orders:         %d\n"+
		"  Reports:        %d\n"+
		"  Failures:       %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.Orders,
		len(summary.Reports),
		len(summary.Failures))

	if len(summary.Reports) > 0 {
		writer.WriteString("Reports:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, report := range summary.Reports {
			fmt.Fprintf(writer, "  %-24s %6d row(s)  %s\n", report.Kind, report.Rows, filepath.Base(report.Path))
		}
		writer.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		writer.WriteString("Failures:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, failure := range summary.Failures {
			fmt.Fprintf(writer, "  %s\n", failure)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// RETENTION
// =============================================================================

// CleanOldRuns removes run directories of outputDir whose name is a run
// timestamp older than maxAge. Other entries are left alone.
//
// RETURNS:
//   - The names of the removed directories, sorted.
//   - An error if cleaning fails.
func CleanOldRuns(outputDir string, maxAge time.Duration, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		started, err := time.ParseInLocation(RunDirLayout, entry.Name(), now.Location())
		if err != nil {
			continue
		}
		if started.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(outputDir, entry.Name())); err != nil {
				return removed, fmt.Errorf("failed to clean run %s: %w", entry.Name(), err)
			}
			removed = append(removed, entry.Name())
		}
	}

	sort.Strings(removed)
	return removed, nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
