// =============================================================================
// Photo Sale Ledger - CSV Codec
// =============================================================================
//
// This module converts between raw ledger bytes and positional rows. Every
// ledger file and every CSV report goes through it, so it owns three rules:
//   - Exactly one leading UTF-8 BOM on disk
//   - Semicolon-delimited rows, quoted fields respected on read
//   - Spreadsheet formula-injection sanitization on every written field
//
// FORMAT:
//   <BOM>REF;Nom;Prenom;...\n
//   CMD001;Dupont;Marie;...\n
//
// Short rows are right-padded with empty strings up to the column count the
// caller asks for, so files written by older or newer layouts still decode.
//
// =============================================================================

package csvcodec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// BOM is the UTF-8 byte order mark written at the top of every file.
const BOM = "\uFEFF"

// Delimiter is the field separator used by every ledger and report.
const Delimiter = ';'

// ErrBOMCorruption is returned by Decode when the content holds more than one
// BOM. Such content must go through RepairBOM before it is decoded.
var ErrBOMCorruption = errors.New("more than one BOM found")

// =============================================================================
// DECODING
// =============================================================================

// Decode parses ledger content into rows.
//
// PARAMETERS:
//   - data: The raw file content.
//   - columns: The canonical column count. Rows with fewer fields are padded
//     with empty strings. Zero disables padding.
//
// RETURNS:
//   - The rows in file order, header included, blank lines dropped.
//   - ErrBOMCorruption if the content holds more than one BOM.
func Decode(data []byte, columns int) ([][]string, error) {
	if n := CountBOM(data); n > 1 {
		return nil, fmt.Errorf("%w: %d occurrences", ErrBOMCorruption, n)
	}
	data = bytes.TrimPrefix(data, []byte(BOM))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if isRowEmpty(record) {
			continue
		}
		rows = append(rows, PadRow(record, columns))
	}

	return rows, nil
}

// PadRow right-pads a row with empty strings up to the given column count.
// Rows that are already long enough are returned unchanged.
func PadRow(row []string, columns int) []string {
	if len(row) >= columns {
		return row
	}
	padded := make([]string, columns)
	copy(padded, row)
	return padded
}

// isRowEmpty reports whether every field of the row is blank.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode sanitizes every field and joins the rows with ';' and '\n'.
// The output always ends with a newline so that rows can be appended to it.
// It never carries a BOM; WriteFile adds it.
//
// Decode(Encode(rows)) returns rows only when every value is already clean,
// that is SanitizeValue(v) == v. A value such as "+33612345678" or one holding
// a tab decodes to its sanitized form ("'+33612345678").
func Encode(rows [][]string) ([]byte, error) {
	var buffer bytes.Buffer

	writer := csv.NewWriter(&buffer)
	writer.Comma = Delimiter

	for _, row := range rows {
		clean := make([]string, len(row))
		for i, value := range row {
			clean[i] = SanitizeValue(value)
		}
		if err := writer.Write(clean); err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	return buffer.Bytes(), nil
}

// =============================================================================
// SANITIZATION
// =============================================================================

// whitespaceRun matches embedded tabs and line breaks.
var whitespaceRun = regexp.MustCompile(`[\t\r\n]+`)

// SanitizeValue neutralizes spreadsheet formula injection.
//
// SANITIZATION STEPS:
//   1. Runs of tab, CR and LF collapse to a single space
//   2. Remaining C0 control characters and DEL are stripped
//   3. If the value started with one of = + - @ TAB CR LF, or still starts
//      with = + - @ after cleaning, an apostrophe is prepended
//
// The function is idempotent: SanitizeValue(SanitizeValue(x)) == SanitizeValue(x).
func SanitizeValue(value string) string {
	if value == "" {
		return value
	}

	dangerous := startsWithAny(value, "=+-@\t\r\n")

	cleaned := whitespaceRun.ReplaceAllString(value, " ")
	cleaned = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, cleaned)

	if dangerous || startsWithAny(cleaned, "=+-@") {
		return "'" + cleaned
	}

	return cleaned
}

// SanitizeRow applies SanitizeValue to a copy of every field in the row.
func SanitizeRow(row []string) []string {
	clean := make([]string, len(row))
	for i, value := range row {
		clean[i] = SanitizeValue(value)
	}
	return clean
}

// startsWithAny reports whether the first byte of s is one of chars.
func startsWithAny(s, chars string) bool {
	return s != "" && strings.IndexByte(chars, s[0]) >= 0
}

// =============================================================================
// BOM HANDLING
// =============================================================================

// CountBOM returns the number of BOM occurrences anywhere in the content.
func CountBOM(data []byte) int {
	return bytes.Count(data, []byte(BOM))
}

// RepairBOM strips every BOM from the content and prepends exactly one.
func RepairBOM(data []byte) []byte {
	stripped := bytes.ReplaceAll(data, []byte(BOM), nil)
	return append([]byte(BOM), stripped...)
}

// =============================================================================
// FILE I/O
// =============================================================================

// ReadFile reads and decodes a CSV file.
//
// RETURNS:
//   - The decoded rows.
//   - An os.ErrNotExist-wrapping error if the file is absent.
//   - ErrBOMCorruption if the file holds more than one BOM.
func ReadFile(path string, columns int) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Decode(data, columns)
}

// WriteFile encodes the rows and replaces the file with exactly one leading
// BOM followed by the content. The new content is written to a temporary
// file in the same directory and renamed over the target, so a failed write
// leaves the previous file untouched.
func WriteFile(path string, rows [][]string) error {
	content, err := Encode(rows)
	if err != nil {
		return err
	}
	return WriteRaw(path, append([]byte(BOM), content...))
}

// WriteRaw atomically replaces the file with the given bytes.
func WriteRaw(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}

	return nil
}

// AppendFile appends rows to an existing file. If the file does not exist
// (or is empty) it is created with the header followed by the rows. A file
// that does not start with exactly one BOM is repaired and rewritten whole.
func AppendFile(path string, header []string, rows [][]string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, []byte(BOM)))) == 0 {
		return WriteFile(path, append([][]string{header}, rows...))
	}

	content, err := Encode(rows)
	if err != nil {
		return err
	}

	if data[len(data)-1] != '\n' {
		content = append([]byte("\n"), content...)
	}

	if CountBOM(data) != 1 || !bytes.HasPrefix(data, []byte(BOM)) {
		return WriteRaw(path, append(RepairBOM(data), content...))
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if _, err := file.Write(content); err != nil {
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}

	return file.Sync()
}
