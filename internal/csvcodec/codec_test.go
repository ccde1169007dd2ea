package csvcodec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "REF;Nom;Prenom"

func TestDecode_StripsSingleBOM(t *testing.T) {
	data := []byte(BOM + testHeader + "\nCMD001;Dupont;Marie\n")

	rows, err := Decode(data, 3)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "REF", rows[0][0])
	assert.Equal(t, []string{"CMD001", "Dupont", "Marie"}, rows[1])
}

func TestDecode_RejectsMultipleBOMs(t *testing.T) {
	data := []byte(BOM + testHeader + "\n" + BOM + "CMD001;Dupont;Marie\n")

	_, err := Decode(data, 3)

	assert.ErrorIs(t, err, ErrBOMCorruption)
}

func TestDecode_PadsShortRowsAndDropsBlankLines(t *testing.T) {
	data := []byte(testHeader + "\n\n   \nCMD001;Dupont\n\n")

	rows, err := Decode(data, 3)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"CMD001", "Dupont", ""}, rows[1])
}

func TestDecode_KeepsLongRows(t *testing.T) {
	rows, err := Decode([]byte("a;b;c;d\n"), 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, rows[0])
}

func TestDecode_RespectsQuotedFields(t *testing.T) {
	rows, err := Decode([]byte(`CMD001;"Dupont;Martin";Marie`+"\n"), 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"CMD001", "Dupont;Martin", "Marie"}, rows[0])
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"REF", "Nom", "Prenom"},
		{"CMD001", "Dupont", "Marie"},
		{"CMD002", "O'Neil; Jr", `say "hi"`},
		{"CMD003", "", ""},
	}

	content, err := Encode(rows)
	require.NoError(t, err)

	decoded, err := Decode(content, 3)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded)
}

func TestEncodeDecode_ReturnsSanitizedForm(t *testing.T) {
	rows := [][]string{{"+33612345678", "a\tb", "-5"}}

	content, err := Encode(rows)
	require.NoError(t, err)
	decoded, err := Decode(content, 3)
	require.NoError(t, err)

	require.Len(t, decoded, 1)
	for i, value := range rows[0] {
		assert.Equal(t, SanitizeValue(value), decoded[0][i])
	}
	assert.NotEqual(t, rows, decoded)
}

func TestEncode_SanitizesEveryField(t *testing.T) {
	content, err := Encode([][]string{{"=HYPERLINK(\"x\")", "+33612345678", "ok"}})
	require.NoError(t, err)

	decoded, err := Decode(content, 3)
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("x")`, decoded[0][0])
	assert.Equal(t, "'+33612345678", decoded[0][1])
	assert.Equal(t, "ok", decoded[0][2])
}

func TestSanitizeValue(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Dupont", "Dupont"},
		{"equals", "=1+1", "'=1+1"},
		{"plus", "+33", "'+33"},
		{"minus", "-5", "'-5"},
		{"at", "@SUM(A1)", "'@SUM(A1)"},
		{"leading tab", "\tfoo", "' foo"},
		{"leading newline", "\n=cmd", "' =cmd"},
		{"embedded line breaks", "a\r\nb\tc", "a b c"},
		{"control characters", "a\x01b\x7fc", "abc"},
		{"control before formula", "\x02=cmd", "'=cmd"},
		{"apostrophe kept", "'=x", "'=x"},
		{"inner equals", "a=b", "a=b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeValue(tc.input))
		})
	}
}

func TestSanitizeValue_Idempotent(t *testing.T) {
	inputs := []string{"", "x", "=x", "\t=x", "\x01\x02", "a\n\nb", "-", "@", "'", "\r\n+1", " =x"}

	for _, input := range inputs {
		once := SanitizeValue(input)
		assert.Equal(t, once, SanitizeValue(once), "input %q", input)
	}
}

func TestRepairBOM_ThreeOccurrences(t *testing.T) {
	data := []byte(BOM + BOM + testHeader + "\nCMD001;" + BOM + "Dupont;Marie\n")
	require.Equal(t, 3, CountBOM(data))

	repaired := RepairBOM(data)

	assert.Equal(t, 1, CountBOM(repaired))
	assert.True(t, strings.HasPrefix(string(repaired), BOM))

	rows, err := Decode(repaired, 3)
	require.NoError(t, err)
	assert.Equal(t, "REF", rows[0][0])
	assert.Equal(t, "Dupont", rows[1][1])
}

func TestWriteFile_EmitsExactlyOneBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")

	require.NoError(t, WriteFile(path, [][]string{{"REF", "Nom"}, {"CMD001", "Dupont"}}))
	require.NoError(t, WriteFile(path, [][]string{{"REF", "Nom"}, {"CMD002", "Martin"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), BOM))
	assert.Equal(t, 1, CountBOM(data))

	rows, err := ReadFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"REF", "Nom"}, {"CMD002", "Martin"}}, rows)
}

func TestAppendFile_CreatesHeaderThenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.csv")
	header := []string{"Ref", "Montant"}

	require.NoError(t, AppendFile(path, header, [][]string{{"CMD001", "6.00"}}))
	require.NoError(t, AppendFile(path, header, [][]string{{"CMD002", "4.00"}}))

	rows, err := ReadFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{header, {"CMD001", "6.00"}, {"CMD002", "4.00"}}, rows)
}

func TestAppendFile_RepairsMissingBOMAndNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ref;Montant\nCMD001;6.00"), 0644))

	require.NoError(t, AppendFile(path, []string{"Ref", "Montant"}, [][]string{{"CMD002", "4.00"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, BOM+"Ref;Montant\nCMD001;6.00\nCMD002;4.00\n", string(data))
}
