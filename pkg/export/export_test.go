package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	ds := Dataset{Title: "Ending Soon", Headers: []string{"Client", "Plan", "Days"}}
	ds.AddRow("Ana", "Monthly", "3")
	ds.AddRow("Budi", "Annual")
	return ds
}

func TestForFormat(t *testing.T) {
	for _, name := range []string{"csv", "PDF", " xlsx "} {
		r, err := ForFormat(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(name)), r.Extension())
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "Client,Plan,Days\nAna,Monthly,3\nBudi,Annual,\n", string(out))
}

func TestRenderRequiresHeaders(t *testing.T) {
	for _, r := range []Renderer{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter()} {
		_, err := r.Render(Dataset{})
		assert.Error(t, err, r.Extension())
	}
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sample())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Ending Soon")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Client", "Plan", "Days"}, rows[0])
	assert.Equal(t, []string{"Ana", "Monthly", "3"}, rows[1])
	assert.Equal(t, "Budi", rows[2][0])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Roster 20250102", sheetName("Roster 2025/01/02"))
	assert.Len(t, []rune(sheetName(strings.Repeat("a", 40))), maxSheetName)
	assert.Equal(t, "ab", sheetName("a[b]"))
}
