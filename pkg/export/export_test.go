package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"id", "name"},
		Rows: []map[string]string{
			{"id": "1", "name": "Ana"},
			{"id": "2", "name": "José, Jr."},
		},
		Widths: []float64{1, 3},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	text := strings.TrimPrefix(string(out), "\ufeff")
	assert.Equal(t, "id,name\n1,Ana\n2,\"José, Jr.\"\n", text)
}

func TestCSVExporterEscapesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"name"},
		Rows: []map[string]string{
			{"name": `=HYPERLINK("http://evil.example","x")`},
			{"name": "+1"},
			{"name": "-2+3"},
			{"name": "@SUM(A1)"},
			{"name": "Ana = Eva"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimPrefix(string(out), "\ufeff"), "\n")
	assert.Equal(t, `"'=HYPERLINK(""http://evil.example"",""x"")"`, lines[1])
	assert.Equal(t, "'+1", lines[2])
	assert.Equal(t, "'-2+3", lines[3])
	assert.Equal(t, "'@SUM(A1)", lines[4])
	assert.Equal(t, "Ana = Eva", lines[5])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Alumnos")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterManyRowsPaginates(t *testing.T) {
	data := Dataset{Headers: []string{"id"}}
	for i := 0; i < 200; i++ {
		data.Rows = append(data.Rows, map[string]string{"id": "x"})
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{50, 150}, columnWidths(sampleDataset(), 200))
	assert.Equal(t, []float64{100, 100}, columnWidths(Dataset{Headers: []string{"a", "b"}}, 200))
}
