package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:    "Attendance",
		Subtitle: []string{"Form 1A", "2024-01-15"},
		Headers:  []string{"Date", "Student", "Status"},
		Rows: []map[string]string{
			{"Date": "2024-01-15", "Student": "Johnson, Alice", "Status": "LATE"},
			{"Date": "2024-01-15", "Student": "Smith, Bob", "Status": "PRESENT"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVExporter().Render(&buf, sampleDataset()))
	assert.Equal(t, "Date,Student,Status\n2024-01-15,\"Johnson, Alice\",LATE\n2024-01-15,\"Smith, Bob\",PRESENT\n", buf.String())
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewCSVExporter().Render(&buf, Dataset{}))
}

func TestPDFExporterRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Render(&buf, sampleDataset()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Equal(t, "application/pdf", NewPDFExporter().ContentType())
}
