package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "3f2b9a7c-0000-0000-0000-000000000000",
			Phase:     "enrich",
			Status:    model.RunStatusComplete,
			Result:    &model.RunReport{Total: 12345, Failed: 7},
			StartedAt: started,
			UpdatedAt: started.Add(95 * time.Second),
		},
		{
			ID:        "short",
			Phase:     "pdfs",
			Status:    model.RunStatusFailed,
			StartedAt: started,
			UpdatedAt: started,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	got := buf.String()

	assert.Contains(t, got, "3f2b9a7c")
	assert.NotContains(t, got, "3f2b9a7c-")
	assert.Contains(t, got, "enrich")
	assert.Contains(t, got, "12345")
	assert.Contains(t, got, "1m35s")
	assert.Contains(t, got, "pdfs")
	assert.Contains(t, got, "failed")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
}
