package controllers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepio-app/stepio-server/app/models"
)

func TestBuildDailyLogCSV(t *testing.T) {
	t.Parallel()

	data, err := buildDailyLogCSV([]models.DailyLogEntry{
		{Day: "2026-08-01", Mood: "calmo", Food: "comeu bem", Sleep: "8h", Crisis: "nenhuma"},
		{Day: "2026-08-02", Mood: "agitado", Food: "recusou \"papinha\"", Sleep: "6h, interrompido", Crisis: "1 crise leve"},
	})
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Data,Humor,Alimentação,Sono,Crises", lines[0])
	assert.Equal(t, "2026-08-01,calmo,comeu bem,8h,nenhuma", lines[1])

	// Embedded quotes and commas survive the round trip escaped.
	assert.Contains(t, lines[2], `"recusou ""papinha"""`)
	assert.Contains(t, lines[2], `"6h, interrompido"`)
}

func TestBuildDailyLogCSVEmpty(t *testing.T) {
	t.Parallel()

	data, err := buildDailyLogCSV(nil)
	assert.NoError(t, err)
	assert.Equal(t, "Data,Humor,Alimentação,Sono,Crises\n", string(data))
}
