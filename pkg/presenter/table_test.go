package presenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"SKILL SET", "PASSED", "FAILED"},
		[][]string{
			{"baseline", "1", "2"},
			{"with-skills", "3", "0"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SKILL SET")
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, lines[2], "baseline")
	assert.Contains(t, lines[3], "with-skills")

	// Columns align to the widest cell
	assert.Contains(t, lines[2], "baseline     1")
}

func TestRenderTableShortRow(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"only-a"}})
	assert.Contains(t, out, "only-a")
}

func TestTableQuietMode(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetQuiet(true)

	presenter.Table([]string{"A"}, [][]string{{"1"}})

	assert.Empty(t, output.String())
}

func TestTableWritesOutput(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Table([]string{"TASK", "STATUS"}, [][]string{{"revenue_report", "passed"}})

	result := output.String()
	assert.Contains(t, result, "TASK")
	assert.Contains(t, result, "revenue_report")
}
