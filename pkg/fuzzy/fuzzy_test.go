package fuzzy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(columns []string, rows ...[]string) Table {
	return Table{Columns: columns, Rows: rows}
}

func TestCompareIdenticalTables(t *testing.T) {
	gold := table([]string{"id", "amount"}, []string{"1", "10.5"}, []string{"2", "20.0"})
	report := Compare(gold, gold)
	assert.True(t, report.Match, report.Reason)
}

func TestCompareEmptyTables(t *testing.T) {
	report := Compare(Table{}, Table{})
	assert.True(t, report.Match)
}

func TestCompareToleratesColumnNames(t *testing.T) {
	gold := table([]string{"customer_id", "revenue"}, []string{"1", "100"}, []string{"2", "250"})
	result := table([]string{"id", "total"}, []string{"1", "100"}, []string{"2", "250"})

	report := Compare(gold, result)
	assert.True(t, report.Match, report.Reason)
}

func TestCompareToleratesColumnAndRowOrder(t *testing.T) {
	gold := table([]string{"name", "count"}, []string{"alpha", "1"}, []string{"beta", "2"})
	result := table([]string{"count", "name"}, []string{"2", "beta"}, []string{"1", "alpha"})

	report := Compare(gold, result)
	assert.True(t, report.Match, report.Reason)
}

func TestCompareToleratesNumericNoise(t *testing.T) {
	gold := table([]string{"v"}, []string{"1.000001"})
	result := table([]string{"v"}, []string{"1.0000015"})

	report := Compare(gold, result)
	assert.True(t, report.Match, report.Reason)
}

func TestCompareToleratesExtraResultColumns(t *testing.T) {
	gold := table([]string{"id"}, []string{"1"}, []string{"2"})
	result := table([]string{"id", "debug_note"}, []string{"1", "x"}, []string{"2", "y"})

	report := Compare(gold, result)
	assert.True(t, report.Match, report.Reason)
}

func TestCompareRowCountMismatch(t *testing.T) {
	gold := table([]string{"id"}, []string{"1"}, []string{"2"})
	result := table([]string{"id"}, []string{"1"})

	report := Compare(gold, result)
	require.False(t, report.Match)
	assert.Contains(t, report.Reason, "row count mismatch")
	assert.Contains(t, report.Reason, "gold=2")
}

func TestCompareMissingColumns(t *testing.T) {
	gold := table([]string{"id", "amount"}, []string{"1", "10"})
	result := table([]string{"id"}, []string{"1"})

	report := Compare(gold, result)
	require.False(t, report.Match)
	assert.Contains(t, report.Reason, "fewer columns")
}

func TestCompareUnmatchableColumn(t *testing.T) {
	gold := table([]string{"id", "amount"}, []string{"1", "10"}, []string{"2", "20"})
	result := table([]string{"id", "amount"}, []string{"1", "99"}, []string{"2", "88"})

	report := Compare(gold, result)
	require.False(t, report.Match)
	assert.Contains(t, report.Reason, "could not match gold columns")
}

func TestCompareValueMismatchNamesColumnAndRow(t *testing.T) {
	// Same value multiset in a text column cannot be confused with a
	// numeric one, so force a per-cell mismatch via pairing.
	gold := table([]string{"a", "b"},
		[]string{"x", "1"},
		[]string{"y", "2"},
	)
	result := table([]string{"a", "b"},
		[]string{"x", "2"},
		[]string{"y", "1"},
	)

	report := Compare(gold, result)
	require.False(t, report.Match)
	assert.Contains(t, report.Reason, "differs at row")
	assert.NotEmpty(t, report.Diff)
	assert.Contains(t, report.Diff, "-")
}

func TestCompareNumericFormattingDifferences(t *testing.T) {
	gold := table([]string{"v"}, []string{"10"})
	result := table([]string{"v"}, []string{"10.0"})

	report := Compare(gold, result)
	assert.True(t, report.Match, report.Reason)
}

func TestReadCSV(t *testing.T) {
	input := "id,amount\n1,10.5\n2,20.0\n"
	parsed, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount"}, parsed.Columns)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, []string{"1", "10.5"}, parsed.Rows[0])
}

func TestReadCSVEmpty(t *testing.T) {
	parsed, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, parsed.Columns)
	assert.Empty(t, parsed.Rows)
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3,4\n"))
	require.Error(t, err)
}
