// Package fuzzy compares an agent's result table against a gold
// standard CSV, tolerating the differences that do not matter for
// correctness: column names, column order, row order, and numeric noise
// within a small tolerance. Columns are matched by their content, not
// their names, and extra result columns are ignored.
package fuzzy

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"
)

// Tolerance is the absolute and relative tolerance for numeric
// comparisons.
const Tolerance = 1e-5

// Table is a named-column table of string cells, as read from CSV or a
// query result.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV parses a table from CSV, first record as the header.
func ReadCSV(r io.Reader) (Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return Table{}, errors.Wrap(err, "parsing csv")
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}

// Report is the outcome of one comparison.
type Report struct {
	Match  bool
	Reason string
	// Diff holds a unified diff of the canonicalized tables when the
	// content differs, empty otherwise.
	Diff string
}

// Compare checks the result table against the gold table.
func Compare(gold, result Table) Report {
	if len(gold.Rows) == 0 && len(result.Rows) == 0 {
		return Report{Match: true}
	}
	if len(gold.Rows) != len(result.Rows) {
		return Report{Reason: fmt.Sprintf("row count mismatch: gold=%d, result=%d", len(gold.Rows), len(result.Rows))}
	}
	if len(gold.Columns) > len(result.Columns) {
		return Report{Reason: fmt.Sprintf("result has fewer columns (%d) than expected (%d)", len(result.Columns), len(gold.Columns))}
	}

	mapping, err := matchColumns(gold, result)
	if err != nil {
		return Report{Reason: err.Error()}
	}

	goldCanon := canonicalize(gold, identityMapping(gold.Columns))
	resultCanon := canonicalize(result, mapping)

	if reason := compareCanonical(goldCanon, resultCanon); reason != "" {
		return Report{
			Reason: reason,
			Diff:   udiff.Unified("gold", "result", renderTable(goldCanon), renderTable(resultCanon)),
		}
	}
	return Report{Match: true}
}

// column extracts one column's cells by index.
func column(t Table, idx int) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

func isNumericColumn(values []string) bool {
	seen := false
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func numericallyClose(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance+Tolerance*math.Abs(b)
}

// valuesMatch compares two sorted value slices, exactly for text and
// within tolerance for numbers.
func valuesMatch(goldValues, resultValues []string, numeric bool) bool {
	if len(goldValues) != len(resultValues) {
		return false
	}
	for i := range goldValues {
		if goldValues[i] == resultValues[i] {
			continue
		}
		if !numeric {
			return false
		}
		g, gerr := strconv.ParseFloat(goldValues[i], 64)
		r, rerr := strconv.ParseFloat(resultValues[i], 64)
		if gerr != nil || rerr != nil || !numericallyClose(g, r) {
			return false
		}
	}
	return true
}

func sortedCopy(values []string, numeric bool) []string {
	out := append([]string(nil), values...)
	if numeric {
		sort.Slice(out, func(i, j int) bool {
			a, aerr := strconv.ParseFloat(out[i], 64)
			b, berr := strconv.ParseFloat(out[j], 64)
			if aerr != nil || berr != nil {
				return out[i] < out[j]
			}
			return a < b
		})
		return out
	}
	sort.Strings(out)
	return out
}

// matchColumns maps each gold column to a distinct result column with
// the same content. It fails when any gold column has no counterpart.
func matchColumns(gold, result Table) (map[string]int, error) {
	goldOrder := make([]int, len(gold.Columns))
	for i := range goldOrder {
		goldOrder[i] = i
	}
	sort.Slice(goldOrder, func(i, j int) bool {
		return gold.Columns[goldOrder[i]] < gold.Columns[goldOrder[j]]
	})

	mapping := make(map[string]int)
	used := make(map[int]bool)
	var unmatched []string

	for _, gi := range goldOrder {
		goldValues := column(gold, gi)
		goldNumeric := isNumericColumn(goldValues)
		goldSorted := sortedCopy(goldValues, goldNumeric)

		found := false
		for ri := range result.Columns {
			if used[ri] {
				continue
			}
			resultValues := column(result, ri)
			resultNumeric := isNumericColumn(resultValues)
			if goldNumeric != resultNumeric {
				continue
			}
			if valuesMatch(goldSorted, sortedCopy(resultValues, resultNumeric), goldNumeric) {
				mapping[gold.Columns[gi]] = ri
				used[ri] = true
				found = true
				break
			}
		}
		if !found {
			unmatched = append(unmatched, gold.Columns[gi])
		}
	}

	if len(unmatched) > 0 {
		return nil, errors.Errorf("could not match gold columns %v, available result columns: %v",
			unmatched, result.Columns)
	}
	return mapping, nil
}

func identityMapping(columns []string) map[string]int {
	mapping := make(map[string]int, len(columns))
	for i, name := range columns {
		mapping[name] = i
	}
	return mapping
}

// canonicalize projects a table onto the mapped columns in sorted gold
// column order, normalizes numeric cells, and sorts the rows, so two
// equivalent tables canonicalize identically.
func canonicalize(t Table, mapping map[string]int) Table {
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	numeric := make([]bool, len(names))
	for i, name := range names {
		numeric[i] = isNumericColumn(column(t, mapping[name]))
	}

	rows := make([][]string, len(t.Rows))
	for ri, row := range t.Rows {
		out := make([]string, len(names))
		for ci, name := range names {
			cell := ""
			if idx := mapping[name]; idx < len(row) {
				cell = row[idx]
			}
			if numeric[ci] && cell != "" {
				if f, err := strconv.ParseFloat(cell, 64); err == nil {
					cell = strconv.FormatFloat(f, 'g', -1, 64)
				}
			}
			out[ci] = cell
		}
		rows[ri] = out
	}

	sort.Slice(rows, func(i, j int) bool {
		for c := range names {
			if rows[i][c] != rows[j][c] {
				if numeric[c] {
					a, aerr := strconv.ParseFloat(rows[i][c], 64)
					b, berr := strconv.ParseFloat(rows[j][c], 64)
					if aerr == nil && berr == nil && a != b {
						return a < b
					}
				}
				return rows[i][c] < rows[j][c]
			}
		}
		return false
	})

	return Table{Columns: names, Rows: rows}
}

// compareCanonical compares two canonicalized tables cell by cell,
// reporting the first difference outside tolerance.
func compareCanonical(gold, result Table) string {
	for ri := range gold.Rows {
		for ci, name := range gold.Columns {
			g := gold.Rows[ri][ci]
			r := result.Rows[ri][ci]
			if g == r {
				continue
			}
			gf, gerr := strconv.ParseFloat(g, 64)
			rf, rerr := strconv.ParseFloat(r, 64)
			if gerr == nil && rerr == nil && numericallyClose(gf, rf) {
				continue
			}
			return fmt.Sprintf("column '%s' differs at row %d: gold=%s, result=%s", name, ri, g, r)
		}
	}
	return ""
}

func renderTable(t Table) string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, ","))
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}
