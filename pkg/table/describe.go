package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papercomputeco/tablechat/pkg/utils"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindEmpty   Kind = "empty"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBool    Kind = "bool"
	KindText    Kind = "text"
)

// ColumnSummary describes one column.
type ColumnSummary struct {
	Name     string
	Kind     Kind
	NonEmpty int

	// Min, Max and Mean are set for numeric columns.
	Min, Max, Mean float64
}

// Describe infers a Kind for every column and computes numeric summaries.
func (t *Table) Describe() []ColumnSummary {
	out := make([]ColumnSummary, len(t.Columns))
	for i, name := range t.Columns {
		out[i] = t.describeColumn(i, name)
	}
	return out
}

func (t *Table) describeColumn(idx int, name string) ColumnSummary {
	s := ColumnSummary{Name: name, Kind: KindEmpty}

	allInt, allNum, allBool := true, true, true
	var sum float64
	for _, row := range t.Rows {
		v := row[idx]
		if v == "" {
			continue
		}
		s.NonEmpty++

		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			allNum = false
		} else {
			if s.NonEmpty == 1 || f < s.Min {
				s.Min = f
			}
			if s.NonEmpty == 1 || f > s.Max {
				s.Max = f
			}
			sum += f
		}
		if _, err := strconv.ParseBool(v); err != nil {
			allBool = false
		}
	}

	switch {
	case s.NonEmpty == 0:
		return s
	case allInt:
		s.Kind = KindInteger
	case allNum:
		s.Kind = KindNumber
	case allBool:
		s.Kind = KindBool
	default:
		s.Kind = KindText
	}

	if allNum {
		s.Mean = sum / float64(s.NonEmpty)
	} else {
		s.Min, s.Max = 0, 0
	}
	return s
}

// Markdown renders up to maxRows rows and maxCols columns as a markdown
// table. Long cells are truncated.
func (t *Table) Markdown(maxRows, maxCols int) string {
	cols := min(maxCols, len(t.Columns))
	if cols == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(t.Columns[:cols]), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")

	for _, row := range t.Rows[:min(maxRows, len(t.Rows))] {
		b.WriteString("| " + strings.Join(escapeCells(row[:cols]), " | ") + " |\n")
	}

	if extra := len(t.Columns) - cols; extra > 0 {
		fmt.Fprintf(&b, "\n... %d more columns\n", extra)
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		c = strings.ReplaceAll(c, "\n", " ")
		out[i] = utils.Truncate(c, 20)
	}
	return out
}
