package stats

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"loanrisk/pkg/data"
)

// Summary holds the describe() statistics of one numeric column.
type Summary struct {
	Name  string
	Count int
	Mean  float64
	Std   float64 // sample standard deviation
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe summarizes every numeric column of t in column order.
func Describe(t *data.Table) []Summary {
	var out []Summary
	for _, c := range t.Columns {
		if c.Kind != data.Numeric {
			continue
		}
		s := Summary{Name: c.Name, Count: len(c.Num)}
		if len(c.Num) > 0 {
			s.Mean, s.Std = stat.MeanStdDev(c.Num, nil)
			s.Min, s.Max = MinMax(c.Num)
			q := Quantiles(c.Num, 0.25, 0.5, 0.75)
			s.Q25, s.Q50, s.Q75 = q[0], q[1], q[2]
		}
		out = append(out, s)
	}
	return out
}

// WriteSummary prints summaries as a table with one row per column.
func WriteSummary(w io.Writer, summaries []Summary) error {
	if _, err := fmt.Fprintf(w, "%-20s %8s %12s %12s %12s %12s %12s %12s %12s\n",
		"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"); err != nil {
		return err
	}
	for _, s := range summaries {
		if _, err := fmt.Fprintf(w, "%-20s %8d %12.4f %12.4f %12.4f %12.4f %12.4f %12.4f %12.4f\n",
			s.Name, s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max); err != nil {
			return err
		}
	}
	return nil
}

// WriteInfo prints the column layout of t: position, name, non-null count
// and storage type.
func WriteInfo(w io.Writer, t *data.Table) error {
	if _, err := fmt.Fprintf(w, "%d entries, %d columns\n", t.Len(), len(t.Columns)); err != nil {
		return err
	}
	for i, c := range t.Columns {
		if _, err := fmt.Fprintf(w, "%3d  %-28s %6d non-null  %s\n", i, c.Name, c.Len(), c.Kind); err != nil {
			return err
		}
	}
	return nil
}

// CrossRow counts the rows of one category per label value.
type CrossRow struct {
	Category string
	Counts   map[int]int
	Total    int
}

// CrossTab counts rows by category and integer label, categories in
// lexicographic order.
func CrossTab(categories []string, labels []float64) []CrossRow {
	byCat := map[string]*CrossRow{}
	for i, c := range categories {
		row, ok := byCat[c]
		if !ok {
			row = &CrossRow{Category: c, Counts: map[int]int{}}
			byCat[c] = row
		}
		row.Counts[int(labels[i])]++
		row.Total++
	}
	out := make([]CrossRow, 0, len(byCat))
	for _, r := range byCat {
		out = append(out, *r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Category < out[b].Category })
	return out
}

// WriteCrossTab prints rows with one count column per label in labels.
func WriteCrossTab(w io.Writer, title string, rows []CrossRow, labels []int) error {
	if _, err := fmt.Fprintf(w, "%-20s", title); err != nil {
		return err
	}
	for _, l := range labels {
		fmt.Fprintf(w, " %8d", l)
	}
	fmt.Fprintf(w, " %8s\n", "total")
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s", r.Category)
		for _, l := range labels {
			fmt.Fprintf(w, " %8d", r.Counts[l])
		}
		if _, err := fmt.Fprintf(w, " %8d\n", r.Total); err != nil {
			return err
		}
	}
	return nil
}
