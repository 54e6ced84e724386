package dataprep

import (
	"errors"
	"fmt"
	"sort"

	"loanrisk/pkg/data"
)

var (
	ErrUnknownColumn  = errors.New("dataprep: unknown column")
	ErrNotCategorical = errors.New("dataprep: column is not categorical")
)

// Categories returns the distinct values of data in lexicographic order.
func Categories(data []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range data {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// EncodeCategorical one-hot encodes a slice of string categories. Column j
// of the result is the indicator for categories[j].
func EncodeCategorical(data []string) ([][]float64, []string) {
	codes, mapping := LabelEncode(data)
	categories := make([]string, len(mapping))
	for c, i := range mapping {
		categories[i] = c
	}
	out := make([][]float64, len(data))
	for i, code := range codes {
		vec := make([]float64, len(categories))
		vec[code] = 1
		out[i] = vec
	}
	return out, categories
}

// LabelEncode encodes categories as integers following the sorted category
// order, so the mapping is stable across runs.
func LabelEncode(data []string) ([]int, map[string]int) {
	mapping := map[string]int{}
	for i, c := range Categories(data) {
		mapping[c] = i
	}
	out := make([]int, len(data))
	for i, v := range data {
		out[i] = mapping[v]
	}
	return out, mapping
}

// OneHot returns a copy of t in which the named categorical column is
// replaced by indicator columns "<column>_<category>" appended after the
// remaining columns. With dropFirst the lexicographically first category is
// the reference and gets no column, so k categories become k-1 indicators.
func OneHot(t *data.Table, column string, dropFirst bool) (*data.Table, error) {
	src, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if src.Kind != data.Categorical {
		return nil, fmt.Errorf("%w: %q", ErrNotCategorical, column)
	}

	encoded, categories := EncodeCategorical(src.Cat)
	first := 0
	if dropFirst {
		first = 1
	}

	out := &data.Table{Columns: make([]data.Column, 0, len(t.Columns)-1+len(categories)-first)}
	for _, c := range t.Columns {
		if c.Name == column {
			continue
		}
		out.Columns = append(out.Columns, c.Clone())
	}
	for j := first; j < len(categories); j++ {
		col := data.Column{
			Name: column + "_" + categories[j],
			Kind: data.Numeric,
			Num:  make([]float64, len(encoded)),
		}
		for i := range encoded {
			col.Num[i] = encoded[i][j]
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// OneHotAll encodes each of columns in turn.
func OneHotAll(t *data.Table, columns []string, dropFirst bool) (*data.Table, error) {
	var err error
	for _, c := range columns {
		if t, err = OneHot(t, c, dropFirst); err != nil {
			return nil, err
		}
	}
	return t, nil
}
