package pipeline

import (
	"fmt"
	"io"
	"slices"

	"loanrisk/pkg/data"
)

// Schema describes the columns a stage produced.
type Schema struct {
	FeatureNames []string
	Types        []string // "float64" or "object"
}

// SchemaOf returns the schema of t in column order, leaving out the columns
// named in exclude (the target).
func SchemaOf(t *data.Table, exclude ...string) Schema {
	var s Schema
	for _, c := range t.Columns {
		if slices.Contains(exclude, c.Name) {
			continue
		}
		s.FeatureNames = append(s.FeatureNames, c.Name)
		s.Types = append(s.Types, c.Kind.String())
	}
	return s
}

// Write prints one "position name type" line per column.
func (s Schema) Write(w io.Writer) error {
	for i, name := range s.FeatureNames {
		if _, err := fmt.Fprintf(w, "%3d  %-28s %s\n", i, name, s.Types[i]); err != nil {
			return err
		}
	}
	return nil
}
