package data

// Kind tells how a column's values are stored.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "object"
	}
	return "float64"
}

// Column is a single named column. Exactly one of Num or Cat is populated,
// depending on Kind.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Cat  []string
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Cat)
	}
	return len(c.Num)
}

// Clone deep copies the column.
func (c Column) Clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	if c.Cat != nil {
		out.Cat = append([]string(nil), c.Cat...)
	}
	return out
}

// Table is a column-major in-memory dataset. Stages never modify a table
// they receive; they build a new one.
type Table struct {
	Columns []Column
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i := t.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}
