package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrDataUnavailable is returned when the input file is missing or does not
// match LoanSchema.
var ErrDataUnavailable = errors.New("data unavailable")

// ValueType constrains the values a numeric column accepts.
type ValueType int

const (
	Real ValueType = iota
	Integer
	Binary
	Text
)

// Field describes one column of the fixed input schema.
type Field struct {
	Name string
	Type ValueType
}

// Kind maps the field type to its storage kind.
func (f Field) Kind() Kind {
	if f.Type == Text {
		return Categorical
	}
	return Numeric
}

// Target is the label column of the loan dataset.
const Target = "not.fully.paid"

// Purpose is the categorical column that gets one-hot encoded.
const Purpose = "purpose"

// LoanSchema is the ordered column layout of loan_data.csv.
var LoanSchema = []Field{
	{"credit.policy", Binary},
	{Purpose, Text},
	{"int.rate", Real},
	{"installment", Real},
	{"log.annual.inc", Real},
	{"dti", Real},
	{"fico", Integer},
	{"days.with.cr.line", Real},
	{"revol.bal", Real},
	{"revol.util", Real},
	{"inq.last.6mths", Integer},
	{"delinq.2yrs", Integer},
	{"pub.rec", Integer},
	{Target, Binary},
}

// LoadLoans reads the loan table at path.
func LoadLoans(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer file.Close()
	return ReadLoans(bufio.NewReader(file))
}

// ReadLoans parses a loan table from r. The header must match LoanSchema
// exactly and every row must satisfy its column's constraint.
func ReadLoans(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	// field counts are checked below so that the error can name the line
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrDataUnavailable, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	cols := make([]Column, len(LoanSchema))
	for i, f := range LoanSchema {
		cols[i] = Column{Name: f.Name, Kind: f.Kind()}
	}

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDataUnavailable, line, err)
		}
		if len(rec) != len(LoanSchema) {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d",
				ErrDataUnavailable, line, len(LoanSchema), len(rec))
		}
		for i, f := range LoanSchema {
			s := strings.TrimSpace(rec[i])
			if f.Type == Text {
				if s == "" {
					return nil, fmt.Errorf("%w: line %d: column %q is empty", ErrDataUnavailable, line, f.Name)
				}
				cols[i].Cat = append(cols[i].Cat, s)
				continue
			}
			v, err := parseValue(s, f.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: column %q: %v", ErrDataUnavailable, line, f.Name, err)
			}
			cols[i].Num = append(cols[i].Num, v)
		}
	}
	if line == 1 {
		return nil, fmt.Errorf("%w: no data rows", ErrDataUnavailable)
	}
	return &Table{Columns: cols}, nil
}

func checkHeader(header []string) error {
	if len(header) != len(LoanSchema) {
		return fmt.Errorf("%w: header has %d columns, expected %d",
			ErrDataUnavailable, len(header), len(LoanSchema))
	}
	for i, f := range LoanSchema {
		name := strings.TrimSpace(header[i])
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name != f.Name {
			return fmt.Errorf("%w: header column %d is %q, expected %q",
				ErrDataUnavailable, i+1, name, f.Name)
		}
	}
	return nil
}

func parseValue(s string, typ ValueType) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	switch typ {
	case Integer:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
	case Binary:
		if v != 0 && v != 1 {
			return 0, fmt.Errorf("not 0 or 1: %q", s)
		}
	}
	return v, nil
}
