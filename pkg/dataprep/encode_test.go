package dataprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/pkg/data"
)

func loanTable() *data.Table {
	return &data.Table{Columns: []data.Column{
		{Name: "fico", Kind: data.Numeric, Num: []float64{700, 710, 720, 730, 740}},
		{Name: "purpose", Kind: data.Categorical, Cat: []string{"debt_consolidation", "all_other", "credit_card", "all_other", "small_business"}},
		{Name: "not.fully.paid", Kind: data.Numeric, Num: []float64{0, 1, 0, 0, 1}},
	}}
}

func TestCategoriesSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Categories([]string{"c", "a", "b", "a"}))
	assert.Empty(t, Categories(nil))
}

func TestLabelEncodeStable(t *testing.T) {
	codes, mapping := LabelEncode([]string{"z", "a", "m", "a"})
	assert.Equal(t, []int{2, 0, 1, 0}, codes)
	assert.Equal(t, map[string]int{"a": 0, "m": 1, "z": 2}, mapping)
}

func TestEncodeCategoricalFollowsLabelCodes(t *testing.T) {
	in := []string{"z", "a", "m", "a"}
	vecs, cats := EncodeCategorical(in)
	codes, _ := LabelEncode(in)
	assert.Equal(t, []string{"a", "m", "z"}, cats)
	for i, v := range vecs {
		assert.Equal(t, 1.0, v[codes[i]], "row %d", i)
		assert.Len(t, v, len(cats))
	}
}

func TestOneHotDropFirst(t *testing.T) {
	in := loanTable()
	out, err := OneHot(in, "purpose", true)
	require.NoError(t, err)

	// k = 4 categories, reference all_other dropped
	assert.Equal(t, []string{
		"fico", "not.fully.paid",
		"purpose_credit_card", "purpose_debt_consolidation", "purpose_small_business",
	}, out.Names())
	assert.Equal(t, in.Len(), out.Len())
	assert.Len(t, out.Columns, len(in.Columns)-1+(4-1))

	indicators := out.Columns[2:]
	for i := 0; i < out.Len(); i++ {
		set := 0
		for _, c := range indicators {
			set += int(c.Num[i])
		}
		assert.LessOrEqual(t, set, 1, "row %d", i)
		if in.Columns[1].Cat[i] == "all_other" {
			assert.Equal(t, 0, set, "reference category row %d", i)
		} else {
			assert.Equal(t, 1, set, "row %d", i)
		}
	}
	assert.Equal(t, []float64{0, 0, 1, 0, 0}, indicators[0].Num)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, indicators[2].Num)

	// input is untouched and the output does not alias it
	out.Columns[0].Num[0] = -1
	assert.Equal(t, 700.0, in.Columns[0].Num[0])
	assert.Len(t, in.Columns, 3)
}

func TestOneHotKeepAll(t *testing.T) {
	out, err := OneHot(loanTable(), "purpose", false)
	require.NoError(t, err)
	assert.Len(t, out.Columns, 2+4)
	assert.Equal(t, "purpose_all_other", out.Columns[2].Name)
}

func TestOneHotErrors(t *testing.T) {
	_, err := OneHot(loanTable(), "missing", true)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = OneHot(loanTable(), "fico", true)
	assert.ErrorIs(t, err, ErrNotCategorical)
}

func TestOneHotAll(t *testing.T) {
	out, err := OneHotAll(loanTable(), []string{"purpose"}, true)
	require.NoError(t, err)
	assert.Len(t, out.Columns, 5)

	_, err = OneHotAll(loanTable(), []string{"purpose", "purpose"}, true)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestFeaturesAndTarget(t *testing.T) {
	enc, err := OneHot(loanTable(), "purpose", true)
	require.NoError(t, err)

	X, y, names, err := FeaturesAndTarget(enc, "not.fully.paid")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 0, 1}, y)
	assert.Equal(t, []string{"fico", "purpose_credit_card", "purpose_debt_consolidation", "purpose_small_business"}, names)
	require.Len(t, X, 5)
	assert.Equal(t, []float64{720, 1, 0, 0}, X[2])
}

func TestFeaturesAndTargetRequiresEncoding(t *testing.T) {
	_, _, _, err := FeaturesAndTarget(loanTable(), "not.fully.paid")
	assert.ErrorIs(t, err, ErrNotCategorical)

	_, _, _, err = FeaturesAndTarget(loanTable(), "label")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}
