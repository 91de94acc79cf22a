package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhmedTUD/invoice/internal/model"
)

func sampleRecords() []model.JoinedRecord {
	return []model.JoinedRecord{
		{Name: "Ahmed Ali", Serial: "EMP-1", StoreName: "Cairo Mall", StoreCode: "CAI-01", Model: "RS68AB820B1/MR", SalesDate: "2024-01-01", InvoiceID: "a"},
		{Name: "Sara Omar", Serial: "EMP-2", StoreName: "Alex Center", StoreCode: "ALX-02", Model: "WW11B944DGB/AS", SalesDate: "2024-01-15", InvoiceID: "b"},
		{Name: "ahmed hassan", Serial: "EMP-3", StoreName: "Giza", StoreCode: "GIZ-03", Model: "UE55AU7000UXEG", SalesDate: "2024-02-01", InvoiceID: "c"},
		{Name: "Mona", Serial: "EMP-4", StoreName: "Cairo Mall", StoreCode: "CAI-01"},
	}
}

func ids(recs []model.JoinedRecord) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.InvoiceID)
	}
	return out
}

func TestApply_EmptySetReturnsInput(t *testing.T) {
	recs := sampleRecords()

	got := Set{}.Apply(recs)

	assert.Equal(t, recs, got)
	assert.True(t, Set{Name: "  "}.IsEmpty())
}

func TestApply_DateRangeInclusive(t *testing.T) {
	got := Set{DateFrom: "2024-01-01", DateTo: "2024-01-31"}.Apply(sampleRecords())

	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestMatch_Predicates(t *testing.T) {
	recs := sampleRecords()
	cases := []struct {
		name string
		set  Set
		want []string
	}{
		{"name is case-insensitive substring", Set{Name: "AHMED"}, []string{"a", "c"}},
		{"serial substring", Set{Serial: "emp-2"}, []string{"b"}},
		{"store matches name", Set{Store: "cairo"}, []string{"a", ""}},
		{"store matches code", Set{Store: "alx"}, []string{"b"}},
		{"model substring", Set{Model: "ww11"}, []string{"b"}},
		{"predicates are conjunctive", Set{Name: "ahmed", Store: "giza"}, []string{"c"}},
		{"date bound excludes records without sales date", Set{DateTo: "2030-01-01"}, []string{"a", "b", "c"}},
		{"no match", Set{Name: "nobody"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.set.Apply(recs)))
		})
	}
}

func TestWhere_Empty(t *testing.T) {
	where, args := Set{}.Where()

	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestWhere_AllFields(t *testing.T) {
	where, args := Set{
		Name: " Ahmed ", Serial: "E_1", Store: "CAI", Model: "RS%", DateFrom: "2024-01-01", DateTo: "2024-01-31",
	}.Where()

	assert.Equal(t,
		"LOWER(s.name) LIKE ? ESCAPE '!' AND LOWER(s.serial) LIKE ? ESCAPE '!' AND "+
			"(LOWER(s.store_name) LIKE ? ESCAPE '!' OR LOWER(s.store_code) LIKE ? ESCAPE '!') AND "+
			"LOWER(i.model) LIKE ? ESCAPE '!' AND i.sales_date >= ? AND i.sales_date <= ?",
		where)
	require.Len(t, args, 7)
	assert.Equal(t, []any{"%ahmed%", "%e!_1%", "%cai%", "%cai%", "%rs!%%", "2024-01-01", "2024-01-31"}, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!%", EscapeLike("100%"))
	assert.Equal(t, "a!_b", EscapeLike("a_b"))
	assert.Equal(t, "x!!y", EscapeLike("x!y"))
	assert.Equal(t, "فرع", EscapeLike("فرع"))
}
