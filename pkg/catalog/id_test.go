package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ItemID
	}{
		{name: "plain integer", in: "7", want: "7"},
		{name: "padded", in: " 007 ", want: "7"},
		{name: "integral float", in: "7.0", want: "7"},
		{name: "fraction", in: "7.25", want: "7.25"},
		{name: "opaque", in: "sku-12", want: "sku-12"},
		{name: "negative", in: "-3", want: "-3"},
		{name: "signed", in: "+0042", want: "42"},
		{name: "zero", in: "-000", want: "0"},
		{name: "beyond int64", in: "0012345678901234567890", want: "12345678901234567890"},
		{name: "exponent kept verbatim", in: "1E5", want: "1E5"},
		{name: "non-zero fraction kept verbatim", in: "7.50", want: "7.50"},
		{name: "bare dot", in: "7.", want: "7."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseID("   ")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestParseIDKeepsDistinctIdentifiers(t *testing.T) {
	pairs := [][2]string{
		{"12345678901234567890", "12345678901234567891"},
		{"99999999999999999999999", "99999999999999999999998"},
		{"1e3", "1000"},
		{"1E5", "100000"},
	}
	for _, p := range pairs {
		a, err := ParseID(p[0])
		require.NoError(t, err)
		b, err := ParseID(p[1])
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "%s vs %s", p[0], p[1])
		assert.Len(t, NewIDSet(a, b), 2)
	}
}

func TestCanonicalIDNumbersByExactValue(t *testing.T) {
	tests := []struct {
		in   json.Number
		want ItemID
	}{
		{"1e3", "1000"},
		{"12345678901234567891", "12345678901234567891"},
		{"1.5e1", "15"},
		{"2.5", "2.5"},
	}
	for _, tt := range tests {
		got, err := CanonicalID(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "number %s", tt.in)
	}

	var ids []ItemID
	require.NoError(t, json.Unmarshal([]byte(`[12345678901234567890, 12345678901234567891, "12345678901234567891"]`), &ids))
	assert.Equal(t, []ItemID{"12345678901234567890", "12345678901234567891", "12345678901234567891"}, ids)
	assert.Len(t, NewIDSet(ids...), 2)

	out, err := json.Marshal(ids[:1])
	require.NoError(t, err)
	assert.Equal(t, `[12345678901234567890]`, string(out))
}

func TestCanonicalIDMixedTypes(t *testing.T) {
	for _, v := range []interface{}{7, int64(7), 7.0, "7", json.Number("7"), ItemID("07")} {
		got, err := CanonicalID(v)
		require.NoError(t, err, "value %#v", v)
		assert.Equal(t, ItemID("7"), got, "value %#v", v)
	}

	_, err := CanonicalID([]int{1})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestItemIDJSON(t *testing.T) {
	var ids []ItemID
	require.NoError(t, json.Unmarshal([]byte(`[7, "7", "12", 3.0, "abc"]`), &ids))
	assert.Equal(t, []ItemID{"7", "7", "12", "3", "abc"}, ids)

	out, err := json.Marshal([]ItemID{"7", "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `[7, "abc"]`, string(out))

	var bad ItemID
	assert.Error(t, json.Unmarshal([]byte(`{"id": 1}`), &bad))
}

func TestSortIDs(t *testing.T) {
	ids := []ItemID{"b", "10", "9", "a", "100", "-5", "12345678901234567891", "12345678901234567890", "-20"}
	SortIDs(ids)
	assert.Equal(t, []ItemID{"-20", "-5", "9", "10", "100", "12345678901234567890", "12345678901234567891", "a", "b"}, ids)
}

func TestIDSet(t *testing.T) {
	a := NewIDSet("1", "2", "3", "3")
	b := NewIDSet("3", "4", "1")

	assert.Len(t, a, 3)
	assert.Equal(t, 2, a.IntersectionSize(b))
	assert.Equal(t, 2, b.IntersectionSize(a))
	assert.Equal(t, 0, a.IntersectionSize(NewIDSet()))
	assert.Equal(t, []ItemID{"1", "2", "3"}, a.Sorted())
}
