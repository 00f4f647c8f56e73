package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalProvince(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"short name", "湖北", "湖北", true},
		{"full name", "湖北省", "湖北", true},
		{"municipality", "北京市", "北京", true},
		{"autonomous region", "广西壮族自治区", "广西", true},
		{"SAR", "香港特别行政区", "香港", true},
		{"nul padded", "新疆维吾尔自治区\x00\x00\x00", "新疆", true},
		{"space padded", "  内蒙古自治区 ", "内蒙古", true},
		{"unknown", "钓鱼岛", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalProvince(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// Substring containment would wrongly match these pairs.
func TestCanonicalProvince_NoSubstringMatches(t *testing.T) {
	for _, name := range []string{"海", "江", "山", "湖", "西"} {
		_, ok := CanonicalProvince(name)
		assert.False(t, ok, name)
	}

	shanxi, _ := CanonicalProvince("山西省")
	shaanxi, _ := CanonicalProvince("陕西省")
	assert.NotEqual(t, shanxi, shaanxi)
}

func TestProvinces_TableIsConsistent(t *testing.T) {
	ps := Provinces()
	require.Len(t, ps, 34)

	seen := make(map[string]bool)
	for _, p := range ps {
		assert.False(t, seen[p.Short], "duplicate short name %s", p.Short)
		seen[p.Short] = true

		short, ok := CanonicalProvince(p.Full)
		assert.True(t, ok)
		assert.Equal(t, p.Short, short)
	}

	// Mutating the copy must not affect the table.
	ps[0].Short = "x"
	_, ok := CanonicalProvince("北京")
	assert.True(t, ok)
}

func TestIndexByProvince(t *testing.T) {
	counts := RegionCounts{"湖北": 11177, "广东省": 604, "钻石公主号": 61}

	idx, unmatched := IndexByProvince(counts)

	assert.Equal(t, ProvinceCounts{"湖北": 11177, "广东": 604}, idx)
	assert.Equal(t, []string{"钻石公主号"}, unmatched)

	n, ok := idx.Lookup("湖北省\x00")
	assert.True(t, ok)
	assert.Equal(t, 11177, n)

	_, ok = idx.Lookup("西藏自治区")
	assert.False(t, ok)
}

func TestShape_IsTopLevel(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]string
		expected bool
	}{
		{"province entry", map[string]string{AttrOwner: "台湾省", AttrFCName: "台湾省\x00\x00"}, true},
		{"island entry", map[string]string{AttrOwner: "广东省", AttrFCName: "南澳岛"}, false},
		{"no attributes", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Shape{Attributes: tt.attrs}.IsTopLevel())
		})
	}
}

func TestRequireAttributes(t *testing.T) {
	full := Shape{Attributes: map[string]string{AttrOwner: "湖北省", AttrFCName: "湖北省"}}
	blank := Shape{Attributes: map[string]string{AttrOwner: "", AttrFCName: ""}}

	require.NoError(t, RequireAttributes([]Shape{full, blank}, AttrOwner, AttrFCName))

	tests := []struct {
		name   string
		shapes []Shape
		want   string
	}{
		{"empty layer", nil, "no records"},
		{"no attribute table", []Shape{full, {Attributes: map[string]string{}}}, "record 1 has no OWNER column"},
		{"missing one column", []Shape{{Attributes: map[string]string{AttrOwner: "湖北省"}}}, "record 0 has no FCNAME column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireAttributes(tt.shapes, AttrOwner, AttrFCName)
			require.ErrorIs(t, err, ErrMissingAttribute)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
