package domain

import "strings"

// Province pairs the short name used by the feed with the full name used by
// the province shapefile.
type Province struct {
	Short string
	Full  string
}

var provinces = []Province{
	{Short: "北京", Full: "北京市"},
	{Short: "天津", Full: "天津市"},
	{Short: "河北", Full: "河北省"},
	{Short: "山西", Full: "山西省"},
	{Short: "内蒙古", Full: "内蒙古自治区"},
	{Short: "辽宁", Full: "辽宁省"},
	{Short: "吉林", Full: "吉林省"},
	{Short: "黑龙江", Full: "黑龙江省"},
	{Short: "上海", Full: "上海市"},
	{Short: "江苏", Full: "江苏省"},
	{Short: "浙江", Full: "浙江省"},
	{Short: "安徽", Full: "安徽省"},
	{Short: "福建", Full: "福建省"},
	{Short: "江西", Full: "江西省"},
	{Short: "山东", Full: "山东省"},
	{Short: "河南", Full: "河南省"},
	{Short: "湖北", Full: "湖北省"},
	{Short: "湖南", Full: "湖南省"},
	{Short: "广东", Full: "广东省"},
	{Short: "广西", Full: "广西壮族自治区"},
	{Short: "海南", Full: "海南省"},
	{Short: "重庆", Full: "重庆市"},
	{Short: "四川", Full: "四川省"},
	{Short: "贵州", Full: "贵州省"},
	{Short: "云南", Full: "云南省"},
	{Short: "西藏", Full: "西藏自治区"},
	{Short: "陕西", Full: "陕西省"},
	{Short: "甘肃", Full: "甘肃省"},
	{Short: "青海", Full: "青海省"},
	{Short: "宁夏", Full: "宁夏回族自治区"},
	{Short: "新疆", Full: "新疆维吾尔自治区"},
	{Short: "台湾", Full: "台湾省"},
	{Short: "香港", Full: "香港特别行政区"},
	{Short: "澳门", Full: "澳门特别行政区"},
}

var provinceIndex = func() map[string]string {
	idx := make(map[string]string, 2*len(provinces))
	for _, p := range provinces {
		idx[p.Short] = p.Short
		idx[p.Full] = p.Short
	}
	return idx
}()

// Provinces returns the provincial-level divisions known to the name table.
func Provinces() []Province {
	out := make([]Province, len(provinces))
	copy(out, provinces)
	return out
}

// NormalizeName strips NUL padding and surrounding whitespace, both of which
// appear in DBF attribute values.
func NormalizeName(s string) string {
	return strings.Trim(s, "\x00 \t\r\n　")
}

// CanonicalProvince maps a short or full province name to its short form.
func CanonicalProvince(name string) (string, bool) {
	short, ok := provinceIndex[NormalizeName(name)]
	return short, ok
}

// ProvinceCounts maps canonical province names to confirmed counts.
type ProvinceCounts map[string]int

// Lookup resolves a short or full province name to its count.
func (pc ProvinceCounts) Lookup(name string) (int, bool) {
	short, ok := CanonicalProvince(name)
	if !ok {
		return 0, false
	}
	n, ok := pc[short]
	return n, ok
}

// IndexByProvince re-keys region counts by canonical province name. Names
// outside the table are returned in sorted order. Regions are visited in
// sorted name order, so if two spellings of one province are present the
// later spelling wins.
func IndexByProvince(counts RegionCounts) (ProvinceCounts, []string) {
	out := make(ProvinceCounts, len(counts))
	var unmatched []string
	for _, name := range counts.Names() {
		short, ok := CanonicalProvince(name)
		if !ok {
			unmatched = append(unmatched, name)
			continue
		}
		out[short] = counts[name]
	}
	return out, unmatched
}
