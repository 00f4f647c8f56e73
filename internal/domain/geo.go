package domain

import "fmt"

// DBF attribute names in the province shapefile.
const (
	AttrOwner  = "OWNER"
	AttrFCName = "FCNAME"
)

// Point is a longitude/latitude pair in degrees.
type Point struct {
	X, Y float64
}

// Shape is one shapefile record: its rings and its DBF attributes.
type Shape struct {
	Rings      [][]Point
	Attributes map[string]string
}

// Attr returns a normalized attribute value, or "" when absent.
func (s Shape) Attr(name string) string {
	return NormalizeName(s.Attributes[name])
}

// IsTopLevel reports whether the record is a province's own entry rather
// than an island or other sub-entry listed under it.
func (s Shape) IsTopLevel() bool {
	return s.Attr(AttrOwner) == s.Attr(AttrFCName)
}

// RequireAttributes checks that the layer has records and that every record
// carries the named columns. Values may be empty.
func RequireAttributes(shapes []Shape, names ...string) error {
	if len(shapes) == 0 {
		return fmt.Errorf("%w: layer has no records", ErrMissingAttribute)
	}
	for i, s := range shapes {
		for _, name := range names {
			if _, ok := s.Attributes[name]; !ok {
				return fmt.Errorf("%w: record %d has no %s column", ErrMissingAttribute, i, name)
			}
		}
	}
	return nil
}

// MapLayers groups the geometry drawn under and over the province fills.
type MapLayers struct {
	Provinces []Shape
	Boundary  []Shape
	Basemap   []Shape
}

// ChoroplethSummary describes how province shapes were colored.
type ChoroplethSummary struct {
	Reported         int
	Unreported       int
	Skipped          int
	UnmatchedRegions []string
	Buckets          map[Severity]int
}
