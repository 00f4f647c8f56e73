// Package shapefile reads ESRI shapefiles into domain shapes.
package shapefile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mgw2168/2019-nCoV/internal/domain"
)

// Loader reads shapefiles from disk. It implements pipeline.ShapeLoader.
type Loader struct {
	enc    encoding.Encoding // nil means attributes are already UTF-8
	logger *slog.Logger
}

// NewLoader creates a loader that decodes DBF text with the named encoding
// ("utf-8" or "gbk").
func NewLoader(enc string, logger *slog.Logger) (*Loader, error) {
	l := &Loader{logger: logger}
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
	case "gbk":
		l.enc = simplifiedchinese.GBK
	default:
		return nil, fmt.Errorf("unsupported shapefile encoding %q", enc)
	}
	return l, nil
}

// Load reads every record of the shapefile at path. The ".shp" extension is
// optional. The matching ".dbf" attribute table must exist next to it.
func (l *Loader) Load(path string) ([]domain.Shape, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	// go-shp ignores a missing table and reports no fields.
	dbf := path[:len(path)-len("shp")] + "dbf"
	if _, err := os.Stat(dbf); err != nil {
		return nil, fmt.Errorf("open attribute table %s: %w", dbf, err)
	}

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	var shapes []domain.Shape
	for r.Next() {
		n, s := r.Shape()

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			v, err := l.decode(r.ReadAttribute(n, i))
			if err != nil {
				return nil, fmt.Errorf("decode %s attribute %s of record %d: %w", path, name, n, err)
			}
			attrs[name] = strings.Trim(v, "\x00 ")
		}

		shapes = append(shapes, domain.Shape{
			Rings:      rings(s),
			Attributes: attrs,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}

	l.logger.Debug("shapefile loaded", "path", path, "records", len(shapes), "fields", names)
	return shapes, nil
}

func (l *Loader) decode(s string) (string, error) {
	if l.enc == nil {
		return s, nil
	}
	return l.enc.NewDecoder().String(s)
}

// rings splits a multi-part geometry into one point slice per part.
// Point-only and null geometries have no rings.
func rings(s shp.Shape) [][]domain.Point {
	switch g := s.(type) {
	case *shp.Polygon:
		return splitParts(g.Parts, g.Points)
	case *shp.PolyLine:
		return splitParts(g.Parts, g.Points)
	case *shp.PolygonZ:
		return splitParts(g.Parts, g.Points)
	case *shp.PolyLineZ:
		return splitParts(g.Parts, g.Points)
	case *shp.PolygonM:
		return splitParts(g.Parts, g.Points)
	case *shp.PolyLineM:
		return splitParts(g.Parts, g.Points)
	default:
		return nil
	}
}

func splitParts(parts []int32, points []shp.Point) [][]domain.Point {
	out := make([][]domain.Point, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) < 0 || int(start) >= end || end > len(points) {
			continue
		}
		ring := make([]domain.Point, 0, end-int(start))
		for _, p := range points[start:end] {
			ring = append(ring, domain.Point{X: p.X, Y: p.Y})
		}
		out = append(out, ring)
	}
	return out
}
