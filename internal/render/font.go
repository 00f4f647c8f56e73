package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
)

// LoadFont returns a text handler whose default face is the TrueType or
// OpenType font at path. Collections (.ttc) use their first face. An empty
// path returns gonum's bundled Latin fonts, which cannot draw CJK glyphs.
func LoadFont(path string) (text.Handler, error) {
	if path == "" {
		return plot.DefaultTextHandler, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	face, err := opentype.Parse(data)
	if err != nil {
		coll, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
		face, err = coll.Font(0)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", path, err)
		}
	}

	// Styles are created with plot.DefaultFont, so the face is registered
	// under that descriptor and becomes the cache default.
	key := plot.DefaultFont
	key.Size = 0
	cache := font.NewCache(font.Collection{{Font: key, Face: face}})
	return text.Plain{Fonts: cache}, nil
}
