package render

import (
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// The Go fonts ship embedded so rendering works without any font files on
// the host. No glyph metrics from these fonts feed the fitting heuristic.
var (
	sansFont = mustParse(goregular.TTF)
	boldFont = mustParse(gobold.TTF)
	monoFont = mustParse(gomono.TTF)
)

func mustParse(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(err)
	}
	return f
}

// fontForFamily resolves a family name from Options; unknown names fall back
// to sans-serif.
func fontForFamily(family string) *truetype.Font {
	switch family {
	case FamilyBold:
		return boldFont
	case FamilyMonospace:
		return monoFont
	default:
		return sansFont
	}
}
