package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	JungleTheme    ColorTheme = "jungle"
	ThermalTheme   ColorTheme = "thermal"
	MarineTheme    ColorTheme = "marine"

	defaultColorMapSize = 256
)

type ColorTheme string

var colorThemes = map[ColorTheme]func(float64) colorful.Color{
	// Blue -> Red
	ClassicTheme: func(v float64) colorful.Color {
		return colorful.Hsv(236-(v*236), 0.9+(v*0.1), 0.5+math.Pow(v, 0.7)*0.45)
	},
	// Dark grey -> White
	GrayscaleTheme: func(v float64) colorful.Color {
		g := 0.25 + math.Pow(v, 0.7)*0.75
		return colorful.Color{R: g, G: g, B: g}
	},
	// Dark Green -> Yellow
	JungleTheme: func(v float64) colorful.Color {
		return colorful.Hsv(120-(v*60), 1, 0.3+math.Pow(v, 0.6)*0.7)
	},
	// Dark red -> Yellow -> White, blended in HCL for even steps
	ThermalTheme: func(v float64) colorful.Color {
		dark, _ := colorful.Hex("#5a0000")
		mid, _ := colorful.Hex("#ffc800")
		if v < 0.66 {
			return dark.BlendHcl(mid, v/0.66).Clamped()
		}
		return mid.BlendHcl(colorful.Color{R: 1, G: 1, B: 1}, (v-0.66)/0.34).Clamped()
	},
	// Deep Blue -> Cyan -> White
	MarineTheme: func(v float64) colorful.Color {
		return colorful.Hsv(240-(v*60), 1-(v*0.8), 0.3+math.Pow(v, 0.6)*0.7)
	},
}

// ColorMapper maps a value within [min, max] to a pre-computed theme colour
type ColorMapper struct {
	colorMap []color.Color
	min, max float64
}

func NewColorMapper(theme ColorTheme, min, max float64) *ColorMapper {
	fn, ok := colorThemes[theme]
	if !ok {
		fn = colorThemes[ClassicTheme]
	}

	cm := ColorMapper{
		colorMap: make([]color.Color, defaultColorMapSize),
		min:      min,
		max:      max,
	}
	for i := range cm.colorMap {
		cm.colorMap[i] = fn(float64(i) / float64(defaultColorMapSize-1))
	}
	return &cm
}

// Color returns the colour of v; values outside the range are clamped and a flat
// range maps to the middle of the theme.
func (cm *ColorMapper) Color(v float64) color.Color {
	span := cm.max - cm.min
	if span <= 0 || math.IsNaN(v) {
		return cm.colorMap[len(cm.colorMap)/2]
	}

	normalized := math.Max(0, math.Min(1, (v-cm.min)/span))
	return cm.colorMap[int(math.Round(normalized*float64(len(cm.colorMap)-1)))]
}
