package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"
)

const (
	fontSize = 12.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 40
	defaultBottomBorder = 110
	defaultRightBorder  = 40

	lineWidth    = 2
	markerRadius = 7
)

var (
	backgroundColor = color.RGBA{R: 0x14, G: 0x18, B: 0x1c, A: 0xff}
	frameColor      = color.RGBA{R: 0x55, G: 0x5c, B: 0x63, A: 0xff}
	ackedColor      = color.RGBA{R: 0x34, G: 0xc7, B: 0x59, A: 0xff}
	failedColor     = color.RGBA{R: 0xff, G: 0x3b, B: 0x30, A: 0xff}
	startColor      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	endColor        = color.RGBA{R: 0x9a, G: 0xa0, B: 0xa6, A: 0xff}
)

// BorderConfig defines the sizes of space around the map area
type BorderConfig struct {
	Top    int
	Left   int
	Bottom int // Space for the information bar
	Right  int
}

// RenderConfig holds all configuration options for track visualization
type RenderConfig struct {
	Size          int            // Width and height of the map area
	Location      *time.Location // Timezone for time display
	FontSize      float64
	ColorTheme    ColorTheme
	NoAnnotations bool
	BorderConfig  BorderConfig
}

// TrackRenderer draws a flight track coloured by altitude with alert markers
type TrackRenderer struct {
	config RenderConfig
}

func NewTrackRenderer(config RenderConfig) (*TrackRenderer, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("invalid map size: %d", config.Size)
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = ClassicTheme
	}
	if config.BorderConfig == (BorderConfig{}) {
		config.BorderConfig = BorderConfig{
			Top:    defaultTopBorder,
			Left:   defaultLeftBorder,
			Bottom: defaultBottomBorder,
			Right:  defaultRightBorder,
		}
	}

	return &TrackRenderer{config: config}, nil
}

func (r *TrackRenderer) Render(track *TrackData) (*image.RGBA, error) {
	if track.Empty() {
		return nil, errors.New("nothing to render")
	}

	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, r.config.Size+b.Left+b.Right, r.config.Size+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+r.config.Size, b.Top+r.config.Size)
	drawRect(img, area.Inset(-1), frameColor)

	proj := NewProjection(area, track.LatMin, track.LatMax, track.LonMin, track.LonMax)
	colors := NewColorMapper(r.config.ColorTheme, track.AltMin, track.AltMax)

	for i := 1; i < len(track.Points); i++ {
		prev, cur := track.Points[i-1], track.Points[i]
		drawLine(img,
			proj.Point(prev.Latitude, prev.Longitude),
			proj.Point(cur.Latitude, cur.Longitude),
			lineWidth, colors.Color(cur.Altitude))
	}

	if len(track.Points) > 0 {
		first := track.Points[0]
		last := track.Points[len(track.Points)-1]
		drawDisc(img, proj.Point(last.Latitude, last.Longitude), markerRadius-2, endColor)
		drawDisc(img, proj.Point(first.Latitude, first.Longitude), markerRadius-2, startColor)
	}

	for _, m := range track.Markers {
		c := failedColor
		if m.Acknowledged {
			c = ackedColor
		}
		p := proj.Point(m.Latitude, m.Longitude)
		drawCircle(img, p, markerRadius, c)
		drawCross(img, p, markerRadius-2, c)
	}

	if r.config.NoAnnotations {
		return img, nil
	}

	ann, err := newAnnotator(annotatorConfig{
		Location: r.config.Location,
		FontSize: r.config.FontSize,
		Area:     area,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}

	if err = ann.annotate(img, track, proj, colors); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func drawRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// drawLine draws a segment with Bresenham's algorithm, width pixels thick
func drawLine(img *image.RGBA, a, b image.Point, width int, c color.Color) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy

	x, y := a.X, a.Y
	for {
		plot(img, x, y, width, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func plot(img *image.RGBA, x, y, width int, c color.Color) {
	for i := 0; i < width; i++ {
		for j := 0; j < width; j++ {
			img.Set(x+i-width/2, y+j-width/2, c)
		}
	}
}

func drawCircle(img *image.RGBA, center image.Point, radius int, c color.Color) {
	r2outer, r2inner := radius*radius, (radius-2)*(radius-2)
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if d := x*x + y*y; d <= r2outer && d > r2inner {
				img.Set(center.X+x, center.Y+y, c)
			}
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, c color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				img.Set(center.X+x, center.Y+y, c)
			}
		}
	}
}

func drawCross(img *image.RGBA, center image.Point, size int, c color.Color) {
	for i := -size; i <= size; i++ {
		img.Set(center.X+i, center.Y+i, c)
		img.Set(center.X+i, center.Y-i, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
