package app

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi     = 96.0
	spacing = 1.4

	scaleBarTarget = 200 // pixels
	legendWidth    = 200
	legendHeight   = 10
)

type annotatorConfig struct {
	Location *time.Location
	FontSize float64
	Area     image.Rectangle
}

type annotator struct {
	config  annotatorConfig
	context *freetype.Context
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetSrc(image.White)
	ctx.SetHinting(font.HintingFull)

	return &annotator{config: config, context: ctx}, nil
}

func (a *annotator) annotate(img *image.RGBA, track *TrackData, proj *Projection, colors *ColorMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func() error
	}{
		{"drawing title", func() error { return a.drawTitle(track) }},
		{"drawing scale", func() error { return a.drawScale(img, proj) }},
		{"drawing legend", func() error { return a.drawLegend(img, track, colors) }},
		{"drawing info", func() error { return a.drawInfo(track) }},
	}
	for _, op := range ops {
		if err := op.fn(); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) lineHeight() int {
	return a.context.PointToFixed(a.config.FontSize * spacing).Round()
}

func (a *annotator) drawTitle(track *TrackData) error {
	title := "Flight track"
	if s := track.Session; s != nil {
		title = fmt.Sprintf("Session %d, %s", s.ID, s.Mode)
		if s.Vehicle != "" {
			title += " via " + s.Vehicle
		}
	}

	_, err := a.context.DrawString(title, freetype.Pt(a.config.Area.Min.X, a.config.Area.Min.Y-12))
	return err
}

// drawScale draws a bar of a round ground distance in the bottom left of the map
func (a *annotator) drawScale(img *image.RGBA, proj *Projection) error {
	metres := niceDistance(proj.MetresPerPixel() * scaleBarTarget)
	px := int(metres / proj.MetresPerPixel())

	x0 := a.config.Area.Min.X + 15
	y := a.config.Area.Max.Y - 15

	for x := x0; x <= x0+px; x++ {
		img.Set(x, y, color.White)
		img.Set(x, y+1, color.White)
	}
	for i := 0; i < 8; i++ {
		img.Set(x0, y-i, color.White)
		img.Set(x0+px, y-i, color.White)
	}

	_, err := a.context.DrawString(humanMetres(metres), freetype.Pt(x0+4, y-6))
	return err
}

func (a *annotator) drawLegend(img *image.RGBA, track *TrackData, colors *ColorMapper) error {
	if len(track.Points) == 0 {
		return nil
	}

	x0 := a.config.Area.Max.X - legendWidth
	y0 := a.config.Area.Max.Y + 14

	for x := 0; x < legendWidth; x++ {
		alt := track.AltMin + (track.AltMax-track.AltMin)*float64(x)/float64(legendWidth-1)
		c := colors.Color(alt)
		for y := 0; y < legendHeight; y++ {
			img.Set(x0+x, y0+y, c)
		}
	}

	labels := []struct {
		text string
		x    int
	}{
		{fmt.Sprintf("%.0f m", track.AltMin), x0},
		{fmt.Sprintf("%.0f m", track.AltMax), x0 + legendWidth - 40},
	}
	for _, l := range labels {
		if _, err := a.context.DrawString(l.text, freetype.Pt(l.x, y0+legendHeight+a.lineHeight())); err != nil {
			return err
		}
	}
	return nil
}

func (a *annotator) drawInfo(track *TrackData) error {
	var acked, failed int
	for _, m := range track.Markers {
		if m.Acknowledged {
			acked++
		} else {
			failed++
		}
	}

	lines := []string{
		fmt.Sprintf("Distance: %s in %s", humanMetres(track.Distance), track.Duration().Round(time.Second)),
		fmt.Sprintf("Points: %s", humanize.Comma(int64(len(track.Points)))),
		fmt.Sprintf("Alerts: %d acknowledged, %d failed", acked, failed),
	}
	if !track.TimestampStart.IsZero() {
		lines = append([]string{fmt.Sprintf("%s to %s",
			track.TimestampStart.In(a.config.Location).Format(time.DateTime),
			track.TimestampEnd.In(a.config.Location).Format(time.TimeOnly))}, lines...)
	}

	pt := freetype.Pt(a.config.Area.Min.X, a.config.Area.Max.Y+a.lineHeight()+8)
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return err
		}
		pt.Y += a.context.PointToFixed(a.config.FontSize * spacing)
	}
	return nil
}

// niceDistance rounds m down to 1, 2 or 5 times a power of ten
func niceDistance(m float64) float64 {
	if m <= 0 {
		return 1
	}
	base := 1.0
	for base*10 <= m {
		base *= 10
	}
	for base > m {
		base /= 10
	}
	switch {
	case m >= 5*base:
		return 5 * base
	case m >= 2*base:
		return 2 * base
	default:
		return base
	}
}

func humanMetres(m float64) string {
	value, prefix := humanize.ComputeSI(m)
	if prefix == "m" || prefix == "µ" || prefix == "n" {
		return fmt.Sprintf("%.2f m", m)
	}
	return fmt.Sprintf("%.4g %sm", value, prefix)
}
