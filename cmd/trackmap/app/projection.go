package app

import (
	"image"
	"math"
)

// minSpan keeps a stationary track from collapsing into a single pixel, ~11 m
const minSpan = 1e-4

// Projection maps coordinates onto a square drawing area with an equirectangular
// projection, scaled so one pixel is the same distance on both axes.
type Projection struct {
	area        image.Rectangle
	latC, lonC  float64
	pxPerDegLat float64
	pxPerDegLon float64
	metresPerPx float64
}

func NewProjection(area image.Rectangle, latMin, latMax, lonMin, lonMax float64) *Projection {
	latC := (latMin + latMax) / 2
	lonC := (lonMin + lonMax) / 2
	cosLat := math.Max(math.Cos(latC*math.Pi/180), 1e-6)

	latSpan := math.Max(latMax-latMin, minSpan)
	lonSpan := math.Max((lonMax-lonMin)*cosLat, minSpan)

	// 5% padding on every side
	w, h := float64(area.Dx())*0.9, float64(area.Dy())*0.9
	scale := math.Min(w/lonSpan, h/latSpan)

	return &Projection{
		area:        area,
		latC:        latC,
		lonC:        lonC,
		pxPerDegLat: scale,
		pxPerDegLon: scale * cosLat,
		metresPerPx: (math.Pi / 180 * earthRadius) / scale,
	}
}

// Point returns the pixel of a coordinate; north is up
func (p *Projection) Point(lat, lon float64) image.Point {
	cx := float64(p.area.Min.X) + float64(p.area.Dx())/2
	cy := float64(p.area.Min.Y) + float64(p.area.Dy())/2

	return image.Point{
		X: int(math.Round(cx + (lon-p.lonC)*p.pxPerDegLon)),
		Y: int(math.Round(cy - (lat-p.latC)*p.pxPerDegLat)),
	}
}

// MetresPerPixel returns the ground distance one pixel covers
func (p *Projection) MetresPerPixel() float64 {
	return p.metresPerPx
}
