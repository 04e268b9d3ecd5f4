package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/countrycache/countrycache/countrycache/config"
)

// Layout of the summary canvas, in pixels from the top-left corner.
const (
	marginX      = 20
	rowIndentX   = 40
	totalY       = 20
	headerY      = 60
	firstRowY    = 100
	rowStep      = 30
	footerY      = 300
	footerMargin = 10
)

var (
	textColor   = color.Black
	footerColor = color.Gray{Y: 0x80}
)

// RasterRenderer draws the summary with a built-in bitmap font. It needs no external binaries.
type RasterRenderer struct {
	face   font.Face
	width  int
	height int
}

func NewRasterRenderer() *RasterRenderer {
	return &RasterRenderer{
		face:   basicfont.Face7x13,
		width:  config.SummaryImageWidth,
		height: config.SummaryImageHeight,
	}
}

func (r *RasterRenderer) Render(ctx context.Context, data SummaryData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	r.text(img, marginX, totalY, fmt.Sprintf("Total Countries: %d", data.Total), textColor)
	r.text(img, marginX, headerY, fmt.Sprintf("Top %d by GDP:", data.Limit), textColor)

	y := firstRowY
	for _, entry := range data.Top {
		r.text(img, rowIndentX, y, entry.Label(), textColor)
		y += rowStep
	}

	fy := footerY
	if y+footerMargin > fy {
		fy = y + footerMargin
	}
	r.text(img, marginX, fy, "Last Refresh: "+data.Timestamp(), footerColor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// text draws s with its top-left corner at (x, y).
func (r *RasterRenderer) text(dst draw.Image, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
