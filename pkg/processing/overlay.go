package processing

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/nutrivision/pkg/types"
)

const (
	boxStroke    = 3
	labelPadding = 5
)

var (
	// PrimaryColor marks detections from the primary prompt
	PrimaryColor = color.NRGBA{0, 255, 0, 255}
	// AlternativeColor marks detections from the alternative prompt
	AlternativeColor = color.NRGBA{255, 0, 0, 255}
)

// ParseColor parses a "#rrggbb" hex colour
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{r, g, b, 255}, nil
}

// Canvas returns a drawable copy of img
func (p *Processor) Canvas(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// DrawBox draws a rectangle with a filled label tab above its top-left corner
func (p *Processor) DrawBox(img *image.NRGBA, box types.PixelBox, label string, c color.NRGBA) {
	for s := 0; s < boxStroke; s++ {
		drawHLine(img, box.Y1+s, box.X1, box.X2, c)
		drawHLine(img, box.Y2-1-s, box.X1, box.X2, c)
		drawVLine(img, box.X1+s, box.Y1, box.Y2, c)
		drawVLine(img, box.X2-1-s, box.Y1, box.Y2, c)
	}

	if label == "" {
		return
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, label).Ceil()
	textHeight := face.Metrics().Ascent.Ceil()

	tabTop := box.Y1 - textHeight - 2*labelPadding
	if tabTop < 0 {
		// No room above the box, draw the tab inside it
		tabTop = box.Y1
	}
	tab := image.Rect(box.X1, tabTop, box.X1+textWidth+2*labelPadding, tabTop+textHeight+2*labelPadding)
	fillRect(img, tab, c)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColorFor(c)),
		Face: face,
		Dot:  fixed.P(tab.Min.X+labelPadding, tab.Max.Y-labelPadding),
	}
	d.DrawString(label)
}

// textColorFor picks white or black text, whichever reads better on bg
func textColorFor(bg color.NRGBA) color.NRGBA {
	c, _ := colorful.MakeColor(bg)
	l, _, _ := c.Lab()
	if l > 0.75 {
		return color.NRGBA{0, 0, 0, 255}
	}
	return color.NRGBA{255, 255, 255, 255}
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		drawHLine(img, y, r.Min.X, r.Max.X, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= b.Min.X || x0 >= b.Max.X {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= b.Min.Y || y0 >= b.Max.Y {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
