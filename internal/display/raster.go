package display

import (
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel is a monochrome display that accepts a full frame.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	SetContrast(level byte) error
	Halt() error
}

// Raster is a Canvas over a 1-bit framebuffer. Flush pushes the buffer to
// an optional Panel.
type Raster struct {
	mu    sync.Mutex
	img   *image1bit.VerticalLSB
	mask  *image.Alpha
	face  font.Face
	color DrawColor

	panel    Panel
	contrast uint8
	blanked  bool
}

// NewRaster creates a w×h canvas. panel may be nil.
func NewRaster(w, h int, panel Panel) *Raster {
	if panel != nil {
		b := panel.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	rect := image.Rect(0, 0, w, h)
	return &Raster{
		img:   image1bit.NewVerticalLSB(rect),
		mask:  image.NewAlpha(rect),
		face:  basicfont.Face7x13,
		color: ColorSet,
		panel: panel,
	}
}

func (r *Raster) Width() int  { return r.img.Rect.Dx() }
func (r *Raster) Height() int { return r.img.Rect.Dy() }

func (r *Raster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.img.Pix {
		r.img.Pix[i] = 0
	}
}

func (r *Raster) SetDrawColor(c DrawColor) {
	r.mu.Lock()
	r.color = c
	r.mu.Unlock()
}

// plot applies the draw color at x, y. Caller holds mu.
func (r *Raster) plot(x, y int) {
	if !(image.Point{X: x, Y: y}).In(r.img.Rect) {
		return
	}
	switch r.color {
	case ColorClear:
		r.img.SetBit(x, y, image1bit.Off)
	case ColorSet:
		r.img.SetBit(x, y, image1bit.On)
	case ColorXOR:
		r.img.SetBit(x, y, !r.img.BitAt(x, y))
	}
}

func (r *Raster) DrawText(x, y int, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	draw.Draw(r.mask, r.mask.Rect, image.Transparent, image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  r.mask,
		Src:  image.Opaque,
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)

	for py := r.mask.Rect.Min.Y; py < r.mask.Rect.Max.Y; py++ {
		for px := r.mask.Rect.Min.X; px < r.mask.Rect.Max.X; px++ {
			if r.mask.AlphaAt(px, py).A >= 0x80 {
				r.plot(px, py)
			}
		}
	}
}

func (r *Raster) DrawBox(x, y, w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			r.plot(px, py)
		}
	}
}

func (r *Raster) DrawFrame(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for px := x; px < x+w; px++ {
		r.plot(px, y)
		if h > 1 {
			r.plot(px, y+h-1)
		}
	}
	for py := y + 1; py < y+h-1; py++ {
		r.plot(x, py)
		if w > 1 {
			r.plot(x+w-1, py)
		}
	}
}

// DrawTriangle fills the triangle including its edges.
func (r *Raster) DrawTriangle(x0, y0, x1, y1, x2, y2 int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	minX, maxX := min(x0, x1, x2), max(x0, x1, x2)
	minY, maxY := min(y0, y1, y2), max(y0, y1, y2)

	edge := func(ax, ay, bx, by, px, py int) int {
		return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	}
	area := edge(x0, y0, x1, y1, x2, y2)
	if area == 0 {
		return
	}

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			w0 := edge(x1, y1, x2, y2, px, py)
			w1 := edge(x2, y2, x0, y0, px, py)
			w2 := edge(x0, y0, x1, y1, px, py)
			if area > 0 && w0 >= 0 && w1 >= 0 && w2 >= 0 ||
				area < 0 && w0 <= 0 && w1 <= 0 && w2 <= 0 {
				r.plot(px, py)
			}
		}
	}
}

func (r *Raster) SetContrast(level uint8) error {
	r.mu.Lock()
	r.contrast = level
	r.mu.Unlock()
	if r.panel == nil {
		return nil
	}
	return r.panel.SetContrast(level)
}

// Contrast is the last level set.
func (r *Raster) Contrast() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contrast
}

func (r *Raster) Flush() error {
	r.mu.Lock()
	r.blanked = false
	r.mu.Unlock()
	return r.push()
}

func (r *Raster) Blank() error {
	r.Clear()
	r.mu.Lock()
	r.blanked = true
	r.mu.Unlock()
	return r.push()
}

// Blanked reports whether the last update was Blank.
func (r *Raster) Blanked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blanked
}

func (r *Raster) push() error {
	if r.panel == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.panel.Draw(r.panel.Bounds(), r.img, image.Point{})
}

// Bit reports whether pixel x, y is lit.
func (r *Raster) Bit(x, y int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bool(r.img.BitAt(x, y))
}

// Snapshot returns a copy of the framebuffer.
func (r *Raster) Snapshot() *image1bit.VerticalLSB {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := image1bit.NewVerticalLSB(r.img.Rect)
	copy(cp.Pix, r.img.Pix)
	return cp
}
