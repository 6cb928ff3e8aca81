package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"facelive-go/internal/models"
	"facelive-go/internal/services/stats"
)

var (
	boxColor      = color.RGBA{R: 255, A: 255}
	keypointColor = color.RGBA{R: 255, A: 255}
	meshColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	fpsColor      = color.RGBA{G: 255, A: 255}
	fpsBackground = color.RGBA{A: 160}
)

// meshEdges joins the five keypoints into a triangle mesh
var meshEdges = [][2]string{
	{models.KeypointRightEye, models.KeypointLeftEye},
	{models.KeypointRightEye, models.KeypointNoseTip},
	{models.KeypointLeftEye, models.KeypointNoseTip},
	{models.KeypointNoseTip, models.KeypointMouthRight},
	{models.KeypointNoseTip, models.KeypointMouthLeft},
	{models.KeypointMouthRight, models.KeypointMouthLeft},
	{models.KeypointRightEye, models.KeypointMouthRight},
	{models.KeypointLeftEye, models.KeypointMouthLeft},
}

// Options control what the overlay draws
type Options struct {
	BoundingBox     bool
	TriangulateMesh bool
	ShowFPS         bool
}

// Surface receives finished images
type Surface interface {
	PublishImage(img *image.RGBA)
}

// Canvas draws frames with the detection overlay and an FPS readout and
// hands the result to a Surface.
type Canvas struct {
	surface Surface

	mu       sync.Mutex
	fps      float64
	hasFPS   bool
	rendered int64
}

// NewCanvas creates a canvas presenting to surface
func NewCanvas(surface Surface) *Canvas {
	return &Canvas{surface: surface}
}

// Report implements stats.Reporter and updates the FPS readout
func (c *Canvas) Report(r stats.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = r.FPS
	c.hasFPS = true
}

// Render draws frame, then the faces when there are any, and presents
// the result. The frame itself is never modified.
func (c *Canvas) Render(frame models.Frame, faces []models.Face, opts Options) {
	if frame.Empty() {
		return
	}

	img := image.NewRGBA(frame.Image.Bounds())
	draw.Draw(img, img.Bounds(), frame.Image, frame.Image.Bounds().Min, draw.Src)

	if len(faces) > 0 {
		DrawResults(img, faces, opts)
	}

	c.mu.Lock()
	fps, hasFPS := c.fps, c.hasFPS
	c.rendered++
	c.mu.Unlock()

	if opts.ShowFPS && hasFPS {
		drawFPS(img, fps)
	}
	if c.surface != nil {
		c.surface.PublishImage(img)
	}
}

// Rendered returns how many frames were presented
func (c *Canvas) Rendered() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendered
}

// DrawResults draws every face onto img
func DrawResults(img *image.RGBA, faces []models.Face, opts Options) {
	for _, f := range faces {
		if !f.Valid() {
			continue
		}
		if opts.BoundingBox && f.Box.Width > 0 && f.Box.Height > 0 {
			drawRect(img, f.Box, boxColor)
		}
		if opts.TriangulateMesh {
			for _, e := range meshEdges {
				a, okA := f.Keypoint(e[0])
				b, okB := f.Keypoint(e[1])
				if okA && okB {
					drawLine(img, a.X, a.Y, b.X, b.Y, meshColor)
				}
			}
		}
		for _, kp := range f.Keypoints {
			drawDot(img, kp.X, kp.Y, 2, keypointColor)
		}
	}
}

func drawFPS(img *image.RGBA, fps float64) {
	text := fmt.Sprintf("FPS: %.1f", fps)
	face := basicfont.Face7x13

	width := font.MeasureString(face, text).Ceil()
	bg := image.Rect(4, 4, 4+width+8, 4+face.Height+6)
	draw.Draw(img, bg.Intersect(img.Bounds()), image.NewUniform(fpsBackground), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fpsColor),
		Face: face,
		Dot:  fixed.P(8, 4+face.Ascent+3),
	}
	d.DrawString(text)
}

func drawRect(img *image.RGBA, b models.Box, c color.RGBA) {
	x0, y0 := b.XMin, b.YMin
	x1, y1 := b.XMax(), b.YMax()
	drawLine(img, x0, y0, x1, y0, c)
	drawLine(img, x1, y0, x1, y1, c)
	drawLine(img, x1, y1, x0, y1, c)
	drawLine(img, x0, y1, x0, y0, c)
}

// drawLine clips the segment to img and rasterises what is left with
// Bresenham's algorithm, so the walk never leaves the image.
func drawLine(img *image.RGBA, fx0, fy0, fx1, fy1 float64, c color.RGBA) {
	fx0, fy0, fx1, fy1, ok := clipLine(fx0, fy0, fx1, fy1, img.Bounds())
	if !ok {
		return
	}
	x0, y0, x1, y1 := round(fx0), round(fy0), round(fx1), round(fy1)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	bounds := img.Bounds()
	for {
		if (image.Point{X: x0, Y: y0}).In(bounds) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// clipLine is Liang-Barsky clipping against the pixel centres of b. It
// reports false when no part of the segment is inside or a coordinate is
// not finite.
func clipLine(x0, y0, x1, y1 float64, b image.Rectangle) (float64, float64, float64, float64, bool) {
	if b.Empty() || !finite(x0, y0, x1, y1) {
		return 0, 0, 0, 0, false
	}
	dx, dy := x1-x0, y1-y0
	if !finite(dx, dy) {
		return 0, 0, 0, 0, false
	}

	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - float64(b.Min.X)},
		{dx, float64(b.Max.X-1) - x0},
		{-dy, y0 - float64(b.Min.Y)},
		{dy, float64(b.Max.Y-1) - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, t)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func drawDot(img *image.RGBA, x, y float64, r int, c color.RGBA) {
	b := img.Bounds()
	if !finite(x, y) ||
		x < float64(b.Min.X-r) || x > float64(b.Max.X+r) ||
		y < float64(b.Min.Y-r) || y > float64(b.Max.Y+r) {
		return
	}
	cx, cy := round(x), round(y)
	rect := image.Rect(cx-r, cy-r, cx+r+1, cy+r+1).Intersect(b)
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func round(v float64) int {
	return int(math.Round(v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
