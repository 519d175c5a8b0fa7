// Package desktop owns the 64 MiB back buffer and the diagnostic overlay
// drawn over it every render pass. It is the only package in this core
// that imports the graphics stack.
//
// Grounded on the teacher's gg_circle_qemu.go, which drives a gg.Context
// RGBA back buffer, copies the live framebuffer into it, draws with gg,
// and flushes back with manual channel-swizzled pixel copies (the Bochs
// BGRX device against gg's RGBA image). This core's firmware handoff can
// report either byte order (spec.md §6), so the blit step is generalized
// from the teacher's hand-written byte loop to golang.org/x/image/draw,
// which already handles arbitrary image.Image color-model conversion.
package desktop

import (
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// BackBufferBytes is the fixed back-buffer budget from spec.md §6.
const BackBufferBytes = 64 * 1024 * 1024

// Layout identifies the firmware framebuffer's channel order.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutRGB
	LayoutBGR
)

// FramebufferDescriptor mirrors the firmware handoff structure from
// spec.md §6.
type FramebufferDescriptor struct {
	Base         unsafe.Pointer
	ByteSize     uint64
	Width        int
	Height       int
	StridePixels int
	Layout       Layout
}

// OverlayStats is everything the diagnostic overlay renders each frame.
type OverlayStats struct {
	Tick          uint64
	SchedulerRuns map[string]uint64
	NICRXCount    uint64
	NICTXCount    uint64
	NICLinkUp     bool
}

// Compositor owns the in-memory back buffer and the gg drawing context
// layered over it.
type Compositor struct {
	ctx    *gg.Context
	width  int
	height int
}

// NewCompositor allocates a back buffer sized to (width, height); a
// caller is expected to clamp these against BackBufferBytes before
// calling, matching the firmware-reported dimensions.
func NewCompositor(width, height int) *Compositor {
	return &Compositor{ctx: gg.NewContext(width, height), width: width, height: height}
}

// modelFor maps a firmware layout onto the color model x/image/draw needs
// to convert correctly; LayoutUnknown is treated as RGB, matching the
// teacher's Bochs driver defaulting to straight RGBA when untagged.
func modelFor(l Layout) color.Model {
	if l == LayoutBGR {
		return bgrModel{}
	}
	return color.RGBAModel
}

type bgrModel struct{}

func (bgrModel) Convert(c color.Color) color.Color {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(b >> 8), G: uint8(g >> 8), B: uint8(r >> 8), A: uint8(a >> 8)}
}

// frameFromDescriptor wraps a firmware framebuffer as an image.Image
// without copying, so CopyFromFirmware can hand it straight to
// x/image/draw.
func frameFromDescriptor(fb FramebufferDescriptor) *image.RGBA {
	byteLen := fb.StridePixels * 4 * fb.Height
	px := unsafe.Slice((*uint8)(fb.Base), byteLen)
	return &image.RGBA{
		Pix:    px,
		Stride: fb.StridePixels * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}

// CopyFromFirmware draws the live firmware framebuffer into the back
// buffer, converting channel order via modelFor when the firmware
// reports BGR.
func (c *Compositor) CopyFromFirmware(fb FramebufferDescriptor) {
	if fb.Base == nil || fb.Width == 0 || fb.Height == 0 {
		return
	}
	src := frameFromDescriptor(fb)
	dst, ok := c.ctx.Image().(*image.RGBA)
	if !ok {
		return
	}
	if fb.Layout == LayoutBGR {
		converted := image.NewRGBA(src.Bounds())
		for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
			for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
				converted.Set(x, y, modelFor(fb.Layout).Convert(src.At(x, y)))
			}
		}
		src = converted
	}
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
}

// DrawOverlay renders the diagnostic overlay (tick count, scheduler run
// counts, NIC RX/TX/link badge) on top of whatever is already composited.
func (c *Compositor) DrawOverlay(stats OverlayStats) {
	c.ctx.SetRGB(0, 1, 0)
	c.ctx.DrawString(fmt.Sprintf("tick %d", stats.Tick), 8, 16)

	y := 32.0
	for name, count := range stats.SchedulerRuns {
		c.ctx.DrawString(fmt.Sprintf("%s: %d", name, count), 8, y)
		y += 16
	}

	linkWord := "down"
	if stats.NICLinkUp {
		linkWord = "up"
	}
	c.ctx.DrawString(fmt.Sprintf("nic rx=%d tx=%d link=%s", stats.NICRXCount, stats.NICTXCount, linkWord), 8, y)
}

// Present blits the back buffer to the firmware-provided linear
// framebuffer, swizzling channels if the firmware reports BGR, mirroring
// the teacher's flushGGToFramebuffer.
func (c *Compositor) Present(fb FramebufferDescriptor) {
	if fb.Base == nil || fb.Width == 0 || fb.Height == 0 {
		return
	}
	dst := frameFromDescriptor(fb)
	src, ok := c.ctx.Image().(*image.RGBA)
	if !ok {
		return
	}

	if fb.Layout == LayoutBGR {
		for y := dst.Bounds().Min.Y; y < dst.Bounds().Max.Y && y < src.Bounds().Max.Y; y++ {
			for x := dst.Bounds().Min.X; x < dst.Bounds().Max.X && x < src.Bounds().Max.X; x++ {
				dst.Set(x, y, modelFor(fb.Layout).Convert(src.At(x, y)))
			}
		}
		return
	}
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
}

// Dimensions reports the back buffer's pixel size, for callers computing
// whether the firmware framebuffer changed shape.
func (c *Compositor) Dimensions() (int, int) { return c.width, c.height }
