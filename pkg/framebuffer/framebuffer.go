// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

// Package framebuffer holds the panel's RGB565 pixel buffer. The buffer
// implements draw.Image so callers can render into it with image/draw.
package framebuffer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"slices"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
)

// Framebuffer is a row-major RGB565 image. Its length is fixed at creation;
// Reshape may swap the logical width and height but never resizes Pix.
type Framebuffer struct {
	Pix    []uint16
	width  int
	height int
}

// New allocates a black framebuffer.
func New(width, height int) *Framebuffer {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Framebuffer{
		Pix:    make([]uint16, width*height),
		width:  width,
		height: height,
	}
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }
func (f *Framebuffer) Len() int    { return len(f.Pix) }

// ColorModel implements image.Image.
func (*Framebuffer) ColorModel() color.Model { return RGB565Model }

// Bounds implements image.Image.
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// At implements image.Image.
func (f *Framebuffer) At(x, y int) color.Color {
	return f.Pixel(x, y)
}

// Set implements draw.Image.
func (f *Framebuffer) Set(x, y int, c color.Color) {
	f.SetPixel(x, y, RGB565Model.Convert(c).(RGB565)) //nolint:forcetypeassert // model always returns RGB565
}

// Pixel returns the colour at (x, y), or black outside the bounds.
func (f *Framebuffer) Pixel(x, y int) RGB565 {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return Black
	}
	return RGB565(f.Pix[y*f.width+x])
}

// SetPixel writes one pixel. Out-of-bounds writes are ignored.
func (f *Framebuffer) SetPixel(x, y int, c RGB565) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.Pix[y*f.width+x] = uint16(c)
}

// Fill sets every pixel to c.
func (f *Framebuffer) Fill(c RGB565) {
	for i := range f.Pix {
		f.Pix[i] = uint16(c)
	}
}

// Clear fills the buffer with black.
func (f *Framebuffer) Clear() {
	clear(f.Pix)
}

// FillRect fills the intersection of r with the buffer bounds.
func (f *Framebuffer) FillRect(r image.Rectangle, c RGB565) {
	r = r.Intersect(f.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := f.Pix[y*f.width : (y+1)*f.width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = uint16(c)
		}
	}
}

// Reshape reinterprets the buffer with new dimensions of the same area.
func (f *Framebuffer) Reshape(width, height int) error {
	if width < 0 || height < 0 || width*height != len(f.Pix) {
		return errcode.New(
			errcode.SizeMismatch,
			"reshape framebuffer",
			fmt.Sprintf("%dx%d does not hold %d pixels", width, height, len(f.Pix)),
		)
	}
	f.width = width
	f.height = height
	return nil
}

// Snapshot returns a copy of the pixel data.
func (f *Framebuffer) Snapshot() []uint16 {
	return slices.Clone(f.Pix)
}

// Clone returns a deep copy.
func (f *Framebuffer) Clone() *Framebuffer {
	return &Framebuffer{Pix: f.Snapshot(), width: f.width, height: f.height}
}

func (f *Framebuffer) checkLen(op string, got, bpp int) error {
	want := len(f.Pix) * bpp
	if got != want {
		return errcode.New(
			errcode.SizeMismatch,
			op,
			fmt.Sprintf("source has %d bytes, want %d", got, want),
		)
	}
	return nil
}

// CopyFromRGB565 replaces the contents with src, which must have exactly
// Len() pixels.
func (f *Framebuffer) CopyFromRGB565(src []uint16) error {
	if len(src) != len(f.Pix) {
		return errcode.New(
			errcode.SizeMismatch,
			"copy rgb565",
			fmt.Sprintf("source has %d pixels, want %d", len(src), len(f.Pix)),
		)
	}
	copy(f.Pix, src)
	return nil
}

// CopyFromRGB888 converts packed 24-bit RGB into the buffer.
func (f *Framebuffer) CopyFromRGB888(src []byte) error {
	if err := f.checkLen("copy rgb888", len(src), 3); err != nil {
		return err
	}
	for i := range f.Pix {
		p := src[i*3 : i*3+3]
		f.Pix[i] = uint16(Pack(p[0], p[1], p[2]))
	}
	return nil
}

// CopyFromRGBA8888 converts packed 32-bit RGBA into the buffer, ignoring
// alpha.
func (f *Framebuffer) CopyFromRGBA8888(src []byte) error {
	if err := f.checkLen("copy rgba8888", len(src), 4); err != nil {
		return err
	}
	for i := range f.Pix {
		p := src[i*4 : i*4+4]
		f.Pix[i] = uint16(Pack(p[0], p[1], p[2]))
	}
	return nil
}

// ToRGBA expands the buffer to an opaque 8-bit RGBA image.
func (f *Framebuffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, px := range f.Pix {
		r, g, b := RGB565(px).RGB8()
		o := i * 4
		img.Pix[o] = r
		img.Pix[o+1] = g
		img.Pix[o+2] = b
		img.Pix[o+3] = 0xFF
	}
	return img
}

// EncodePNG writes the buffer as an 8-bit RGBA PNG.
func (f *Framebuffer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, f.ToRGBA()); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
