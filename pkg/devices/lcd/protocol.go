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

package lcd

import (
	"encoding/binary"
	"fmt"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
)

// Frame layout: one HID report id byte, an 8-byte header and a 4096-byte
// payload region.
const (
	ReportSize  = 1 + HeaderSize + PayloadSize
	HeaderSize  = 8
	PayloadSize = 4096

	payloadOffset = 1 + HeaderSize
)

// Header bytes.
const (
	Signature byte = 0x55

	CmdConfig  byte = 0xA1
	CmdRefresh byte = 0xA2
	CmdRedraw  byte = 0xA3

	SubOrientation byte = 0xF1
	SubSetTime     byte = 0xF2
)

// Phase marks the position of a redraw chunk in the transfer.
type Phase byte

const (
	PhaseStart    Phase = 0xF0
	PhaseContinue Phase = 0xF1
	PhaseEnd      Phase = 0xF2
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseContinue:
		return "continue"
	case PhaseEnd:
		return "end"
	default:
		return fmt.Sprintf("phase(0x%02X)", byte(p))
	}
}

// Full-screen image geometry.
const (
	ScreenPixels  = int(orientation.NativeWidth) * int(orientation.NativeHeight)
	ImageSize     = ScreenPixels * 2
	ChunkCount    = (ImageSize + PayloadSize - 1) / PayloadSize
	LastChunkSize = ImageSize - (ChunkCount-1)*PayloadSize
)

func newFrame(cmd byte) []byte {
	f := make([]byte, ReportSize)
	f[1] = Signature
	f[2] = cmd
	return f
}

// OrientationFrame selects the panel's native orientation.
func OrientationFrame(o orientation.Orientation) []byte {
	f := newFrame(CmdConfig)
	f[3] = SubOrientation
	f[4] = o.HardwareByte()
	return f
}

// HeartbeatFrame sets the panel clock. Values are sent as given.
func HeartbeatFrame(hours, minutes, seconds uint8) []byte {
	f := newFrame(CmdConfig)
	f[3] = SubSetTime
	f[4] = hours
	f[5] = minutes
	f[6] = seconds
	return f
}

// RefreshFrame updates a rectangle of the panel. Pixels beyond the payload
// region are dropped.
func RefreshFrame(x, y uint16, width, height uint8, pixels []uint16) []byte {
	f := newFrame(CmdRefresh)
	binary.LittleEndian.PutUint16(f[3:5], x)
	binary.LittleEndian.PutUint16(f[5:7], y)
	f[7] = width
	f[8] = height

	payload := f[payloadOffset:]
	n := min(len(pixels), PayloadSize/2)
	for i := range n {
		binary.BigEndian.PutUint16(payload[i*2:], pixels[i])
	}
	return f
}

// Chunk is one slice of a full-screen redraw.
type Chunk struct {
	Data   []byte
	Offset int
	Seq    uint8
	Phase  Phase
}

// Frame serializes the chunk. The offset field is 16 bits wide, so offsets
// past 64 KiB are sent modulo 65536; the panel places data by sequence.
func (c Chunk) Frame() []byte {
	f := newFrame(CmdRedraw)
	f[3] = byte(c.Phase)
	f[4] = c.Seq
	binary.BigEndian.PutUint16(f[5:7], uint16(c.Offset)) //nolint:gosec // truncation is part of the wire format
	binary.BigEndian.PutUint16(f[7:9], uint16(len(c.Data)))
	copy(f[payloadOffset:], c.Data)
	return f
}

// EncodePixels converts pixels to big-endian bytes.
func EncodePixels(pixels []uint16) []byte {
	out := make([]byte, len(pixels)*2)
	for i, px := range pixels {
		binary.BigEndian.PutUint16(out[i*2:], px)
	}
	return out
}

// SplitImage cuts a full-screen big-endian image into redraw chunks in
// transmission order.
func SplitImage(img []byte) ([]Chunk, error) {
	if len(img) != ImageSize {
		return nil, errcode.New(
			errcode.SizeMismatch,
			"split image",
			fmt.Sprintf("image has %d bytes, want %d", len(img), ImageSize),
		)
	}

	chunks := make([]Chunk, 0, ChunkCount)
	for i := range ChunkCount {
		start := i * PayloadSize
		end := min(start+PayloadSize, len(img))

		phase := PhaseContinue
		switch i {
		case 0:
			phase = PhaseStart
		case ChunkCount - 1:
			phase = PhaseEnd
		}

		chunks = append(chunks, Chunk{
			Phase:  phase,
			Seq:    uint8(i + 1), //nolint:gosec // ChunkCount is 27
			Offset: start,
			Data:   img[start:end],
		})
	}
	return chunks, nil
}

// RedrawFrames builds the full sequence of frames for a screen of pixels.
func RedrawFrames(pixels []uint16) ([][]byte, error) {
	if len(pixels) != ScreenPixels {
		return nil, errcode.New(
			errcode.SizeMismatch,
			"redraw",
			fmt.Sprintf("buffer has %d pixels, want %d", len(pixels), ScreenPixels),
		)
	}
	chunks, err := SplitImage(EncodePixels(pixels))
	if err != nil {
		return nil, err
	}
	frames := make([][]byte, len(chunks))
	for i, c := range chunks {
		frames[i] = c.Frame()
	}
	return frames, nil
}
