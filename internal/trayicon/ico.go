// Package trayicon renders the status icons shown in the notification area.
package trayicon

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"sync"
)

// Kind selects which status icon to render.
type Kind int

const (
	Stopped Kind = iota
	Running
)

const size = 32

var (
	green = color.NRGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff}
	gray  = color.NRGBA{R: 0x8a, G: 0x8f, B: 0x98, A: 0xff}
	ring  = color.NRGBA{R: 0x1f, G: 0x23, B: 0x28, A: 0xff}
)

var (
	once  sync.Once
	cache map[Kind][]byte
)

// Icon returns the tray icon bytes for kind in the format the current platform expects:
// ICO on Windows, PNG elsewhere.
func Icon(kind Kind) []byte {
	once.Do(func() {
		cache = make(map[Kind][]byte, 2)
		for _, k := range []Kind{Stopped, Running} {
			p := PNG(k)
			if runtime.GOOS == "windows" {
				p = wrapICO(p, size)
			}
			cache[k] = p
		}
	})
	return cache[kind]
}

// PNG renders kind as a size x size PNG: a filled disc with a dark ring.
func PNG(kind Kind) []byte {
	fill := gray
	if kind == Running {
		fill = green
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	outer := c
	inner := c - 2.5
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			d2 := dx*dx + dy*dy
			switch {
			case d2 <= inner*inner:
				img.SetNRGBA(x, y, fill)
			case d2 <= outer*outer:
				img.SetNRGBA(x, y, ring)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO packs a single PNG image into an ICO container (Vista+ PNG-in-ICO).
func wrapICO(pngData []byte, dim int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	// ICONDIRENTRY
	b := byte(dim)
	if dim >= 256 {
		b = 0
	}
	buf.WriteByte(b)
	buf.WriteByte(b)
	buf.WriteByte(0) // palette
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(pngData)
	return buf.Bytes()
}
