// Package imageio writes rendered frames to disk (spec §6.4): a 24-bit PNG
// via the stdlib image/png codec for the rasterizer's resolved framebuffer,
// and a from-scratch, uncompressed 48-bit TIFF writer for the path tracer's
// higher-precision accumulation buffer (no maintained pure-Go 48-bit TIFF
// encoder turned up in the retrieval pack; justified in DESIGN.md).
// WritePNG is grounded on
// _examples/gogpu-gg/recording/backends/raster/backend.go's SavePNG, a thin
// wrapper around image/png — the pack's own idiom for "write a rendered
// frame to PNG" is stdlib, not a third-party codec.
package imageio

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"
)

// WritePNG encodes raw 8-bit RGBA pixels (tightly packed, top-left origin)
// as a 24-bit PNG.
func WritePNG(path string, pixels []byte, width, height int) error {
	want := width * height * 4
	if len(pixels) < want {
		return fmt.Errorf("imageio: pixel buffer has %d bytes, want at least %d for %dx%d RGBA", len(pixels), want, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pixels[:want])
	// Force opaque alpha so png.Encode writes 8-bit RGB (24-bit), not RGBA.
	for i := 3; i < want; i += 4 {
		img.Pix[i] = 0xFF
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("imageio: encode png %s: %w", path, err)
	}
	return nil
}

// tiff tag/type constants used by WriteTIFF48's single IFD.
const (
	tiffTypeShort = 3
	tiffTypeLong  = 4

	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
)

// WriteTIFF48 encodes a raw 16-bit-per-channel RGB buffer (already
// little-endian, row-major, 6 bytes/pixel, top-left origin — the layout
// pathtrace.Accelerator.Resolve returns) as an uncompressed baseline TIFF:
// an 8-byte header, one IFD describing a single full-image strip, and the
// raw strip data. No compression, no multi-strip chunking, no
// alpha/extra-samples — the minimum a 48-bit TIFF reader needs to recover
// the accumulation buffer spec §6.4 calls for.
func WriteTIFF48(path string, rgb16 []byte, width, height int) error {
	want := width * height * 6
	if len(rgb16) < want {
		return fmt.Errorf("imageio: pixel buffer has %d bytes, want at least %d for %dx%d RGB16", len(rgb16), want, width, height)
	}

	const numEntries = 10
	const ifdOffset = 8
	const ifdSize = 2 + numEntries*12 + 4
	bitsPerSampleOffset := uint32(ifdOffset + ifdSize)
	stripOffset := bitsPerSampleOffset + 6 // 3 x uint16
	stripByteCount := uint32(width * height * 6)

	buf := make([]byte, 0, int(stripOffset)+int(stripByteCount))

	// Header: byte order "II" (little-endian), magic 42, offset of first IFD.
	header := make([]byte, 8)
	header[0], header[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(header[2:4], 42)
	binary.LittleEndian.PutUint32(header[4:8], ifdOffset)
	buf = append(buf, header...)

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32 // interpreted per typ; for SHORT, packed in the low 16 bits
	}
	entries := []entry{
		{tagImageWidth, tiffTypeLong, 1, uint32(width)},
		{tagImageLength, tiffTypeLong, 1, uint32(height)},
		{tagBitsPerSample, tiffTypeShort, 3, bitsPerSampleOffset},
		{tagCompression, tiffTypeShort, 1, 1}, // uncompressed
		{tagPhotometric, tiffTypeShort, 1, 2}, // RGB
		{tagStripOffsets, tiffTypeLong, 1, stripOffset},
		{tagSamplesPerPixel, tiffTypeShort, 1, 3},
		{tagRowsPerStrip, tiffTypeLong, 1, uint32(height)},
		{tagStripByteCounts, tiffTypeLong, 1, stripByteCount},
		{tagPlanarConfig, tiffTypeShort, 1, 1}, // chunky (interleaved)
	}

	ifd := make([]byte, 0, ifdSize)
	count := make([]byte, 2)
	binary.LittleEndian.PutUint16(count, uint16(len(entries)))
	ifd = append(ifd, count...)
	for _, e := range entries {
		rec := make([]byte, 12)
		binary.LittleEndian.PutUint16(rec[0:2], e.tag)
		binary.LittleEndian.PutUint16(rec[2:4], e.typ)
		binary.LittleEndian.PutUint32(rec[4:8], e.count)
		if e.typ == tiffTypeShort && e.count == 1 {
			binary.LittleEndian.PutUint16(rec[8:10], uint16(e.value))
		} else {
			binary.LittleEndian.PutUint32(rec[8:12], e.value)
		}
		ifd = append(ifd, rec...)
	}
	nextIFD := make([]byte, 4) // 0: no further IFDs
	ifd = append(ifd, nextIFD...)
	buf = append(buf, ifd...)

	bps := make([]byte, 6)
	binary.LittleEndian.PutUint16(bps[0:2], 16)
	binary.LittleEndian.PutUint16(bps[2:4], 16)
	binary.LittleEndian.PutUint16(bps[4:6], 16)
	buf = append(buf, bps...)

	buf = append(buf, rgb16[:want]...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("imageio: write %s: %w", path, err)
	}
	return nil
}
