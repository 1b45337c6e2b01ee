// Package hash implements C3: a chunked content hash for exact-duplicate
// grouping and a perceptual difference-hash for near-duplicate grouping.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/bits"
	"os"

	"github.com/nfnt/resize"
)

// chunkSize bounds memory use while hashing arbitrarily large source files,
// per spec.md §4.3 ("fixed-size chunked reads").
const chunkSize = 64 * 1024

// Content computes the hex-encoded SHA-256 of the full file at path,
// reading in fixed-size chunks so memory use stays bounded regardless of
// file size.
func Content(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// dHash dimensions: a 9x8 grayscale rescale yields 8 horizontal-gradient
// bits per row across 8 rows, producing exactly 64 bits.
const (
	dHashWidth  = 9
	dHashHeight = 8
)

// Perceptual computes a 64-bit difference-hash of the image at path,
// hex-encoded. Returns ("", nil) — not an error — for files that aren't
// decodable images, per spec.md §4.3 ("returns null for non-images and for
// unreadable images; never fails the overall processing pipeline").
func Perceptual(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", nil
	}

	small := resize.Resize(dHashWidth, dHashHeight, img, resize.Bilinear)
	bounds := small.Bounds()

	gray := make([][]float64, dHashHeight)
	for y := 0; y < dHashHeight; y++ {
		gray[y] = make([]float64, dHashWidth)
		for x := 0; x < dHashWidth; x++ {
			r, g, b, _ := small.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Standard luma weights, applied to the 16-bit channel values
			// RGBA() returns.
			gray[y][x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}

	var bits uint64
	bitIndex := uint(0)
	for y := 0; y < dHashHeight; y++ {
		for x := 0; x < dHashWidth-1; x++ {
			if gray[y][x] > gray[y][x+1] {
				bits |= 1 << bitIndex
			}
			bitIndex++
		}
	}

	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	return hex.EncodeToString(buf), nil
}

// HammingDistance64Hex decodes two hex-encoded 64-bit perceptual hashes and
// returns the number of differing bits, used by C6 to classify near-duplicates.
func HammingDistance64Hex(a, b string) (int, error) {
	ab, err := hex.DecodeString(a)
	if err != nil {
		return 0, err
	}
	bb, err := hex.DecodeString(b)
	if err != nil {
		return 0, err
	}
	var av, bv uint64
	for i := 0; i < 8 && i < len(ab); i++ {
		av |= uint64(ab[i]) << (8 * i)
	}
	for i := 0; i < 8 && i < len(bb); i++ {
		bv |= uint64(bb[i]) << (8 * i)
	}
	return bits.OnesCount64(av ^ bv), nil
}
