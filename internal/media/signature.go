// server/internal/media/signature.go
package media

import (
	"bytes"
	"image"
	"image/color"
	_ "image/png"
)

// inkOpacityThreshold: pixels more transparent than this are treated as
// background noise rather than ink.
const inkOpacityThreshold = 10 * 257 // 8-bit alpha 10 on the 16-bit scale

// SignatureEmpty decides whether a captured signature should be treated
// as blank. The capture surface reports how many strokes were committed;
// when that count is available it is authoritative. Without it the
// rendered pixels are scanned for any ink differing from the background.
func SignatureEmpty(strokeCount *int, imageData []byte, background color.Color) bool {
	if strokeCount != nil {
		return *strokeCount == 0
	}
	if len(imageData) == 0 {
		return true
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return true
	}
	return !HasInk(img, background)
}

// HasInk scans the rendered pixels for any opaque pixel that is not the
// known background color.
func HasInk(img image.Image, background color.Color) bool {
	bgR, bgG, bgB, _ := background.RGBA()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a < inkOpacityThreshold {
				continue
			}
			if r != bgR || g != bgG || b != bgB {
				return true
			}
		}
	}
	return false
}
