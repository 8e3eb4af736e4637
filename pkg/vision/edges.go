// Package vision computes the decorative edge statistic reported with image answers.
package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/kakapo-ai/kakapo/pkg/models"
	_ "golang.org/x/image/webp"
)

const (
	// EdgeRadius is the radius of the edge-detection kernel.
	EdgeRadius = 1.0
	// EdgeThreshold is the luminance at or above which a filtered pixel counts as an edge.
	EdgeThreshold uint8 = 100
)

// Decode decodes a JPEG, PNG, GIF or WebP buffer.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// CountEdges runs a fixed-threshold edge filter over img and returns the number of
// edge pixels.
func CountEdges(img image.Image) int {
	edges := segment.Threshold(effect.EdgeDetection(img, EdgeRadius), EdgeThreshold)

	count := 0
	b := edges.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := edges.Pix[(y-b.Min.Y)*edges.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x] > 0 {
				count++
			}
		}
	}
	return count
}

// Analyze decodes data and reports its edge count and [height, width]. It returns
// nil when the bytes are not a decodable image.
func Analyze(data []byte) *models.EdgeAnalysis {
	img, _, err := Decode(data)
	if err != nil {
		return nil
	}
	b := img.Bounds()
	return &models.EdgeAnalysis{
		EdgesDetected: CountEdges(img),
		ImageShape:    [2]int{b.Dy(), b.Dx()},
	}
}

// MIMEType sniffs the image type, defaulting to image/jpeg.
func MIMEType(data []byte) string {
	switch ct := http.DetectContentType(data); ct {
	case "image/png", "image/webp", "image/gif":
		return ct
	default:
		return "image/jpeg"
	}
}
