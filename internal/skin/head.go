// Package skin renders a head avatar from a Minecraft skin texture.
package skin

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

// Canvas geometry, in output pixels.
const (
	CanvasSize  = 1000
	BaseSize    = 875
	OverlaySize = CanvasSize
	// The base is centered at 62.5px, which lands on the pixel grid at 63.
	BaseMargin = (CanvasSize - BaseSize + 1) / 2
)

// Atlas geometry in 64-unit texture space.
const (
	AtlasWidth = 64
	FaceSize   = 8
	HeadX      = 8
	HeadY      = 8
	HatOffsetX = 32

	MinWidth  = 16
	MinHeight = 8
)

// DownloadName is the suggested file name for the exported avatar.
const DownloadName = "minecraft-head.png"

// LoadError means the input bytes could not be read or decoded as an image.
type LoadError struct{ Err error }

func (e *LoadError) Error() string { return "skin: load image: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// FormatError means the input decoded but is not usable as a skin.
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("skin: %s image: %s", e.Format, e.Reason)
	}
	return "skin: " + e.Reason
}

type Options struct {
	// RequirePNG rejects other decodable formats with a FormatError.
	RequirePNG bool
}

// GenerateHead decodes a skin and composites its face and hat layers onto a
// 1000x1000 canvas using nearest-neighbor scaling.
func GenerateHead(r io.Reader, opts Options) (*image.NRGBA, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &FormatError{Reason: "not a recognized raster image"}
		}
		return nil, &LoadError{Err: err}
	}
	if opts.RequirePNG && format != "png" {
		return nil, &FormatError{Format: format, Reason: "expected a PNG skin"}
	}
	return RenderHead(src)
}

// RenderHead composites an already decoded skin.
func RenderHead(src image.Image) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() < MinWidth || b.Dy() < MinHeight {
		return nil, &FormatError{Reason: fmt.Sprintf("skin is %dx%d, need at least %dx%d", b.Dx(), b.Dy(), MinWidth, MinHeight)}
	}

	head, hat := Regions(b)
	dst := image.NewNRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))

	baseRect := image.Rect(BaseMargin, BaseMargin, BaseMargin+BaseSize, BaseMargin+BaseSize)
	xdraw.NearestNeighbor.Scale(dst, baseRect, src, head, draw.Over, nil)
	xdraw.NearestNeighbor.Scale(dst, image.Rect(0, 0, OverlaySize, OverlaySize), src, hat, draw.Over, nil)
	return dst, nil
}

// Scale is the integer texture scale for an atlas of the given bounds.
func Scale(b image.Rectangle) int {
	k := b.Dx() / AtlasWidth
	if k < 1 {
		k = 1
	}
	return k
}

// Regions returns the face and hat source rectangles inside bounds b.
func Regions(b image.Rectangle) (head, hat image.Rectangle) {
	k := Scale(b)
	size := FaceSize * k
	head = image.Rect(HeadX*k, HeadY*k, HeadX*k+size, HeadY*k+size).Add(b.Min)
	hat = head.Add(image.Pt(HatOffsetX*k, 0))
	return head, hat
}

func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// HeadPNG runs GenerateHead and encodes the result.
func HeadPNG(r io.Reader, opts Options) ([]byte, error) {
	img, err := GenerateHead(r, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
