package skin

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

var hatRed = color.NRGBA{R: 255, A: 255}

// testSkin builds a 64x64 atlas whose face pixels each carry a distinct color.
// The hat layer is transparent except for its top-left pixel.
func testSkin() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			img.SetNRGBA(HeadX+i, HeadY+j, faceColor(i, j))
		}
	}
	img.SetNRGBA(HeadX+HatOffsetX, HeadY, hatRed)
	return img
}

func faceColor(i, j int) color.NRGBA {
	return color.NRGBA{R: uint8(i * 30), G: uint8(j * 30), B: 200, A: 255}
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateHead_NearestNeighborBlocks(t *testing.T) {
	out, err := GenerateHead(bytes.NewReader(encode(t, testSkin())), Options{RequirePNG: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, CanvasSize, CanvasSize) {
		t.Fatalf("bounds=%v", out.Bounds())
	}

	cell := float64(BaseSize) / FaceSize
	for j := 0; j < 8; j++ {
		for i := 0; i < 8; i++ {
			if i == 0 && j == 0 {
				continue
			}
			x := BaseMargin + int((float64(i)+0.5)*cell)
			y := BaseMargin + int((float64(j)+0.5)*cell)
			if got, want := out.NRGBAAt(x, y), faceColor(i, j); got != want {
				t.Fatalf("face (%d,%d) at (%d,%d)=%v want %v", i, j, x, y, got, want)
			}
		}
	}

	// The hat's single opaque pixel covers a 125px block over the face.
	for _, p := range []image.Point{{0, 0}, {124, 124}, {100, 10}} {
		if got := out.NRGBAAt(p.X, p.Y); got != hatRed {
			t.Fatalf("hat at %v=%v want %v", p, got, hatRed)
		}
	}
	if got := out.NRGBAAt(130, 130); got != faceColor(0, 0) {
		t.Fatalf("face under transparent hat=%v want %v", got, faceColor(0, 0))
	}

	// Block edges land on the scaled grid.
	if got := out.NRGBAAt(BaseMargin+BaseSize-1, BaseMargin+BaseSize-1); got != faceColor(7, 7) {
		t.Fatalf("last face pixel=%v", got)
	}
	for _, p := range []image.Point{{BaseMargin - 1, 500}, {BaseMargin + BaseSize, 500}, {999, 999}} {
		if got := out.NRGBAAt(p.X, p.Y); got.A != 0 {
			t.Fatalf("margin at %v should be transparent, got %v", p, got)
		}
	}
}

func TestRegions_ScaleWithWidth(t *testing.T) {
	head, hat := Regions(image.Rect(0, 0, 128, 128))
	if head != image.Rect(16, 16, 32, 32) {
		t.Fatalf("head=%v", head)
	}
	if hat != image.Rect(80, 16, 96, 32) {
		t.Fatalf("hat=%v", hat)
	}
	if k := Scale(image.Rect(0, 0, 32, 16)); k != 1 {
		t.Fatalf("small atlas scale=%d want 1", k)
	}
}

func TestGenerateHead_Errors(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, testSkin(), nil); err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	full := encode(t, testSkin())

	cases := []struct {
		name   string
		data   []byte
		opts   Options
		format bool
	}{
		{"garbage", []byte("definitely not an image"), Options{}, true},
		{"jpeg rejected", jpg.Bytes(), Options{RequirePNG: true}, true},
		{"too small", encode(t, image.NewNRGBA(image.Rect(0, 0, 8, 8))), Options{}, true},
		{"truncated png", full[:len(full)/2], Options{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateHead(bytes.NewReader(tc.data), tc.opts)
			var fe *FormatError
			var le *LoadError
			switch {
			case tc.format && !errors.As(err, &fe):
				t.Fatalf("want *FormatError, got %T %v", err, err)
			case !tc.format && !errors.As(err, &le):
				t.Fatalf("want *LoadError, got %T %v", err, err)
			}
		})
	}
}

func TestGenerateHead_JPEGAllowedWithoutRequirePNG(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, testSkin(), nil); err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	if _, err := GenerateHead(&jpg, Options{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestHeadPNG_Decodes(t *testing.T) {
	b, err := HeadPNG(bytes.NewReader(encode(t, testSkin())), Options{})
	if err != nil {
		t.Fatalf("head png: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != CanvasSize || cfg.Height != CanvasSize {
		t.Fatalf("size=%dx%d", cfg.Width, cfg.Height)
	}
}
