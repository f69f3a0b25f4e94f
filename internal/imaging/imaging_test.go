package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestThumbnail_ScalesDown(t *testing.T) {
	data := encodePNG(t, 500, 250)

	out, err := Thumbnail(data, 100, 100)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if w := img.Bounds().Dx(); w != 100 {
		t.Errorf("width = %d, want 100", w)
	}
	if h := img.Bounds().Dy(); h != 50 {
		t.Errorf("height = %d, want 50 (aspect ratio preserved)", h)
	}
}

func TestThumbnail_KeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 40, 30)

	out, err := Thumbnail(data, 100, 100)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("dimensions = %dx%d, want 40x30", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestThumbnail_InvalidData(t *testing.T) {
	if _, err := Thumbnail([]byte("not an image"), 100, 100); err == nil {
		t.Error("expected error for invalid image data")
	}
}
