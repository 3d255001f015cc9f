package dossier

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestProcessImageScalesWideImages(t *testing.T) {
	img, err := processImage(pngOf(t, 1600, 400), "Court Steps.png", time.Now())
	if err != nil {
		t.Fatalf("processImage: %v", err)
	}
	if img.Width != maxImageWidth || img.Height != 200 {
		t.Errorf("got %dx%d, want %dx200", img.Width, img.Height, maxImageWidth)
	}
	if !strings.HasPrefix(img.Filename, "court-steps-") || !strings.HasSuffix(img.Filename, ".jpg") {
		t.Errorf("unexpected filename %q", img.Filename)
	}
	if len(img.Data) == 0 {
		t.Error("expected encoded data")
	}
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	img, err := processImage(pngOf(t, 120, 90), "!!!.png", time.Now())
	if err != nil {
		t.Fatalf("processImage: %v", err)
	}
	if img.Width != 120 || img.Height != 90 {
		t.Errorf("got %dx%d, want 120x90", img.Width, img.Height)
	}
	if !strings.HasPrefix(img.Filename, "image-") {
		t.Errorf("expected fallback name, got %q", img.Filename)
	}
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	if _, err := processImage(strings.NewReader("not an image"), "x.png", time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
}
