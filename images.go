package dossier

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"

	"github.com/eringen/dossier/content"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsPath   = "/uploads"
)

// processedImage is a featured image ready to be written.
type processedImage struct {
	Filename string
	Width    int
	Height   int
	Data     []byte
}

// processImage decodes src, scales it down to maxImageWidth when wider and
// encodes it as JPEG under a slug of the original name plus a ULID suffix.
func processImage(src io.Reader, originalName string, now time.Time) (processedImage, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return processedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return processedImage{}, fmt.Errorf("image id: %w", err)
	}
	base := content.Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	return processedImage{
		Filename: base + "-" + strings.ToLower(id.String()) + ".jpg",
		Width:    w,
		Height:   h,
		Data:     buf.Bytes(),
	}, nil
}

// handleImageUpload stores a new featured image and points the profile at
// it. Optional form fields alt and caption update the image text.
func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := processImage(io.LimitReader(src, maxUploadSize), file.Filename, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	dir := a.Config.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	dst := filepath.Join(dir, img.Filename)
	if err := os.WriteFile(dst, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	in := content.ProfileInput{FeaturedImageURL: content.Str(path.Join(uploadsPath, img.Filename))}
	if v, ok := formValue(c, "alt"); ok {
		in.FeaturedImageAlt = &v
	}
	if v, ok := formValue(c, "caption"); ok {
		in.FeaturedImageCaption = &v
	}
	profile, err := a.Content.UpdateProfile(c.Request().Context(), in)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	return a.written(c, http.StatusOK, profile)
}

func formValue(c echo.Context, name string) (string, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", false
	}
	vals, ok := form.Value[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
