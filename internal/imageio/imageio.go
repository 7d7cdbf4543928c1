// Package imageio converts an assembled pixel buffer to an 8-bit image and
// saves it under a timestamped name.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	apperrors "github.com/agbru/raysplit/internal/errors"
	"github.com/agbru/raysplit/internal/pixel"
)

// DefaultDir is where renders are saved when no directory is configured.
const DefaultDir = "renders"

// ErrIncomplete is returned when asked to save a buffer with missing pixels.
var ErrIncomplete = errors.New("image is incomplete")

// Formats lists the supported output encodings.
var Formats = []string{"png", "bmp", "tiff"}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if strings.EqualFold(f, format) {
			return nil
		}
	}
	return apperrors.NewConfigError("unsupported image format %q (available: %s)", format, strings.Join(Formats, ", "))
}

// Writer persists a complete image.
type Writer interface {
	Write(buf *pixel.Buffer, scene string) (string, error)
}

// ToImage converts the buffer to 8-bit RGBA, clamping channels to [0, 1].
func ToImage(buf *pixel.Buffer) *image.NRGBA {
	g := buf.Grid()
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			c, _ := buf.Get(row, col)
			img.SetNRGBA(col, row, color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: 255})
		}
	}
	return img
}

func to8(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return ValidateFormat(format)
}

// FileName returns <dir>/<scene>_MMDDYY-hhmmss.<ext>.
func FileName(dir, scene, format string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", scene, t.Format("010206-150405"), strings.ToLower(format)))
}

// FileWriter saves images to a directory, creating it on first use.
type FileWriter struct {
	Dir    string
	Format string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Path returns the name the next Write would use.
func (w FileWriter) Path(scene string) string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	dir := w.Dir
	if dir == "" {
		dir = DefaultDir
	}
	format := w.Format
	if format == "" {
		format = "png"
	}
	return FileName(dir, scene, format, now())
}

// Write encodes buf and saves it, returning the file path.
//
// Parameters:
//   - buf: The assembled image; it must be complete.
//   - scene: The scene id used in the file name.
//
// Returns:
//   - string: The path of the written file.
//   - error: ErrIncomplete, a directory error, or an encoding error.
func (w FileWriter) Write(buf *pixel.Buffer, scene string) (string, error) {
	if !buf.Complete() {
		return "", ErrIncomplete
	}
	path := w.Path(scene)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", apperrors.WrapError(err, "could not create the output directory")
	}
	f, err := os.Create(path) //nolint:gosec // path is built from configured directory and scene id
	if err != nil {
		return "", apperrors.WrapError(err, "create image file")
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if err := Encode(f, ToImage(buf), format); err != nil {
		_ = f.Close()
		return "", apperrors.WrapError(err, "encode %s", format)
	}
	return path, f.Close()
}
