package imageio

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/agbru/raysplit/internal/partition"
	"github.com/agbru/raysplit/internal/pixel"
)

func filledBuffer(t *testing.T, w, h int) *pixel.Buffer {
	t.Helper()
	buf := pixel.NewBuffer(partition.Grid{Width: w, Height: h})
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if err := buf.Set(row, col, pixel.RGB{1, 0.5, -2}); err != nil {
				t.Fatal(err)
			}
		}
	}
	return buf
}

func TestFileName(t *testing.T) {
	t.Parallel()
	ts := time.Date(2013, time.October, 26, 9, 5, 7, 0, time.UTC)
	got := FileName("renders", "spheres", "PNG", ts)
	if want := filepath.Join("renders", "spheres_102613-090507.png"); got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestToImageClamps(t *testing.T) {
	t.Parallel()
	img := ToImage(filledBuffer(t, 2, 1))
	c := img.NRGBAAt(1, 0)
	if c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("pixel = %+v", c)
	}
}

func TestEncodeFormats(t *testing.T) {
	t.Parallel()
	img := ToImage(filledBuffer(t, 3, 2))
	decoders := map[string]func(*bytes.Reader) error{
		"png":  func(r *bytes.Reader) error { _, err := png.Decode(r); return err },
		"bmp":  func(r *bytes.Reader) error { _, err := bmp.Decode(r); return err },
		"tiff": func(r *bytes.Reader) error { _, err := tiff.Decode(r); return err },
	}
	for format, decode := range decoders {
		var b bytes.Buffer
		if err := Encode(&b, img, format); err != nil {
			t.Fatalf("Encode(%s) error = %v", format, err)
		}
		if err := decode(bytes.NewReader(b.Bytes())); err != nil {
			t.Errorf("decode %s: %v", format, err)
		}
	}
	if err := Encode(&bytes.Buffer{}, img, "gif"); err == nil {
		t.Error("Encode(gif) succeeded")
	}
}

func TestFileWriter(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	ts := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	w := FileWriter{Dir: dir, Format: "bmp", Now: func() time.Time { return ts }}

	path, err := w.Write(filledBuffer(t, 4, 4), "gradient")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if want := filepath.Join(dir, "gradient_030124-120000.bmp"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("output directory not created: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("directory mode = %v, want 0700", info.Mode().Perm())
	}
}

func TestFileWriterRefusesIncomplete(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "never")
	buf := pixel.NewBuffer(partition.Grid{Width: 2, Height: 2})
	_ = buf.Set(0, 0, pixel.RGB{})
	if _, err := (FileWriter{Dir: dir}).Write(buf, "x"); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Write() error = %v, want ErrIncomplete", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory created for an incomplete image")
	}
}

func TestFileWriterDirectoryIsAFile(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	w := FileWriter{Dir: filepath.Join(blocker, "out"), Format: "png"}
	_, err := w.Write(filledBuffer(t, 2, 2), "gradient")
	if err == nil {
		t.Fatal("Write() succeeded below a regular file")
	}
	if !strings.HasPrefix(err.Error(), "could not create the output directory: ") {
		t.Errorf("Write() error = %q", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("Write() error does not wrap the filesystem error")
	}
}
