package otp

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// MatrixSize is the side length, in pixels, of rendered pairing codes.
const MatrixSize = 180

// Matrix is a square black/white pixel grid. Pixels[y][x] is true for black.
type Matrix struct {
	Size   int
	Pixels [][]bool
}

// RenderMatrix encodes uri as a QR code scaled to MatrixSize. Empty input
// yields a nil matrix and no error: there is nothing to show yet.
func RenderMatrix(uri string) (*Matrix, error) {
	if uri == "" {
		return nil, nil
	}

	code, err := qr.Encode(uri, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	scaled, err := barcode.Scale(code, MatrixSize, MatrixSize)
	if err != nil {
		return nil, err
	}

	b := scaled.Bounds()
	m := &Matrix{Size: MatrixSize, Pixels: make([][]bool, MatrixSize)}
	for y := range MatrixSize {
		row := make([]bool, MatrixSize)
		for x := range MatrixSize {
			r, _, _, _ := scaled.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x] = r < 0x8000
		}
		m.Pixels[y] = row
	}

	return m, nil
}

// Image converts the grid to a grayscale image.
func (m *Matrix) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Size, m.Size))
	for y, row := range m.Pixels {
		for x, black := range row {
			if black {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}

	return img
}

// WritePNG encodes the grid as PNG.
func (m *Matrix) WritePNG(w io.Writer) error {
	return png.Encode(w, m.Image())
}
