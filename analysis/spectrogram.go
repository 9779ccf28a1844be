package analysis

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
)

// Spectrogram is a rendered log-mel spectrogram.
//
// DB is indexed [frame][band]. Pix is the Height x Width grayscale raster in
// row-major order with the highest band on row 0, so the image reads like a
// conventional spectrogram plot with low frequencies at the bottom.
type Spectrogram struct {
	Width  int
	Height int
	DB     [][]float64
	Pix    []uint8
}

// newSpectrogram rasterizes db with a linear gray map from its minimum
// (black) to its maximum (white). Constant input renders black.
func newSpectrogram(db [][]float64) *Spectrogram {
	width := len(db)
	height := 0
	if width > 0 {
		height = len(db[0])
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, frame := range db {
		for _, v := range frame {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo

	pix := make([]uint8, width*height)
	if span > 0 {
		for x, frame := range db {
			for band, v := range frame {
				y := height - 1 - band
				pix[y*width+x] = uint8(math.Round(255 * (v - lo) / span))
			}
		}
	}

	return &Spectrogram{
		Width:  width,
		Height: height,
		DB:     db,
		Pix:    pix,
	}
}

// Image returns the raster as an image
func (s *Spectrogram) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	copy(img.Pix, s.Pix)
	return img
}

// PNG encodes the raster without axes or margins
func (s *Spectrogram) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image()); err != nil {
		return nil, fmt.Errorf("encode spectrogram png: %w", err)
	}
	return buf.Bytes(), nil
}

// Tensor returns the raster as Height rows of Width values in [0, 1]
func (s *Spectrogram) Tensor() [][]float64 {
	rows := make([][]float64, s.Height)
	for y := range rows {
		row := make([]float64, s.Width)
		for x := range row {
			row[x] = float64(s.Pix[y*s.Width+x]) / 255.0
		}
		rows[y] = row
	}
	return rows
}
