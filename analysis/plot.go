package analysis

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	envelopeColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thresholdColor = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// Plot renders the envelope, the height threshold and the accepted peaks as
// a PNG for human review
func (r *SyllableResult) Plot() ([]byte, error) {
	if len(r.Envelope) == 0 {
		return nil, fmt.Errorf("plot syllables: %w", ErrEmptySignal)
	}

	frameSeconds := float64(r.HopLength) / float64(r.SampleRate)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Syllables: %d", r.Count())
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Normalized energy"
	p.Y.Min = 0
	p.Y.Max = 1.05

	envPts := make(plotter.XYs, len(r.Envelope))
	for i, v := range r.Envelope {
		envPts[i].X = float64(i) * frameSeconds
		envPts[i].Y = v
	}

	line, err := plotter.NewLine(envPts)
	if err != nil {
		return nil, fmt.Errorf("plot envelope: %w", err)
	}
	line.LineStyle.Color = envelopeColor
	line.LineStyle.Width = vg.Points(1.2)
	p.Add(line)
	p.Legend.Add("RMS envelope", line)

	threshold := plotter.NewFunction(func(float64) float64 { return r.Threshold })
	threshold.Color = thresholdColor
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(threshold)
	p.Legend.Add(fmt.Sprintf("height %.2f", r.Threshold), threshold)

	if len(r.Peaks) > 0 {
		peakPts := make(plotter.XYs, len(r.Peaks))
		for i, frame := range r.Peaks {
			peakPts[i].X = float64(frame) * frameSeconds
			peakPts[i].Y = r.Envelope[frame]
		}

		scatter, err := plotter.NewScatter(peakPts)
		if err != nil {
			return nil, fmt.Errorf("plot peaks: %w", err)
		}
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Color = peakColor
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("syllable", scatter)
	}

	writer, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("plot writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render syllable plot: %w", err)
	}
	return buf.Bytes(), nil
}
