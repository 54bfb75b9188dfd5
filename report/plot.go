package report

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/cwbudde/bodeplot/measure/response"
)

// SavePlot renders the classic two-panel Bode plot, gain (dB) above phase
// (degrees), both against log-scaled frequency, and writes it as a PNG.
func SavePlot(path string, points []response.Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}

	gainXYs := make(plotter.XYs, len(points))
	phaseXYs := make(plotter.XYs, len(points))

	for i, p := range points {
		gainXYs[i].X = p.Frequency
		gainXYs[i].Y = p.GainDB
		phaseXYs[i].X = p.Frequency
		phaseXYs[i].Y = p.PhaseDeg
	}

	gainPlot, err := newPanel("Magnitude Response", "Gain [dB]", gainXYs)
	if err != nil {
		return err
	}

	phasePlot, err := newPanel("Phase Response", "Phase [deg]", phaseXYs)
	if err != nil {
		return err
	}

	phasePlot.X.Label.Text = "Frequency [Hz]"

	img := vgimg.New(8*vg.Inch, 7*vg.Inch)
	dc := draw.New(img)

	panels := [][]*plot.Plot{{gainPlot}, {phasePlot}}
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadY: 5 * vg.Millimeter,
	}

	canvases := plot.Align(panels, tiles, dc)
	gainPlot.Draw(canvases[0][0])
	phasePlot.Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("report: writing plot: %w", err)
	}

	return f.Close()
}

func newPanel(title, yLabel string, xys plotter.XYs) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLinePoints(p, xys); err != nil {
		return nil, fmt.Errorf("report: building %s panel: %w", title, err)
	}

	return p, nil
}
