package telemetry

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pthm-cable/salamanders/phylo"
)

// PlotLineages renders a lineages-through-time curve as a PNG.
func PlotLineages(w io.Writer, title string, points []phylo.LTTPoint) error {
	if len(points) < 2 {
		return errors.New("need at least two points to plot")
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	maxY := 1.0
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = float64(p.Living)
		maxY = max(maxY, ys[i])
	}

	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Name:  "Time since start (Myr)",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "Living lineages",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "lineages",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 34, G: 110, B: 60, A: 255},
					StrokeWidth: 2.0,
				},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering lineage plot: %w", err)
	}
	return nil
}
