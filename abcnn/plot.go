package abcnn

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// attentionGrid adapts an attention matrix to the heat map's grid
// interface. Matrix row 0 is drawn at the top, matching how the
// question reads.
type attentionGrid struct {
	m *mat.Dense
}

func (g attentionGrid) Dims() (int, int) {
	rows, cols := g.m.Dims()
	return cols, rows
}

func (g attentionGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g attentionGrid) X(c int) float64 { return float64(c) }
func (g attentionGrid) Y(r int) float64 { return float64(r) }

// SaveHeatmap renders an attention matrix as a heat map with the
// given row and column tick labels and writes it to path. The output
// format follows the file extension (.png, .svg, .pdf).
func SaveHeatmap(A *mat.Dense, title string, rowLabels, colLabels []string, path string) error {
	rows, cols := A.Dims()
	if rows != len(rowLabels) || cols != len(colLabels) {
		return fmt.Errorf("heatmap %s: matrix is %dx%d but got %d row and %d column labels",
			title, rows, cols, len(rowLabels), len(colLabels))
	}

	p := plot.New()
	p.Title.Text = title

	pal := palette.Rainbow(255, palette.Blue, palette.Red, 1, 1, 1)
	p.Add(plotter.NewHeatMap(attentionGrid{m: A}, pal))

	xticks := make([]plot.Tick, cols)
	for j := range xticks {
		xticks[j] = plot.Tick{Value: float64(j), Label: colLabels[j]}
	}
	yticks := make([]plot.Tick, rows)
	for i := range yticks {
		// row 0 is drawn at the top, so its tick sits at the highest y
		yticks[i] = plot.Tick{Value: float64(rows - 1 - i), Label: rowLabels[i]}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	// scale the canvas with the sequence length so labels stay legible
	side := vg.Length(math.Max(10, float64(rows)/3)) * vg.Centimeter
	if err := p.Save(side, side, path); err != nil {
		return fmt.Errorf("save heatmap %s: %w", path, err)
	}
	return nil
}

// SaveMetricPlot renders one training metric's history as a scatter
// of value against epoch number (1-based) and writes it to path.
func SaveMetricPlot(metric string, values []float64, path string) error {
	if len(values) == 0 {
		return fmt.Errorf("metric %s has no history values", metric)
	}

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("plot metric %s: %w", metric, err)
	}
	scatter.GlyphStyle.Shape = draw.CrossGlyph{}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, A: 255}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs time", metric)
	p.X.Label.Text = "time"
	p.Y.Label.Text = metric
	p.Add(scatter)

	if err := p.Save(15*vg.Centimeter, 10*vg.Centimeter, path); err != nil {
		return fmt.Errorf("save metric plot %s: %w", path, err)
	}
	return nil
}

// positionLabels labels matrix axes that no longer align with words,
// such as output attention over the widened convolution positions.
func positionLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i)
	}
	return labels
}
