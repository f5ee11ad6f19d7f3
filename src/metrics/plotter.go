package metrics

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"volbot/src/datamodels"
	"volbot/src/diagnostics"
	"volbot/src/utils/errors"
)

const (
	figWidth  = 10 * vg.Inch
	figHeight = 4 * vg.Inch
)

// FigurePlotter renders the diagnostic figures as PNG files.
type FigurePlotter struct {
	figsDir string
}

func NewFigurePlotter(figsDir string) (*FigurePlotter, error) {
	if err := os.MkdirAll(figsDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create figures directory %s", figsDir)
	}
	return &FigurePlotter{figsDir: figsDir}, nil
}

func (fp *FigurePlotter) path(name string) string {
	return filepath.Join(fp.figsDir, name)
}

// PlotConditionalVol draws one model's conditional volatility path.
func (fp *FigurePlotter) PlotConditionalVol(asset datamodels.Asset, model datamodels.ModelFamily, timestamps []time.Time, vols []float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s conditional volatility", asset, model)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Vol (%)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	line, err := plotter.NewLine(timeXYs(timestamps, vols))
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	p.Add(line, plotter.NewGrid())
	p.Legend.Add(fmt.Sprintf("%s cond. vol", model), line)

	return p.Save(figWidth, figHeight, fp.path(fmt.Sprintf("%s_%s_volatility.png", asset, model)))
}

// PlotQQ draws the standardized-residual QQ plot with the Ljung-Box p-value
// in the title.
func (fp *FigurePlotter) PlotQQ(asset datamodels.Asset, model datamodels.ModelFamily, points []diagnostics.QQPoint, lb diagnostics.LjungBoxResult) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s standardized residual QQ-plot, Ljung-Box p(%d)=%.3f",
		asset, model, lb.Lags, lb.PValue)
	p.X.Label.Text = "Theoretical quantiles"
	p.Y.Label.Text = "Sample quantiles"

	xys := make(plotter.XYs, len(points))
	minQ, maxQ := math.Inf(1), math.Inf(-1)
	for i, pt := range points {
		xys[i].X = pt.Theoretical
		xys[i].Y = pt.Observed
		minQ = math.Min(minQ, pt.Theoretical)
		maxQ = math.Max(maxQ, pt.Theoretical)
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = plotutil.Color(0)

	reference := plotter.NewFunction(func(x float64) float64 { return x })
	reference.Color = plotutil.Color(1)
	reference.XMin = minQ
	reference.XMax = maxQ

	p.Add(scatter, reference, plotter.NewGrid())

	return p.Save(6*vg.Inch, 6*vg.Inch, fp.path(fmt.Sprintf("%s_%s_qqplot.png", asset, model)))
}

// PlotCondVsRealized overlays every model's conditional volatility with the
// rolling realized volatility (scaled to percent).
func (fp *FigurePlotter) PlotCondVsRealized(asset datamodels.Asset, timestamps []time.Time, condVols map[datamodels.ModelFamily][]float64, realized []float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: Conditional vs Realized Volatility", asset)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Vol (%)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	i := 0
	for model, vols := range condVols {
		line, err := plotter.NewLine(timeXYs(timestamps, vols))
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s cond vol", model), line)
		i++
	}

	realizedPct := make([]float64, len(realized))
	for j, rv := range realized {
		realizedPct[j] = rv * 100.0
	}
	realizedLine, err := plotter.NewLine(timeXYs(timestamps, realizedPct))
	if err != nil {
		return err
	}
	realizedLine.Color = plotutil.Color(i)
	realizedLine.Dashes = plotutil.Dashes(1)
	p.Add(realizedLine, plotter.NewGrid())
	p.Legend.Add("realized vol", realizedLine)

	return p.Save(figWidth, figHeight, fp.path(fmt.Sprintf("%s_cond_vs_realized.png", asset)))
}

// PlotRegimeProbs draws the posterior probability of each state over time.
func (fp *FigurePlotter) PlotRegimeProbs(asset datamodels.Asset, posteriors []datamodels.RegimePosterior) error {
	if len(posteriors) == 0 {
		return errors.New("no posteriors to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: Regime posterior probabilities", asset)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Probability"
	p.Y.Min, p.Y.Max = 0, 1
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	numStates := len(posteriors[0].Probs)
	for state := 0; state < numStates; state++ {
		xys := make(plotter.XYs, len(posteriors))
		for i, post := range posteriors {
			xys[i].X = float64(post.Timestamp.Unix())
			xys[i].Y = post.Probs[state]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(state)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("State %d", state), line)
	}
	p.Add(plotter.NewGrid())

	return p.Save(figWidth, figHeight, fp.path(fmt.Sprintf("%s_regime_probs.png", asset)))
}

// PlotRegimeScatter draws returns colored by their inferred regime.
func (fp *FigurePlotter) PlotRegimeScatter(asset datamodels.Asset, points []datamodels.ReturnPoint, labels []datamodels.RegimeLabel, numStates int) error {
	if len(points) != len(labels) {
		return errors.Newf("got %d points but %d labels", len(points), len(labels))
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: Returns colored by inferred regime", asset)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Return (%)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	for state := 0; state < numStates; state++ {
		var xys plotter.XYs
		for i, pt := range points {
			if labels[i].State != state {
				continue
			}
			xys = append(xys, plotter.XY{
				X: float64(pt.Timestamp.Unix()),
				Y: pt.LogReturn * 100.0,
			})
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Radius = vg.Points(1)
		scatter.GlyphStyle.Color = plotutil.Color(state)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("State %d", state), scatter)
	}

	return p.Save(figWidth, figHeight, fp.path(fmt.Sprintf("%s_regime_scatter.png", asset)))
}

// PlotTransitionMatrix renders the regime transition matrix as a heatmap.
func (fp *FigurePlotter) PlotTransitionMatrix(asset datamodels.Asset, trans [][]float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: HMM transition matrix", asset)
	p.X.Label.Text = "Next State"
	p.Y.Label.Text = "Current State"

	grid := transitionGrid{trans: trans}
	pal := moreland.SmoothBlueRed().Palette(255)
	heatmap := plotter.NewHeatMap(grid, pal)
	heatmap.Min, heatmap.Max = 0, 1
	p.Add(heatmap)

	return p.Save(6*vg.Inch, 6*vg.Inch, fp.path(fmt.Sprintf("%s_transition_matrix.png", asset)))
}

// PlotForecastRMSE draws the per-model RMSE bars.
func (fp *FigurePlotter) PlotForecastRMSE(asset datamodels.Asset, scores []datamodels.EvalScore) error {
	if len(scores) == 0 {
		return errors.New("no scores to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: Forecast RMSE vs Realized Volatility", asset)
	p.Y.Label.Text = "RMSE (pct vol)"

	values := make(plotter.Values, len(scores))
	names := make([]string, len(scores))
	for i, s := range scores {
		values[i] = s.RMSE
		names[i] = string(s.Model)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, figHeight, fp.path(fmt.Sprintf("%s_forecast_rmse.png", asset)))
}

// timeXYs builds plot points from aligned timestamp/value slices, dropping
// NaN values so axis autoscaling stays sane.
func timeXYs(timestamps []time.Time, values []float64) plotter.XYs {
	var xys plotter.XYs
	for i := range values {
		if math.IsNaN(values[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(timestamps[i].Unix()), Y: values[i]})
	}
	return xys
}

// transitionGrid adapts a transition matrix to the plotter's GridXYZ.
type transitionGrid struct {
	trans [][]float64
}

func (g transitionGrid) Dims() (int, int) { return len(g.trans), len(g.trans) }
func (g transitionGrid) X(c int) float64  { return float64(c) }
func (g transitionGrid) Y(r int) float64  { return float64(r) }
func (g transitionGrid) Z(c, r int) float64 {
	// row 0 at the bottom of the plot; flip so state 0 reads top-left
	return g.trans[len(g.trans)-1-r][c]
}
