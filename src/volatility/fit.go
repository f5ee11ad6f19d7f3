package volatility

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// invalid-parameter penalty handed to the optimizer instead of a likelihood
const nllPenalty = 1e10

var ErrNotConverged = errors.New("volatility fit did not converge")

// FitResult is a fitted GARCH-family model bound to the window it was
// estimated on.
type FitResult struct {
	model    Model
	params   []float64
	logLik   float64
	condVar  []float64 // percent^2, aligned with the fitting window
	residual []float64 // standardized residuals
}

// Fit estimates a model on a window of raw log returns.
func Fit(model Model, returns []float64) (*FitResult, error) {
	if len(returns) < 20 {
		return nil, errors.Newf("%s needs at least 20 observations, got %d", model.Family(), len(returns))
	}
	scaled := scaleReturns(returns)

	nll := func(x []float64) float64 {
		path, ok := model.VariancePath(x, scaled)
		if !ok {
			return nllPenalty
		}
		return negLogLikelihood(model.Mean(x), scaled, path)
	}

	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{FuncEvaluations: 20000}

	result, err := optimize.Minimize(problem, model.StartingPoint(scaled), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, errors.WrapE(ErrNotConverged, err)
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) || result.F >= nllPenalty {
		return nil, errors.Wrapf(ErrNotConverged, "%s optimizer stalled at invalid likelihood", model.Family())
	}

	path, ok := model.VariancePath(result.X, scaled)
	if !ok {
		return nil, errors.Wrapf(ErrNotConverged, "%s optimizer returned infeasible parameters", model.Family())
	}

	mu := model.Mean(result.X)
	residuals := make([]float64, len(scaled))
	for t := range scaled {
		residuals[t] = (scaled[t] - mu) / math.Sqrt(path[t])
	}

	slog.Debug("Fitted volatility model",
		"model", model.Family(), "obs", len(returns), "nll", result.F, "evals", result.FuncEvaluations)

	return &FitResult{
		model:    model,
		params:   result.X,
		logLik:   -result.F,
		condVar:  path,
		residual: residuals,
	}, nil
}

func negLogLikelihood(mu float64, returns, path []float64) float64 {
	const log2pi = 1.8378770664093453
	nll := 0.0
	for t := range returns {
		eps := returns[t] - mu
		nll += 0.5 * (log2pi + math.Log(path[t]) + eps*eps/path[t])
	}
	if math.IsNaN(nll) {
		return nllPenalty
	}
	return nll
}

func (f *FitResult) Family() datamodels.ModelFamily { return f.model.Family() }

func (f *FitResult) LogLikelihood() float64 { return f.logLik }

// Params returns the fitted parameters keyed by name.
func (f *FitResult) Params() map[string]float64 {
	names := f.model.ParamNames()
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = f.params[i]
	}
	return out
}

// ConditionalVol returns the in-sample conditional volatility path in
// percent.
func (f *FitResult) ConditionalVol() []float64 {
	vols := make([]float64, len(f.condVar))
	for i, v := range f.condVar {
		vols[i] = math.Sqrt(v)
	}
	return vols
}

// StdResiduals returns the standardized residuals of the fitting window.
func (f *FitResult) StdResiduals() []float64 {
	out := make([]float64, len(f.residual))
	copy(out, f.residual)
	return out
}

// ForecastVolPct runs the fitted recursion over a window of raw log returns
// and extends it one step, returning the one-day-ahead volatility in
// percent. The window may differ from the fitting window, which is how a
// cached fit rolls forward between refits.
func (f *FitResult) ForecastVolPct(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, errors.Newf("window of %d observations is too short to roll %s forward", len(returns), f.model.Family())
	}
	scaled := scaleReturns(returns)
	path, ok := f.model.VariancePath(f.params, scaled)
	if !ok {
		return 0, errors.Newf("fitted %s parameters are infeasible on the rolled window", f.model.Family())
	}
	return math.Sqrt(f.model.NextVariance(f.params, scaled, path)), nil
}
