// Package regime infers latent volatility regimes with a Gaussian Hidden
// Markov Model fitted by Baum-Welch EM.
package regime

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"volbot/src/utils/errors"
)

const covJitter = 1e-6

var ErrHmmNotConverged = errors.New("hmm fit did not converge")

// HMM configures a Gaussian HMM fit.
type HMM struct {
	numStates int
	maxIter   int
	seed      int64
	tol       float64
}

func NewHMM(numStates int) *HMM {
	return &HMM{numStates: numStates, maxIter: 200, seed: 42, tol: 1e-6}
}

func (h *HMM) WithMaxIter(maxIter int) *HMM {
	h.maxIter = maxIter
	return h
}

func (h *HMM) WithSeed(seed int64) *HMM {
	h.seed = seed
	return h
}

func (h *HMM) WithTol(tol float64) *HMM {
	h.tol = tol
	return h
}

// HMMResult holds the fitted model and the smoothed inference over the
// fitting sample.
type HMMResult struct {
	NumStates int
	NumDims   int
	LogLik    float64
	Pi        []float64
	Trans     [][]float64 // Trans[i][j] = P(next=j | current=i)
	Means     [][]float64
	Covs      []*mat.SymDense

	posterior [][]float64 // T x K smoothed state probabilities
	viterbi   []int
}

// Fit runs Baum-Welch on a T x D feature matrix.
func (h *HMM) Fit(X [][]float64) (*HMMResult, error) {
	if h.numStates < 2 {
		return nil, errors.Newf("hmm needs at least 2 states, got %d", h.numStates)
	}
	if len(X) < 10*h.numStates {
		return nil, errors.Newf("hmm with %d states needs more than %d observations", h.numStates, len(X))
	}
	T := len(X)
	D := len(X[0])
	K := h.numStates

	pi, trans, means, covs := h.initParams(X, K, D)

	var prevLogLik float64
	var res *HMMResult
	for iter := 0; iter < h.maxIter; iter++ {
		logB, err := emissionLogProbs(X, means, covs)
		if err != nil {
			return nil, err
		}

		alpha, scale, err := forwardPass(pi, trans, logB)
		if err != nil {
			return nil, err
		}
		beta := backwardPass(trans, logB, scale)

		logLik := 0.0
		for t := 0; t < T; t++ {
			logLik += math.Log(scale[t])
		}

		// gamma[t][j]: smoothed state probabilities
		gamma := make([][]float64, T)
		for t := 0; t < T; t++ {
			gamma[t] = make([]float64, K)
			norm := 0.0
			for j := 0; j < K; j++ {
				gamma[t][j] = alpha[t][j] * beta[t][j]
				norm += gamma[t][j]
			}
			for j := 0; j < K; j++ {
				gamma[t][j] /= norm
			}
		}

		// xi accumulated over t: expected transition counts
		xiSum := zeros(K, K)
		for t := 0; t < T-1; t++ {
			norm := 0.0
			local := zeros(K, K)
			for i := 0; i < K; i++ {
				for j := 0; j < K; j++ {
					v := alpha[t][i] * trans[i][j] * math.Exp(logB[t+1][j]) * beta[t+1][j]
					local[i][j] = v
					norm += v
				}
			}
			if norm == 0 {
				continue
			}
			for i := 0; i < K; i++ {
				for j := 0; j < K; j++ {
					xiSum[i][j] += local[i][j] / norm
				}
			}
		}

		// M-step
		for j := 0; j < K; j++ {
			pi[j] = gamma[0][j]
		}
		for i := 0; i < K; i++ {
			rowSum := 0.0
			for j := 0; j < K; j++ {
				rowSum += xiSum[i][j]
			}
			if rowSum == 0 {
				continue
			}
			for j := 0; j < K; j++ {
				trans[i][j] = xiSum[i][j] / rowSum
			}
		}
		for j := 0; j < K; j++ {
			weight := 0.0
			mean := make([]float64, D)
			for t := 0; t < T; t++ {
				weight += gamma[t][j]
				for d := 0; d < D; d++ {
					mean[d] += gamma[t][j] * X[t][d]
				}
			}
			if weight == 0 {
				continue
			}
			for d := 0; d < D; d++ {
				mean[d] /= weight
			}
			cov := mat.NewSymDense(D, nil)
			for t := 0; t < T; t++ {
				w := gamma[t][j] / weight
				for a := 0; a < D; a++ {
					for b := a; b < D; b++ {
						cov.SetSym(a, b, cov.At(a, b)+w*(X[t][a]-mean[a])*(X[t][b]-mean[b]))
					}
				}
			}
			for d := 0; d < D; d++ {
				cov.SetSym(d, d, cov.At(d, d)+covJitter)
			}
			means[j] = mean
			covs[j] = cov
		}

		converged := iter > 0 && math.Abs(logLik-prevLogLik) < h.tol*(math.Abs(prevLogLik)+1)
		prevLogLik = logLik

		if converged || iter == h.maxIter-1 {
			res = &HMMResult{
				NumStates: K,
				NumDims:   D,
				LogLik:    logLik,
				Pi:        pi,
				Trans:     trans,
				Means:     means,
				Covs:      covs,
				posterior: gamma,
			}
			if !converged {
				slog.Warn("HMM hit iteration cap before converging", "iters", h.maxIter, "loglik", logLik)
			} else {
				slog.Debug("HMM converged", "iters", iter+1, "loglik", logLik)
			}
			break
		}
	}

	if res == nil {
		return nil, ErrHmmNotConverged
	}

	viterbi, err := res.viterbiPath(X)
	if err != nil {
		return nil, err
	}
	res.viterbi = viterbi
	return res, nil
}

// initParams seeds the EM from contiguous buckets of the sample ordered by
// the last feature (squared return for the regime features), which puts the
// high-variance bucket in its own state.
func (h *HMM) initParams(X [][]float64, K, D int) (pi []float64, trans [][]float64, means [][]float64, covs []*mat.SymDense) {
	rng := rand.New(rand.NewSource(h.seed))
	T := len(X)

	pi = make([]float64, K)
	trans = zeros(K, K)
	for i := 0; i < K; i++ {
		pi[i] = 1.0 / float64(K)
		for j := 0; j < K; j++ {
			if i == j {
				trans[i][j] = 0.9
			} else {
				trans[i][j] = 0.1 / float64(K-1)
			}
		}
	}

	order := make([]int, T)
	for i := range order {
		order[i] = i
	}
	sortByLastFeature(X, order)

	means = make([][]float64, K)
	covs = make([]*mat.SymDense, K)
	bucket := T / K
	for j := 0; j < K; j++ {
		lo, hi := j*bucket, (j+1)*bucket
		if j == K-1 {
			hi = T
		}
		mean := make([]float64, D)
		for _, idx := range order[lo:hi] {
			for d := 0; d < D; d++ {
				mean[d] += X[idx][d]
			}
		}
		for d := 0; d < D; d++ {
			mean[d] = mean[d]/float64(hi-lo) + 1e-3*rng.NormFloat64()
		}
		cov := mat.NewSymDense(D, nil)
		for _, idx := range order[lo:hi] {
			for a := 0; a < D; a++ {
				for b := a; b < D; b++ {
					cov.SetSym(a, b, cov.At(a, b)+(X[idx][a]-mean[a])*(X[idx][b]-mean[b])/float64(hi-lo))
				}
			}
		}
		for d := 0; d < D; d++ {
			cov.SetSym(d, d, cov.At(d, d)+covJitter)
		}
		means[j] = mean
		covs[j] = cov
	}
	return pi, trans, means, covs
}

func emissionLogProbs(X [][]float64, means [][]float64, covs []*mat.SymDense) ([][]float64, error) {
	K := len(means)
	dists := make([]*distmv.Normal, K)
	for j := 0; j < K; j++ {
		dist, ok := distmv.NewNormal(means[j], covs[j], nil)
		if !ok {
			// retry with an inflated diagonal before giving up
			d := covs[j].SymmetricDim()
			jittered := mat.NewSymDense(d, nil)
			jittered.CopySym(covs[j])
			for k := 0; k < d; k++ {
				jittered.SetSym(k, k, jittered.At(k, k)+1e-4)
			}
			dist, ok = distmv.NewNormal(means[j], jittered, nil)
			if !ok {
				return nil, errors.Wrapf(ErrHmmNotConverged, "state %d covariance is not positive definite", j)
			}
		}
		dists[j] = dist
	}

	logB := make([][]float64, len(X))
	for t, x := range X {
		logB[t] = make([]float64, K)
		for j := 0; j < K; j++ {
			logB[t][j] = dists[j].LogProb(x)
		}
	}
	return logB, nil
}

// forwardPass runs the scaled forward recursion; scale[t] is the per-step
// normalizer so that sum log(scale) is the log-likelihood.
func forwardPass(pi []float64, trans [][]float64, logB [][]float64) (alpha [][]float64, scale []float64, err error) {
	T := len(logB)
	K := len(pi)
	alpha = make([][]float64, T)
	scale = make([]float64, T)

	alpha[0] = make([]float64, K)
	for j := 0; j < K; j++ {
		alpha[0][j] = pi[j] * math.Exp(logB[0][j])
		scale[0] += alpha[0][j]
	}
	if scale[0] == 0 {
		return nil, nil, errors.Wrap(ErrHmmNotConverged, "zero likelihood at t=0")
	}
	for j := 0; j < K; j++ {
		alpha[0][j] /= scale[0]
	}

	for t := 1; t < T; t++ {
		alpha[t] = make([]float64, K)
		for j := 0; j < K; j++ {
			sum := 0.0
			for i := 0; i < K; i++ {
				sum += alpha[t-1][i] * trans[i][j]
			}
			alpha[t][j] = sum * math.Exp(logB[t][j])
			scale[t] += alpha[t][j]
		}
		if scale[t] == 0 {
			return nil, nil, errors.Wrapf(ErrHmmNotConverged, "zero likelihood at t=%d", t)
		}
		for j := 0; j < K; j++ {
			alpha[t][j] /= scale[t]
		}
	}
	return alpha, scale, nil
}

func backwardPass(trans [][]float64, logB [][]float64, scale []float64) [][]float64 {
	T := len(logB)
	K := len(trans)
	beta := make([][]float64, T)
	beta[T-1] = make([]float64, K)
	for j := 0; j < K; j++ {
		beta[T-1][j] = 1.0
	}
	for t := T - 2; t >= 0; t-- {
		beta[t] = make([]float64, K)
		for i := 0; i < K; i++ {
			sum := 0.0
			for j := 0; j < K; j++ {
				sum += trans[i][j] * math.Exp(logB[t+1][j]) * beta[t+1][j]
			}
			beta[t][i] = sum / scale[t+1]
		}
	}
	return beta
}

// Posterior returns the smoothed per-timestep state probabilities.
func (r *HMMResult) Posterior() [][]float64 { return r.posterior }

// ViterbiPath returns the most likely state sequence over the fitting
// sample.
func (r *HMMResult) ViterbiPath() []int { return r.viterbi }

func (r *HMMResult) viterbiPath(X [][]float64) ([]int, error) {
	logB, err := emissionLogProbs(X, r.Means, r.Covs)
	if err != nil {
		return nil, err
	}
	T := len(X)
	K := r.NumStates

	logTrans := zeros(K, K)
	for i := 0; i < K; i++ {
		for j := 0; j < K; j++ {
			logTrans[i][j] = math.Log(r.Trans[i][j] + 1e-300)
		}
	}

	delta := zeros(T, K)
	back := make([][]int, T)
	for t := range back {
		back[t] = make([]int, K)
	}
	for j := 0; j < K; j++ {
		delta[0][j] = math.Log(r.Pi[j]+1e-300) + logB[0][j]
	}
	for t := 1; t < T; t++ {
		for j := 0; j < K; j++ {
			best := math.Inf(-1)
			bestI := 0
			for i := 0; i < K; i++ {
				v := delta[t-1][i] + logTrans[i][j]
				if v > best {
					best = v
					bestI = i
				}
			}
			delta[t][j] = best + logB[t][j]
			back[t][j] = bestI
		}
	}

	path := make([]int, T)
	best := math.Inf(-1)
	for j := 0; j < K; j++ {
		if delta[T-1][j] > best {
			best = delta[T-1][j]
			path[T-1] = j
		}
	}
	for t := T - 2; t >= 0; t-- {
		path[t] = back[t+1][path[t+1]]
	}
	return path, nil
}

// FilterLast runs the forward recursion over a fresh window with the fitted
// parameters and returns the filtered state distribution after the final
// observation.
func (r *HMMResult) FilterLast(X [][]float64) ([]float64, error) {
	logB, err := emissionLogProbs(X, r.Means, r.Covs)
	if err != nil {
		return nil, err
	}
	alpha, _, err := forwardPass(r.Pi, r.Trans, logB)
	if err != nil {
		return nil, err
	}
	return alpha[len(alpha)-1], nil
}

func zeros(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

func sortByLastFeature(X [][]float64, order []int) {
	last := len(X[0]) - 1
	sort.Slice(order, func(a, b int) bool { return X[order[a]][last] < X[order[b]][last] })
}
