package datamodels

import (
	"fmt"
	"time"
)

type Asset string

const (
	SPY Asset = "SPY"
	BTC Asset = "BTC"
)

// PriceBar is a single daily observation from a price feed.
type PriceBar struct {
	Timestamp time.Time
	Close     float64
}

// ReturnPoint is one (timestamp, log return) observation.
type ReturnPoint struct {
	Timestamp time.Time
	LogReturn float64
}

// ReturnSeries is an ordered sequence of log returns for one asset. The
// backing slice is never mutated after construction; Slice returns views.
type ReturnSeries struct {
	Asset  Asset
	points []ReturnPoint
}

func NewReturnSeries(asset Asset, points []ReturnPoint) (*ReturnSeries, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			return nil, fmt.Errorf("return series for %s not strictly increasing at index %d (%s >= %s)",
				asset, i, points[i-1].Timestamp, points[i].Timestamp)
		}
	}
	return &ReturnSeries{Asset: asset, points: points}, nil
}

func (s *ReturnSeries) Len() int { return len(s.points) }

func (s *ReturnSeries) At(i int) ReturnPoint { return s.points[i] }

func (s *ReturnSeries) Timestamp(i int) time.Time { return s.points[i].Timestamp }

// Returns copies the raw return values out.
func (s *ReturnSeries) Returns() []float64 {
	vals := make([]float64, len(s.points))
	for i, p := range s.points {
		vals[i] = p.LogReturn
	}
	return vals
}

// Window copies the return values in [start, end).
func (s *ReturnSeries) Window(start, end int) []float64 {
	vals := make([]float64, end-start)
	for i := start; i < end; i++ {
		vals[i-start] = s.points[i].LogReturn
	}
	return vals
}

// Points returns the underlying observations. Callers must not modify them.
func (s *ReturnSeries) Points() []ReturnPoint { return s.points }

func (s *ReturnSeries) String() string {
	if len(s.points) == 0 {
		return fmt.Sprintf("ReturnSeries{%s, empty}", s.Asset)
	}
	return fmt.Sprintf("ReturnSeries{%s, %d obs, %s..%s}", s.Asset, len(s.points),
		s.points[0].Timestamp.Format("2006-01-02"),
		s.points[len(s.points)-1].Timestamp.Format("2006-01-02"))
}
