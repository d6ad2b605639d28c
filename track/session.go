// Package track runs a constant velocity Kalman filter over a stream of
// position measurements and keeps the raw and filtered history.
package track

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ChristopherRabotin/lkf"
	gometrics "github.com/rcrowley/go-metrics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Point is a position measurement, one coordinate per dimension.
type Point []float64

// Sample pairs a measurement with the filtered estimate it produced.
type Sample struct {
	Index    int
	Raw      Point
	Position []float64
	Velocity []float64
	Variance []float64 // of each position component
	NIS      float64
}

// Stats summarizes a session.
type Stats struct {
	Samples         int64
	Rejected        int64
	MeanNIS         float64
	MaxNIS          float64
	MeanStep        time.Duration
	Regularizations int
}

// nisScale converts the NIS to the integer domain of go-metrics histograms.
const nisScale = 1000

// Session owns a filter and the history of one tracked object.
// A Session is not safe for concurrent use.
type Session struct {
	cfg     Config
	kf      *lkf.KF
	logger  *slog.Logger
	history []Sample

	registry gometrics.Registry
	samples  gometrics.Counter
	rejected gometrics.Counter
	nis      gometrics.Histogram
	step     gometrics.Timer
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session and filter logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry registers the session metrics in r instead of a private registry.
func WithRegistry(r gometrics.Registry) Option {
	return func(s *Session) {
		if r != nil {
			s.registry = r
		}
	}
}

// NewSession builds the filter described by cfg.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:      cfg,
		logger:   slog.New(slog.DiscardHandler),
		registry: gometrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	kf, err := cfg.BuildFilter(s.logger)
	if err != nil {
		return nil, err
	}
	s.kf = kf
	s.registerMetrics()
	return s, nil
}

func (s *Session) registerMetrics() {
	for _, name := range []string{"samples", "rejected", "nis", "step"} {
		s.registry.Unregister(name)
	}
	s.samples = gometrics.NewRegisteredCounter("samples", s.registry)
	s.rejected = gometrics.NewRegisteredCounter("rejected", s.registry)
	s.nis = gometrics.NewRegisteredHistogram("nis", s.registry, gometrics.NewUniformSample(1028))
	s.step = gometrics.NewRegisteredTimer("step", s.registry)
}

func hasInf(p Point) bool {
	for _, v := range p {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Add filters p and appends the result to the history. A rejected measurement
// leaves the history unchanged, but the filter keeps the prediction made for
// it.
func (s *Session) Add(p Point) (Sample, error) {
	if len(p) != s.cfg.Dims {
		s.rejected.Inc(1)
		return Sample{}, fmt.Errorf("%w: point has %d coordinates, expected %d", lkf.ErrDimensionMismatch, len(p), s.cfg.Dims)
	}
	if floats.HasNaN(p) || hasInf(p) {
		s.rejected.Inc(1)
		return Sample{}, fmt.Errorf("%w: point holds NaN or Inf values", lkf.ErrNumericalInstability)
	}
	start := time.Now()
	est, err := s.kf.Step(mat.NewVecDense(len(p), append([]float64(nil), p...)))
	s.step.UpdateSince(start)
	if err != nil {
		s.rejected.Inc(1)
		s.logger.Warn("measurement rejected", "index", len(s.history), "error", err)
		return Sample{}, err
	}

	state, covar := est.State(), est.Covariance()
	sample := Sample{
		Index:    len(s.history),
		Raw:      append(Point(nil), p...),
		Position: make([]float64, s.cfg.Dims),
		Velocity: make([]float64, s.cfg.Dims),
		Variance: make([]float64, s.cfg.Dims),
		NIS:      est.NIS(),
	}
	for i := 0; i < s.cfg.Dims; i++ {
		sample.Position[i] = state.AtVec(i)
		sample.Velocity[i] = state.AtVec(i + s.cfg.Dims)
		sample.Variance[i] = covar.At(i, i)
	}
	s.history = append(s.history, sample)
	s.samples.Inc(1)
	s.nis.Update(int64(math.Round(est.NIS() * nisScale)))
	return sample, nil
}

// History returns a copy of the samples accepted so far.
func (s *Session) History() []Sample {
	return append([]Sample(nil), s.history...)
}

// Last returns the latest accepted sample.
func (s *Session) Last() (Sample, bool) {
	if len(s.history) == 0 {
		return Sample{}, false
	}
	return s.history[len(s.history)-1], true
}

// Reset clears the history and the metrics, and restores the initial filter
// state.
func (s *Session) Reset() {
	s.kf.Reset()
	s.history = nil
	s.registerMetrics()
}

// Filter returns the underlying filter.
func (s *Session) Filter() *lkf.KF {
	return s.kf
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Stats returns a snapshot of the session metrics.
func (s *Session) Stats() Stats {
	nis := s.nis.Snapshot()
	st := Stats{
		Samples:         s.samples.Snapshot().Count(),
		Rejected:        s.rejected.Snapshot().Count(),
		Regularizations: s.kf.Regularizations(),
		MeanStep:        time.Duration(s.step.Snapshot().Mean()),
	}
	if nis.Count() > 0 {
		st.MeanNIS = nis.Mean() / nisScale
		st.MaxNIS = float64(nis.Max()) / nisScale
	}
	return st
}
