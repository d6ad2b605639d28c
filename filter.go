package lkf

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// epsilon is the machine epsilon for float64.
const epsilon = 2.220446049250313e-16

// KF is a discrete-time linear Kalman filter with a fixed state dimension n
// and measurement dimension m. Use New to initialize.
//
// A KF is not safe for concurrent use; run one instance per goroutine.
type KF struct {
	n, m int

	// Model, nil until set.
	f, h *mat.Dense
	q, r *mat.SymDense

	// State store.
	x *mat.VecDense
	p *mat.SymDense

	// Reset point, nil means zero state and identity covariance.
	x0 *mat.VecDense
	p0 *mat.SymDense

	psdTol  float64
	singTol float64
	logger  *slog.Logger

	step            int
	regularizations int
	last            *Estimate
}

// Option configures a KF.
type Option func(*KF)

// WithLogger sets the logger used to report covariance regularizations and
// rejected updates. The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(kf *KF) {
		if l != nil {
			kf.logger = l
		}
	}
}

// WithPSDTolerance sets the relative tolerance under which a negative
// covariance eigenvalue triggers a regularization.
func WithPSDTolerance(tol float64) Option {
	return func(kf *KF) {
		if tol > 0 {
			kf.psdTol = tol
		}
	}
}

// WithSingularityTolerance sets the reciprocal condition number under which
// the innovation covariance is considered singular. It defaults to m times
// the machine epsilon.
func WithSingularityTolerance(tol float64) Option {
	return func(kf *KF) {
		if tol > 0 {
			kf.singTol = tol
		}
	}
}

// New returns a new KF of state dimension n and measurement dimension m.
// The state defaults to the zero vector and the covariance to the identity;
// F, H, Q and R must be set before Predict and Update may be called.
func New(n, m int, opts ...Option) (*KF, error) {
	if n < 1 || m < 1 {
		return nil, fmt.Errorf("%w: invalid filter dimensions n=%d m=%d", ErrDimensionMismatch, n, m)
	}
	kf := &KF{
		n:      n,
		m:      m,
		x:      mat.NewVecDense(n, nil),
		p:      Identity(n),
		psdTol: DefaultPSDTolerance,
		logger: slog.New(slog.DiscardHandler),
	}
	kf.singTol = float64(m) * epsilon
	for _, opt := range opts {
		opt(kf)
	}
	return kf, nil
}

// Dims returns the state and measurement dimensions.
func (kf *KF) Dims() (n, m int) {
	return kf.n, kf.m
}

// Status returns the lifecycle state of the filter.
func (kf *KF) Status() Status {
	switch {
	case kf.f != nil && kf.h != nil && kf.q != nil && kf.r != nil:
		return Ready
	case kf.f != nil || kf.h != nil || kf.q != nil || kf.r != nil:
		return Configured
	}
	return Unconfigured
}

// SetStateTransition sets the n x n state transition matrix F.
func (kf *KF) SetStateTransition(F mat.Matrix) error {
	if err := checkShape(F, "F", kf.n, kf.n); err != nil {
		return err
	}
	if !isFinite(F) {
		return fmt.Errorf("%w: F holds NaN or Inf values", ErrNumericalInstability)
	}
	kf.f = mat.DenseCopyOf(F)
	return nil
}

// SetMeasurementMatrix sets the m x n measurement matrix H.
func (kf *KF) SetMeasurementMatrix(H mat.Matrix) error {
	if err := checkShape(H, "H", kf.m, kf.n); err != nil {
		return err
	}
	if !isFinite(H) {
		return fmt.Errorf("%w: H holds NaN or Inf values", ErrNumericalInstability)
	}
	kf.h = mat.DenseCopyOf(H)
	return nil
}

// SetProcessNoise sets the n x n process noise covariance Q.
func (kf *KF) SetProcessNoise(Q mat.Matrix) error {
	sym, err := kf.covarianceInput(Q, "Q", kf.n)
	if err != nil {
		return err
	}
	kf.q = sym
	return nil
}

// SetMeasurementNoise sets the m x m measurement noise covariance R.
func (kf *KF) SetMeasurementNoise(R mat.Matrix) error {
	sym, err := kf.covarianceInput(R, "R", kf.m)
	if err != nil {
		return err
	}
	kf.r = sym
	return nil
}

// SetState sets the current state estimate. It also becomes the state
// restored by Reset.
func (kf *KF) SetState(x mat.Vector) error {
	if x == nil || x.Len() != kf.n {
		return fmt.Errorf("%w: %sx(%d) expected(%d)", ErrDimensionMismatch, dimErrMsg, vecLen(x), kf.n)
	}
	if !isFinite(x) {
		return fmt.Errorf("%w: x holds NaN or Inf values", ErrNumericalInstability)
	}
	kf.x = copyVec(x)
	kf.x0 = copyVec(x)
	return nil
}

// SetCovariance sets the current state covariance. It also becomes the
// covariance restored by Reset.
func (kf *KF) SetCovariance(P mat.Matrix) error {
	sym, err := kf.covarianceInput(P, "P", kf.n)
	if err != nil {
		return err
	}
	kf.p = sym
	kf.p0 = copySym(sym)
	return nil
}

// covarianceInput validates a caller-provided covariance and returns a
// symmetric copy of it.
func (kf *KF) covarianceInput(C mat.Matrix, name string, size int) (*mat.SymDense, error) {
	if err := checkShape(C, name, size, size); err != nil {
		return nil, err
	}
	if !isFinite(C) {
		return nil, fmt.Errorf("%w: %s holds NaN or Inf values", ErrNumericalInstability, name)
	}
	sym, err := AsSymDense(C, symmetryTolerance)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !IsPSD(sym, kf.psdTol) {
		return nil, fmt.Errorf("%w: %s has a negative eigenvalue", ErrNotPSD, name)
	}
	return sym, nil
}

// Reset restores the state and covariance to their initial values, keeping
// the model matrices.
func (kf *KF) Reset() {
	if kf.x0 != nil {
		kf.x = copyVec(kf.x0)
	} else {
		kf.x = mat.NewVecDense(kf.n, nil)
	}
	if kf.p0 != nil {
		kf.p = copySym(kf.p0)
	} else {
		kf.p = Identity(kf.n)
	}
	kf.step = 0
	kf.last = nil
}

// Predict propagates the state and covariance one step forward:
// x = F*x and P = F*P*F' + Q.
func (kf *KF) Predict() error {
	if kf.f == nil || kf.q == nil {
		return fmt.Errorf("%w: predict requires %s", ErrNotConfigured, kf.missing("F", "Q"))
	}

	var x mat.VecDense
	x.MulVec(kf.f, kf.x)
	if !isFinite(&x) {
		return fmt.Errorf("predict: %w: state holds NaN or Inf values", ErrNumericalInstability)
	}

	var P mat.Dense
	P.Product(kf.f, kf.p, kf.f.T())
	P.Add(&P, kf.q)
	Psym, err := kf.stabilize(&P, "predict")
	if err != nil {
		return err
	}

	kf.x = &x
	kf.p = Psym
	return nil
}

// Update fuses the measurement z into the state estimate. Either the state
// and covariance are fully updated, or an error is returned and neither is
// modified.
func (kf *KF) Update(z mat.Vector) error {
	if kf.h == nil || kf.r == nil {
		return fmt.Errorf("%w: update requires %s", ErrNotConfigured, kf.missing("H", "R"))
	}
	if z == nil || z.Len() != kf.m {
		return fmt.Errorf("%w: %sz(%d) expected(%d)", ErrDimensionMismatch, dimErrMsg, vecLen(z), kf.m)
	}
	if !isFinite(z) {
		return fmt.Errorf("%w: measurement holds NaN or Inf values", ErrNumericalInstability)
	}

	// Innovation
	var Hx, y mat.VecDense
	Hx.MulVec(kf.h, kf.x)
	y.SubVec(z, &Hx)

	// Innovation covariance S = H*P*H' + R
	var PHt, HPHt mat.Dense
	PHt.Mul(kf.p, kf.h.T())
	HPHt.Mul(kf.h, &PHt)
	HPHt.Add(&HPHt, kf.r)
	S := Symmetrize(&HPHt)

	var chol mat.Cholesky
	if ok := chol.Factorize(S); !ok {
		kf.logger.Warn("innovation covariance is not positive definite", "step", kf.step)
		return fmt.Errorf("%w: S is not positive definite at k=%d", ErrSingularInnovationCovariance, kf.step)
	}
	if rcond := 1 / chol.Cond(); rcond < kf.singTol || math.IsNaN(rcond) {
		kf.logger.Warn("innovation covariance is ill-conditioned", "step", kf.step, "rcond", rcond)
		return fmt.Errorf("%w: reciprocal condition number %g below %g at k=%d", ErrSingularInnovationCovariance, rcond, kf.singTol, kf.step)
	}

	// Kalman gain: solve S*K' = H*P rather than inverting S.
	var Kt, K mat.Dense
	if err := chol.SolveTo(&Kt, PHt.T()); err != nil {
		return fmt.Errorf("%w: could not solve for the gain at k=%d: %v", ErrSingularInnovationCovariance, kf.step, err)
	}
	K.CloneFrom(Kt.T())

	// State update
	var Ky, x mat.VecDense
	Ky.MulVec(&K, &y)
	x.AddVec(kf.x, &Ky)
	if !isFinite(&x) {
		return fmt.Errorf("update: %w: state holds NaN or Inf values", ErrNumericalInstability)
	}

	// Joseph form: P = (I-KH)*P*(I-KH)' + K*R*K'
	var IKH, P, KRKt mat.Dense
	IKH.Mul(&K, kf.h)
	IKH.Sub(Identity(kf.n), &IKH)
	P.Product(&IKH, kf.p, IKH.T())
	KRKt.Product(&K, kf.r, K.T())
	P.Add(&P, &KRKt)
	Psym, err := kf.stabilize(&P, "update")
	if err != nil {
		return err
	}

	var Siy mat.VecDense
	if err := chol.SolveVecTo(&Siy, &y); err != nil {
		return fmt.Errorf("%w: could not compute the NIS at k=%d: %v", ErrSingularInnovationCovariance, kf.step, err)
	}
	est := &Estimate{
		state:      copyVec(&x),
		meas:       &Hx,
		innovation: &y,
		covar:      copySym(Psym),
		predCovar:  copySym(kf.p),
		innovCovar: S,
		gain:       &K,
		nis:        mat.Dot(&y, &Siy),
	}

	kf.x = &x
	kf.p = Psym
	kf.last = est
	kf.step++
	kf.logger.Debug("update", "step", kf.step, "nis", est.nis)
	return nil
}

// Step runs Predict followed by Update and returns the resulting estimate.
// If Update fails, the prediction stays applied.
func (kf *KF) Step(z mat.Vector) (*Estimate, error) {
	if err := kf.Predict(); err != nil {
		return nil, err
	}
	if err := kf.Update(z); err != nil {
		return nil, err
	}
	return kf.last, nil
}

// stabilize runs the numerical stabilizer on a freshly computed covariance.
func (kf *KF) stabilize(P mat.Matrix, op string) (*mat.SymDense, error) {
	sym, regularized, err := Stabilize(P, kf.psdTol)
	if err != nil {
		kf.logger.Warn("covariance stabilization failed", "op", op, "step", kf.step, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if regularized {
		kf.regularizations++
		kf.logger.Debug("covariance regularized", "op", op, "step", kf.step)
	}
	return sym, nil
}

func (kf *KF) missing(names ...string) string {
	var unset []string
	for _, name := range names {
		switch {
		case name == "F" && kf.f == nil,
			name == "H" && kf.h == nil,
			name == "Q" && kf.q == nil,
			name == "R" && kf.r == nil:
			unset = append(unset, name)
		}
	}
	return strings.Join(unset, " and ") + " to be set"
}

// State returns a copy of the current state estimate.
func (kf *KF) State() *mat.VecDense {
	return copyVec(kf.x)
}

// Covariance returns a copy of the current state covariance.
func (kf *KF) Covariance() *mat.SymDense {
	return copySym(kf.p)
}

// StateTransition returns a copy of F, or nil if it is not set.
func (kf *KF) StateTransition() *mat.Dense {
	if kf.f == nil {
		return nil
	}
	return mat.DenseCopyOf(kf.f)
}

// MeasurementMatrix returns a copy of H, or nil if it is not set.
func (kf *KF) MeasurementMatrix() *mat.Dense {
	if kf.h == nil {
		return nil
	}
	return mat.DenseCopyOf(kf.h)
}

// ProcessNoise returns a copy of Q, or nil if it is not set.
func (kf *KF) ProcessNoise() *mat.SymDense {
	if kf.q == nil {
		return nil
	}
	return copySym(kf.q)
}

// MeasurementNoise returns a copy of R, or nil if it is not set.
func (kf *KF) MeasurementNoise() *mat.SymDense {
	if kf.r == nil {
		return nil
	}
	return copySym(kf.r)
}

// LastEstimate returns the estimate of the latest successful Update, or nil.
func (kf *KF) LastEstimate() *Estimate {
	return kf.last
}

// Steps returns the number of successful updates since construction or Reset.
func (kf *KF) Steps() int {
	return kf.step
}

// Regularizations returns how many times the covariance had to be clamped
// back to positive semi-definite.
func (kf *KF) Regularizations() int {
	return kf.regularizations
}

func (kf *KF) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "KF [n=%d m=%d k=%d %s]\n", kf.n, kf.m, kf.step, kf.Status())
	writeMat := func(name string, set bool, m mat.Matrix) {
		if !set {
			fmt.Fprintf(&b, "%s=<unset>\n", name)
			return
		}
		fmt.Fprintf(&b, "%s=%v\n", name, mat.Formatted(m, mat.Prefix("  ")))
	}
	writeMat("F", kf.f != nil, kf.f)
	writeMat("H", kf.h != nil, kf.h)
	writeMat("Q", kf.q != nil, kf.q)
	writeMat("R", kf.r != nil, kf.r)
	return b.String()
}

func vecLen(v mat.Vector) int {
	if v == nil {
		return 0
	}
	return v.Len()
}
