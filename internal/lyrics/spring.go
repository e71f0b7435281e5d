package lyrics

import "math"

// SpringParams holds a damped spring's physical constants.
type SpringParams struct {
	Mass      float64
	Damping   float64
	Stiffness float64
}

// Default parameter sets for line position, main-line scale, and
// background-line scale.
var (
	SpringParamsPositionY  = SpringParams{Mass: 0.9, Damping: 15, Stiffness: 90}
	SpringParamsScale      = SpringParams{Mass: 2.0, Damping: 25, Stiffness: 100}
	SpringParamsScaleBG    = SpringParams{Mass: 1.0, Damping: 20, Stiffness: 50}
)

// isOverdamped reports whether c >= 2*sqrt(k*m).
func (p SpringParams) isOverdamped() bool {
	return p.Damping >= 2*math.Sqrt(p.Stiffness*p.Mass)
}

// solveSpring returns the analytic position function x(t) for a target change from
// (x0, v0) to x1, in either the overdamped or underdamped regime.
func solveSpring(params SpringParams, x0, v0, x1 float64) func(t float64) float64 {
	delta := x1 - x0
	m, c, k := params.Mass, params.Damping, params.Stiffness

	if params.isOverdamped() {
		omega := -math.Sqrt(k / m)
		l := -omega*delta - v0
		return func(t float64) float64 {
			return x1 - (delta+l*t)*math.Exp(omega*t)
		}
	}

	omegaD := math.Sqrt(4*m*k - c*c)
	l := (c*delta - 2*m*v0) / omegaD
	beta := omegaD / (2 * m)
	alpha := -c / (2 * m)
	return func(t float64) float64 {
		return x1 - (delta*math.Cos(beta*t)+l*math.Sin(beta*t))*math.Exp(alpha*t)
	}
}

// derivativeH is the step used for the spring's numerical-derivative velocity and
// acceleration.
const derivativeH = 0.001

func numericalVelocity(solver func(float64) float64, t float64) float64 {
	return (solver(t+derivativeH) - solver(t-derivativeH)) / (2 * derivativeH)
}

func numericalAcceleration(solver func(float64) float64, t float64) float64 {
	return (solver(t+derivativeH) - 2*solver(t) + solver(t-derivativeH)) / (derivativeH * derivativeH)
}

// arrivalEpsilon is the threshold under which position/velocity/acceleration deltas
// are considered "at rest".
const arrivalEpsilon = 0.01

// queuedParams defers a parameter change by delayMs of simulated time.
type queuedParams struct {
	params  SpringParams
	delayMs float64
}

// queuedPosition defers a target-position change by delayMs of simulated time.
type queuedPosition struct {
	position float64
	delayMs  float64
}

// Spring is a single damped-spring integrator (overdamped or underdamped, per
// its params). It is driven
// synchronously by the (single-threaded) lyrics engine, so no internal locking
// is needed.
type Spring struct {
	params SpringParams

	currentPosition float64
	targetPosition  float64
	currentTime     float64
	solver          func(float64) float64

	queuedP *queuedParams
	queuedX *queuedPosition
}

// NewSpring returns a spring at rest at position, using params.
func NewSpring(params SpringParams, position float64) *Spring {
	s := &Spring{params: params, currentPosition: position, targetPosition: position}
	s.solver = func(float64) float64 { return position }
	return s
}

// Position returns the current analytic position at the spring's internal
// clock (seconds since the last retarget).
func (s *Spring) Position() float64 { return s.solver(s.currentTime) }

// Velocity returns the numerical derivative of position at the current time.
func (s *Spring) Velocity() float64 { return numericalVelocity(s.solver, s.currentTime) }

// Acceleration returns the numerical second derivative of position at the current time.
func (s *Spring) Acceleration() float64 { return numericalAcceleration(s.solver, s.currentTime) }

// Arrived reports whether the spring is at rest and has no pending queued updates.
func (s *Spring) Arrived() bool {
	if s.queuedP != nil || s.queuedX != nil {
		return false
	}
	pos := s.Position()
	return math.Abs(pos-s.targetPosition) < arrivalEpsilon &&
		math.Abs(s.Velocity()) < arrivalEpsilon &&
		math.Abs(s.Acceleration()) < arrivalEpsilon
}

// SetPosition immediately snaps the spring to position with zero velocity, clearing
// any queued updates.
func (s *Spring) SetPosition(position float64) {
	s.currentPosition = position
	s.targetPosition = position
	s.currentTime = 0
	s.solver = func(float64) float64 { return position }
	s.queuedP = nil
	s.queuedX = nil
}

// SetTargetPosition retargets the spring immediately, capturing current position and
// velocity as the new solver's initial conditions.
func (s *Spring) SetTargetPosition(target float64) {
	s.retarget(target)
}

// SetTargetPositionWithDelay defers the retarget by delayMs of simulated time,
// clamped to 2s; the stagger formula grows fast with line distance and an
// unclamped delay would leave far lines frozen mid-flight.
func (s *Spring) SetTargetPositionWithDelay(target float64, delayMs float64) {
	if delayMs <= 0 {
		s.retarget(target)
		return
	}
	if delayMs > 2000 {
		delayMs = 2000
	}
	s.queuedX = &queuedPosition{position: target, delayMs: delayMs}
}

func (s *Spring) retarget(target float64) {
	x0 := s.Position()
	v0 := s.Velocity()
	s.solver = solveSpring(s.params, x0, v0, target)
	s.targetPosition = target
	s.currentTime = 0
}

// UpdateParams changes the spring's physical constants immediately, re-solving from
// the current position/velocity toward the existing target.
func (s *Spring) UpdateParams(params SpringParams) {
	x0 := s.Position()
	v0 := s.Velocity()
	s.params = params
	s.solver = solveSpring(params, x0, v0, s.targetPosition)
	s.currentTime = 0
}

// UpdateParamsWithDelay defers a parameter change by delayMs of simulated time.
func (s *Spring) UpdateParamsWithDelay(params SpringParams, delayMs float64) {
	if delayMs <= 0 {
		s.UpdateParams(params)
		return
	}
	if delayMs > 2000 {
		delayMs = 2000
	}
	s.queuedP = &queuedParams{params: params, delayMs: delayMs}
}

// Update advances the spring's clock by deltaMs, applying any queued parameter or
// position change once its delay elapses, and snaps to rest when arrived. The
// analytic solver runs on a seconds timebase (the mass/damping/stiffness
// constants are per-second quantities); queued delays count down in
// milliseconds.
func (s *Spring) Update(deltaMs float64) {
	s.currentTime += deltaMs / 1000

	if s.queuedP != nil {
		s.queuedP.delayMs -= deltaMs
		if s.queuedP.delayMs <= 0 {
			qp := s.queuedP
			s.queuedP = nil
			s.UpdateParams(qp.params)
		}
	}
	if s.queuedX != nil {
		s.queuedX.delayMs -= deltaMs
		if s.queuedX.delayMs <= 0 {
			qx := s.queuedX
			s.queuedX = nil
			s.retarget(qx.position)
		}
	}

	if s.Arrived() {
		s.SetPosition(s.targetPosition)
	}
}

// TargetPosition returns the spring's current target.
func (s *Spring) TargetPosition() float64 { return s.targetPosition }
