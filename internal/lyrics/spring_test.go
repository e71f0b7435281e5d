package lyrics

import (
	"math"
	"testing"
)

func TestSpringParamsIsOverdamped(t *testing.T) {
	tests := []struct {
		name   string
		params SpringParams
		want   bool
	}{
		{"position spring is underdamped", SpringParamsPositionY, false},
		{"scale spring is underdamped", SpringParamsScale, false},
		{"background scale spring is underdamped", SpringParamsScaleBG, false},
		{"heavily damped is overdamped", SpringParams{Mass: 1, Damping: 100, Stiffness: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.isOverdamped(); got != tt.want {
				t.Errorf("isOverdamped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSpringAtRest(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 5.0)

	if s.Position() != 5.0 {
		t.Errorf("Position() = %v, want 5.0", s.Position())
	}
	if !s.Arrived() {
		t.Error("a freshly created spring with no target change should already be Arrived")
	}
}

func TestSpringSetPositionSnapsImmediately(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPosition(100)
	s.Update(1)

	s.SetPosition(42)

	if s.Position() != 42 {
		t.Errorf("Position() after SetPosition = %v, want 42", s.Position())
	}
	if s.TargetPosition() != 42 {
		t.Errorf("TargetPosition() after SetPosition = %v, want 42", s.TargetPosition())
	}
	if !s.Arrived() {
		t.Error("SetPosition should clear queued updates and leave the spring at rest")
	}
}

// TestSpringDoesNotConvergeInOneFrame pins the seconds timebase: a single
// 16ms frame must leave the spring near its start, not snapped to the target.
func TestSpringDoesNotConvergeInOneFrame(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPosition(100)
	s.Update(16)

	if s.Arrived() {
		t.Fatal("spring arrived after a single 16ms frame")
	}
	if pos := s.Position(); pos > 10 {
		t.Errorf("Position() after 16ms = %v, want the damped start of the motion (< 10)", pos)
	}
}

func TestSpringConvergesToTarget(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPosition(100)

	const dt = 16.0
	for i := 0; i < 10000 && !s.Arrived(); i++ {
		s.Update(dt)
	}

	if !s.Arrived() {
		t.Fatal("spring did not converge within the simulated time budget")
	}
	if math.Abs(s.Position()-100) > arrivalEpsilon {
		t.Errorf("Position() = %v, want close to 100", s.Position())
	}
}

func TestSpringDelayedRetargetIsClampedTo2s(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPositionWithDelay(50, 5000)

	if s.queuedX == nil {
		t.Fatal("expected a queued position change")
	}
	if s.queuedX.delayMs != 2000 {
		t.Errorf("queued delay = %v, want clamped to 2000", s.queuedX.delayMs)
	}
}

func TestSpringDelayedRetargetAppliesAfterDelayElapses(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPositionWithDelay(50, 100)

	s.Update(50)
	if s.TargetPosition() != 0 {
		t.Errorf("target should not change before the delay elapses, got %v", s.TargetPosition())
	}

	s.Update(60)
	if s.TargetPosition() != 50 {
		t.Errorf("target should update once the delay elapses, got %v", s.TargetPosition())
	}
}

func TestSpringZeroDelayRetargetsImmediately(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPositionWithDelay(75, 0)

	if s.TargetPosition() != 75 {
		t.Errorf("TargetPosition() = %v, want 75", s.TargetPosition())
	}
	if s.queuedX != nil {
		t.Error("zero delay should not queue a position change")
	}
}

func TestSpringUpdateParamsResolvesFromCurrentState(t *testing.T) {
	s := NewSpring(SpringParamsPositionY, 0)
	s.SetTargetPosition(10)
	s.Update(50)

	before := s.Position()
	s.UpdateParams(SpringParamsScale)

	if math.Abs(s.Position()-before) > 1e-6 {
		t.Errorf("UpdateParams should preserve current position, got %v want %v", s.Position(), before)
	}
	if s.TargetPosition() != 10 {
		t.Errorf("UpdateParams should preserve the existing target, got %v", s.TargetPosition())
	}
}
