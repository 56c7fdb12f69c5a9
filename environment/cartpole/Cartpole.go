// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/argmaxrl/argmax/environment"
	"github.com/argmaxrl/argmax/utils/floatutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Episode failure thresholds
	PositionFailure float64 = 2.4
	AngleFailure    float64 = 12 * 2 * math.Pi / 360

	// Bound (+/-) on uniformly sampled starting state variables
	StartBounds float64 = 0.05

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2

	// Maximum number of steps before an episode is cut off
	StepLimit int = 500
)

// Cartpole implements the classic control environment Cartpole. A pole
// is attached to a cart which can accelerate left or right along a
// track, and the agent is rewarded for every step on which the pole
// stays close to vertical and the cart stays on the track.
//
// The state features are continuous and consist of the cart's
// horizontal position and speed, the pole's angle from the positive
// y-axis, and the pole's angular velocity.
//
// Actions are discrete and consist of the force applied to the cart:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
type Cartpole struct {
	state       *mat.VecDense
	steps       int
	stepLimit   int
	startBounds r1.Interval
	rng         *rand.Rand
}

// New constructs a new Cartpole environment, seeded for reproducible
// starting states
func New(seed uint64) *Cartpole {
	return &Cartpole{
		state:       mat.NewVecDense(4, nil),
		stepLimit:   StepLimit,
		startBounds: r1.Interval{Min: -StartBounds, Max: StartBounds},
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// String returns the environment name used in save paths
func (c *Cartpole) String() string {
	return "Cartpole"
}

// Start samples a starting state uniformly from the starting bounds
func (c *Cartpole) Start() mat.Vector {
	state := mat.NewVecDense(4, nil)
	for i := 0; i < state.Len(); i++ {
		sample := c.startBounds.Min +
			c.rng.Float64()*(c.startBounds.Max-c.startBounds.Min)
		state.SetVec(i, sample)
	}
	return state
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (mat.Vector, error) {
	start := c.Start()
	c.state.CopyVec(start)
	c.steps = 0
	return start, nil
}

// Step takes one environmental step given a discrete action and
// returns the next state, the reward, and whether the episode ended
func (c *Cartpole) Step(action int) (mat.Vector, float64, bool, error) {
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		return nil, 0, false, errors.Errorf("step: illegal action %v ∉ [%v, "+
			"%v]", action, MinDiscreteAction, MaxDiscreteAction)
	}

	x, xDot := c.state.AtVec(0), c.state.AtVec(1)
	th, thDot := c.state.AtVec(2), c.state.AtVec(3)

	// Magnify the action force in the appropriate direction
	var force float64
	switch action {
	case 0:
		force = -ForceMag
	case 2:
		force = ForceMag
	}

	// Calculate physical variables to determine the next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / TotalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/TotalMass

	// Update state variables using Euler kinematic integration
	x += Dt * xDot
	xDot += Dt * xAcc
	th += Dt * thDot
	thDot += Dt * thAcc

	c.state.SetVec(0, x)
	c.state.SetVec(1, xDot)
	c.state.SetVec(2, th)
	c.state.SetVec(3, thDot)
	c.steps++

	next := mat.NewVecDense(4, []float64{x, xDot, th, thDot})

	failed := math.Abs(x) > PositionFailure || math.Abs(th) > AngleFailure
	terminal := failed || c.steps >= c.stepLimit

	// Reward of 1 for every step taken, including the terminating step
	return next, 1.0, terminal, nil
}

// ObservationSpace returns the specification of the environment's
// observations
func (c *Cartpole) ObservationSpace() env.Space {
	lower := []float64{-PositionFailure, math.Inf(-1), -AngleFailure,
		math.Inf(-1)}
	upper := []float64{PositionFailure, math.Inf(1), AngleFailure,
		math.Inf(1)}

	return env.NewContinuousSpace(mat.NewVecDense(4, lower),
		mat.NewVecDense(4, upper))
}

// ActionSpace returns the specification of the environment's actions
func (c *Cartpole) ActionSpace() env.Space {
	return env.NewDiscreteSpace(MaxDiscreteAction - MinDiscreteAction + 1)
}

// NormalizeAngle normalizes a pole angle to within (-π, π]
func NormalizeAngle(th float64) float64 {
	if th > math.Pi {
		return math.Mod(th+math.Pi, 2*math.Pi) - math.Pi
	} else if th <= -math.Pi {
		return -(math.Mod(math.Abs(th)+math.Pi, 2*math.Pi) - math.Pi)
	}
	return floatutils.Clip(th, -math.Pi, math.Pi)
}
