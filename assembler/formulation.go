package assembler

import "fmt"

// Formulation selects the physical model governing energy, gradient and
// Hessian assembly.
type Formulation uint8

const (
	// LinearElasticity is small-strain linear elasticity. The stiffness does
	// not depend on the current state, so the Hessian can be cached.
	LinearElasticity Formulation = iota
	// MassSpring is a nonlinear edge-network hyperelastic model.
	MassSpring
	// StokesVelocityPressure is a mixed velocity-pressure formulation. It is
	// recognized so callers can reject it; no assembly paths support it.
	StokesVelocityPressure
)

func NewFormulation(name string) Formulation {
	switch name {
	case "LinearElasticity":
		return LinearElasticity
	case "MassSpring":
		return MassSpring
	case "StokesVelocityPressure":
		return StokesVelocityPressure
	}
	panic(fmt.Errorf("unknown formulation %q", name))
}

func (f Formulation) String() string {
	switch f {
	case LinearElasticity:
		return "LinearElasticity"
	case MassSpring:
		return "MassSpring"
	case StokesVelocityPressure:
		return "StokesVelocityPressure"
	}
	return fmt.Sprintf("Formulation(%d)", uint8(f))
}
