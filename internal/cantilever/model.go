package cantilever

import (
	"math"

	"github.com/san-kum/cantisim/internal/dynamo"
)

// Model is the extension seam of the simulator: the instantaneous reduced
// driving force (N/kg) and natural angular frequency (rad/s) defining the
// right-hand side of the equation of motion. t0 is the resolved trigger time
// and tau the relaxation constant; the default variant ignores both.
type Model interface {
	Force(t, t0, tau float64) float64
	Omega(t, t0, tau float64) float64
}

// SineDrive is the default variant: a pure sinusoidal drive at fixed
// natural frequency.
type SineDrive struct {
	f0 float64
	wd float64
	w0 float64
}

func NewSineDrive(d Derived) *SineDrive {
	return &SineDrive{f0: d.F0, wd: d.Wd, w0: d.W0}
}

func (s *SineDrive) Force(t, t0, tau float64) float64 {
	return s.f0 * math.Sin(s.wd*t)
}

func (s *SineDrive) Omega(t, t0, tau float64) float64 {
	return s.w0
}

// relax is the exponential step shared by the tip-sample variants: zero
// before the trigger, 1-exp(-(t-t0)/tau) after.
func relax(t, t0, tau float64) float64 {
	if t < t0 {
		return 0
	}
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-(t-t0)/tau)
}

// TipSample models a tip-sample interaction transient: after the trigger the
// natural frequency relaxes toward w0+deltaW while the reduced electrostatic
// force ramps in with the same time constant.
type TipSample struct {
	SineDrive
	deltaW float64
	fe     float64
}

func NewTipSample(d Derived) *TipSample {
	return &TipSample{
		SineDrive: SineDrive{f0: d.F0, wd: d.Wd, w0: d.W0},
		deltaW:    d.DeltaW,
		fe:        d.Fe,
	}
}

func (m *TipSample) Force(t, t0, tau float64) float64 {
	return m.f0*math.Sin(m.wd*t) + m.fe*relax(t, t0, tau)
}

func (m *TipSample) Omega(t, t0, tau float64) float64 {
	return m.w0 + m.deltaW*relax(t, t0, tau)
}

// ElectricDrive replaces the mechanical drive with a capacitive force from
// the bias voltages: F = dC/dz (Vdc - Vcpd + Vac sin(wd t))^2 / 2, reduced
// by the cantilever mass.
type ElectricDrive struct {
	SineDrive
	deltaW float64
	vdc    float64
	vac    float64
	vcpd   float64
	dCdz   float64
	mass   float64
}

func NewElectricDrive(d Derived, fc ForceConfig) *ElectricDrive {
	return &ElectricDrive{
		SineDrive: SineDrive{f0: d.F0, wd: d.Wd, w0: d.W0},
		deltaW:    d.DeltaW,
		vdc:       fc.VDC,
		vac:       fc.VAC,
		vcpd:      fc.VCPD,
		dCdz:      fc.DCdz,
		mass:      d.Mass,
	}
}

func (m *ElectricDrive) Force(t, t0, tau float64) float64 {
	v := m.vdc - m.vcpd + m.vac*math.Sin(m.wd*t)
	return 0.5 * m.dCdz * v * v / m.mass
}

func (m *ElectricDrive) Omega(t, t0, tau float64) float64 {
	return m.w0 + m.deltaW*relax(t, t0, tau)
}

// equation adapts a Model plus the quality factor into the 2-state ODE
//
//	dz/dt = v
//	dv/dt = force(t) - omega(t) v / Q - omega(t)^2 z
type equation struct {
	model Model
	q     float64
	t0    float64
	tau   float64
}

func (e *equation) StateDim() int { return 2 }

func (e *equation) Derive(x dynamo.State, t float64) dynamo.State {
	w := e.model.Omega(t, e.t0, e.tau)
	return dynamo.State{
		x[1],
		e.model.Force(t, e.t0, e.tau) - w*x[1]/e.q - w*w*x[0],
	}
}
