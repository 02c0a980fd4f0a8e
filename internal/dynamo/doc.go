// Package dynamo provides core primitives for numerical ODE simulation.
//
// The package defines the fundamental interfaces and types shared by the
// cantilever model and the integrators:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE right-hand sides (dX/dt = f(X, t))
//   - [Integrator] / [AdaptiveIntegrator]: numerical stepper interfaces
//   - [Diagnostics]: per-run solver bookkeeping
//
// # Thread Safety
//
// Nothing in this package is synchronized. Integrator implementations may
// keep scratch buffers between steps; use one instance per goroutine.
package dynamo
