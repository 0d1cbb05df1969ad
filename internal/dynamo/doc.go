// Package dynamo provides the ODE primitives used to synthesize attractor
// signals.
//
//   - [State]: vector representing system state
//   - [System]: autonomous or time-dependent ODE, dX/dt = f(X, t)
//   - [Integrator]: numerical stepper
//   - [Configurable]: systems whose parameters can be overridden by name
//
// # Example
//
//	dyn := physics.NewRossler()
//	integ := integrators.NewRK4()
//	x := dyn.DefaultState()
//	for t := 0.0; t < 100; t += dt {
//	    x = integ.Step(dyn, x, t, dt)
//	}
package dynamo
