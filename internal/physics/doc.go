// Package physics provides the continuous-time models whose trajectories
// feed the synthetic signal generators.
//
// Each model implements [dynamo.System] and [dynamo.Configurable]:
//
//   - [Rossler]: spiral attractor, largest exponent about 0.07
//   - [Lorenz]: butterfly attractor, largest exponent about 0.9
//   - [VanDerPol]: limit cycle, largest exponent 0
package physics
