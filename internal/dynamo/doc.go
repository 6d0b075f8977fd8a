// Package dynamo provides the primitives shared by every part of the
// gravity engine:
//
//   - [Vec3]: 3D vector with value and in-place arithmetic
//   - [Body]: mutable state of one point mass
//   - [BodySpec]: validated add-body request
//   - [AccelFunc]: acceleration callback consumed by integrators
//   - [Integrator]: time-stepping strategy interface
//
// Integrators and force evaluators never reference each other; the
// simulator binds them through an [AccelFunc] for each sub-step.
//
// # Errors
//
// Command-boundary failures are typed ([DuplicateIDError],
// [InvalidBodyError], [NotFoundError], ...) and unwrap to package sentinels:
//
//	if errors.Is(err, dynamo.ErrDuplicateID) {
//	    // pick another id
//	}
package dynamo
