// Package gravity computes softened Newtonian accelerations.
//
// Two evaluators share one interface:
//
//   - direct: exact O(N²) pairwise summation
//   - barneshut: arena octree with a tunable opening angle θ
//
// A softening length ε replaces r² by r²+ε² in every pair. Sources closer
// than [MinDistance] to the test point are skipped.
//
// [Field] wraps an evaluator for one simulator sub-step. It keeps the source
// snapshot taken at the sub-step start and predicts sources forward for
// later stage times, caching one prepared evaluator per stage offset.
//
// Usage:
//
//	f, _ := gravity.NewField("barneshut", gravity.DefaultOptions(), 0)
//	f.Reset(gravity.SourcesFrom(bodies, nil), t)
//	integ.Step(body, dt, t, f.AccelFunc())
package gravity
