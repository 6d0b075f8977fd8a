// Package viz is the terminal live view of a running simulation.
//
// The view is a Bubble Tea program. It steps a [sim.Simulator] on a frame
// timer, draws the published snapshot onto a braille [Canvas] through a
// [Viewport] (top-down by default) and shows a lipgloss stats panel with an
// asciigraph energy chart.
//
// # Key Bindings
//
//	Space  - Pause/Resume simulation
//	R      - Reset to the starting checkpoint
//	+/-    - Zoom in/out
//	Arrows - Pan
//	X/Z    - Tilt and spin the view
//	F      - Fit the view to the bodies
//	C      - Toggle collisions (merge or none)
//	T      - Cycle color themes
//	?      - Show help
//	Q      - Quit
package viz
