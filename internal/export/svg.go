package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

// Palette cycles over tracks in first-seen order.
var Palette = []string{"#00ffff", "#ff00ff", "#ffcc00", "#00ff88", "#ff6b6b", "#0088ff", "#ff9ff3", "#88ff88"}

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG converts a Braille canvas to SVG, one dot per lit sub-pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.SubWidth(), canvas.SubHeight()
	pw, ph := int(math.Ceil(float64(w)*scale)), int(math.Ceil(float64(h)*scale))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, pw, ph, pw, ph))
	sb.WriteString(`<g fill="#00ff00">` + "\n")

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws every track of a run top-down (x right, y up) with
// equal scale on both axes. Each track is a polyline ending in a dot at its
// last recorded position.
func TrajectoryToSVG(traj *storage.Trajectory, width, height int) string {
	if traj == nil || len(traj.Tracks) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	lo, hi := traj.Bounds()
	rangeX, rangeY := hi.X-lo.X, hi.Y-lo.Y
	span := math.Max(rangeX, rangeY)
	if !(span > 0) {
		span = 1
	}
	// 10% padding on each side
	scale := math.Min(float64(width), float64(height)) / (span * 1.2)
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	project := func(x, y float64) (float64, float64) {
		return float64(width)/2 + (x-cx)*scale, float64(height)/2 - (y-cy)*scale
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))

	for i, tr := range traj.Tracks {
		if len(tr.Positions) == 0 {
			continue
		}
		color := Palette[i%len(Palette)]

		if len(tr.Positions) > 1 {
			sb.WriteString(fmt.Sprintf(`<path id="body-%d" fill="none" stroke="%s" stroke-width="1.5" d="M`, tr.ID, color))
			for j, p := range tr.Positions {
				x, y := project(p.X, p.Y)
				if j == 0 {
					sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
				} else {
					sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
				}
			}
			sb.WriteString(`"/>` + "\n")
		}

		last := tr.Positions[len(tr.Positions)-1]
		x, y := project(last.X, last.Y)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, color))
	}

	sb.WriteString("</svg>")
	return sb.String()
}
