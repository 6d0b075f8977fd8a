package export

import (
	"strings"
	"testing"

	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 10)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `cx="35.0" cy="35.0"`) {
		t.Error("dot at sub-pixel (3,3) missing")
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should give empty output")
	}
}

const trajectoryCSV = `tick,time,id,x,y,z,vx,vy,vz,mass,radius
0,0,1,-1,0,0,0,-1,0,1,0.1
0,0,2,1,0,0,0,1,0,1,0.1
1,0.5,1,0,-1,0,1,0,0,1,0.1
1,0.5,2,0,1,0,-1,0,0,1,0.1
`

func TestTrajectoryToSVG(t *testing.T) {
	traj, err := storage.ReadTrajectory(strings.NewReader(trajectoryCSV))
	if err != nil {
		t.Fatal(err)
	}

	svg := TrajectoryToSVG(traj, 120, 120)
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("expected a path per body, got %d", n)
	}
	if !strings.Contains(svg, `id="body-2"`) {
		t.Error("paths should be labelled by body id")
	}
	// body 1 starts at (-1, 0): span 2, scale 50, centre (60, 60)
	if !strings.Contains(svg, `d="M10.0,60.0 L60.0,110.0"`) {
		t.Errorf("unexpected projection:\n%s", svg)
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected an end marker per body, got %d", n)
	}

	if TrajectoryToSVG(&storage.Trajectory{}, 100, 100) != "" {
		t.Error("empty trajectory should give empty output")
	}
}
