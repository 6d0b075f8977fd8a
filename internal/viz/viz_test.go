package viz

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

func TestCanvas_SetUnset(t *testing.T) {
	c := NewCanvas(4, 2)
	if c.SubWidth() != 8 || c.SubHeight() != 8 {
		t.Fatalf("unexpected sub-pixel size %dx%d", c.SubWidth(), c.SubHeight())
	}

	c.Set(3, 5)
	if !c.IsSet(3, 5) {
		t.Error("pixel should be set")
	}
	if c.Grid[1][1] == blank {
		t.Error("cell should not be blank")
	}
	c.Unset(3, 5)
	if c.IsSet(3, 5) || c.Grid[1][1] != blank {
		t.Error("pixel should be cleared")
	}

	c.Set(-1, 0)
	c.Set(0, 100)
	for _, row := range c.Grid {
		for _, r := range row {
			if r != blank {
				t.Fatal("out of range set should be ignored")
			}
		}
	}

	if lines := strings.Split(c.String(), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
}

func TestCanvas_DrawLineAndDisc(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	if !c.IsSet(0, 0) || !c.IsSet(19, 19) || !c.IsSet(10, 10) {
		t.Error("diagonal line missing points")
	}

	c.Clear()
	c.Disc(10, 10, 2)
	if !c.IsSet(10, 10) || !c.IsSet(12, 10) || !c.IsSet(10, 8) {
		t.Error("disc missing points")
	}
	if c.IsSet(12, 12) {
		t.Error("disc corner should be empty")
	}
}

func TestViewport_ProjectTopDown(t *testing.T) {
	v := Viewport{Scale: 10}

	x, y, ok := v.Project(dynamo.Vec3{}, 100, 60)
	if !ok || x != 50 || y != 30 {
		t.Errorf("origin should map to centre, got %d,%d %v", x, y, ok)
	}

	x, y, _ = v.Project(dynamo.Vec3{X: 1, Y: 1, Z: 5}, 100, 60)
	if x != 60 || y != 20 {
		t.Errorf("+x right, +y up, z ignored: got %d,%d", x, y)
	}

	if _, _, ok := v.Project(dynamo.Vec3{X: 100}, 100, 60); ok {
		t.Error("point off canvas should not be visible")
	}
	if _, _, ok := v.Project(dynamo.Vec3{X: math.NaN()}, 100, 60); ok {
		t.Error("NaN should not be visible")
	}
}

func TestViewport_FitAndZoom(t *testing.T) {
	bodies := []sim.BodyState{
		{ID: 1, Position: dynamo.Vec3{X: 9, Y: 5}, Active: true},
		{ID: 2, Position: dynamo.Vec3{X: 11, Y: 5}, Active: true},
		{ID: 3, Position: dynamo.Vec3{X: 1e9}, Active: false},
	}
	v := NewViewport()
	v.Fit(bodies, 100, 100)

	if v.Center != (dynamo.Vec3{X: 10, Y: 5}) {
		t.Errorf("centre should ignore inactive bodies, got %v", v.Center)
	}
	if math.Abs(v.Scale-45) > 1e-12 {
		t.Errorf("expected scale 45, got %g", v.Scale)
	}

	x, _, ok := v.Project(bodies[1].Position, 100, 100)
	if !ok || x != 95 {
		t.Errorf("fitted body should be near the edge, got %d %v", x, ok)
	}

	v.ZoomIn()
	if _, _, ok := v.Project(bodies[1].Position, 100, 100); ok {
		t.Error("zoomed in body should leave the canvas")
	}
	v.ZoomOut()
	if math.Abs(v.Scale-45) > 1e-12 {
		t.Errorf("zoom should be reversible, got %g", v.Scale)
	}
}

func TestViewport_Tilt(t *testing.T) {
	v := Viewport{Scale: 10}
	v.Rotate(math.Pi/2, 0)

	_, y, ok := v.Project(dynamo.Vec3{Z: 1}, 100, 100)
	if !ok || y == 50 {
		t.Errorf("tilted view should show z, got y=%d", y)
	}
}

func TestSparkline(t *testing.T) {
	s := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 4)
	if got := []rune(s); len(got) != 4 || got[0] != '▁' || got[3] != '█' {
		t.Errorf("unexpected sparkline %q", s)
	}
	if got := []rune(Sparkline([]float64{math.NaN(), 1}, 4)); len(got) != 2 || got[0] != '▁' {
		t.Errorf("NaN should render low, got %q", string(got))
	}
	if Sparkline(nil, 3) != "───" {
		t.Error("empty sparkline should be a rule")
	}
}

func TestNextTheme(t *testing.T) {
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = NextTheme(th)
	}
	if len(seen) != len(Themes) || th.Name != Themes[0].Name {
		t.Error("themes should cycle through every entry")
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
}

func TestLookupTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		th, err := LookupTheme(name)
		if err != nil || th.Name != name {
			t.Errorf("lookup %s: got %q, %v", name, th.Name, err)
		}
	}
	_, err := LookupTheme("nope")
	if err == nil || !strings.Contains(err.Error(), Themes[0].Name) {
		t.Errorf("expected error listing available themes, got %v", err)
	}
}

func binary(t *testing.T) *sim.Simulator {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.G = 1
	s, err := sim.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	v := math.Sqrt2 / 2
	for _, spec := range []dynamo.BodySpec{
		{Mass: 1, Radius: 0.05, Position: dynamo.Vec3{X: -0.5}, Velocity: dynamo.Vec3{Y: -v}},
		{Mass: 1, Radius: 0.05, Position: dynamo.Vec3{X: 0.5}, Velocity: dynamo.Vec3{Y: v}},
	} {
		if _, err := s.AddBody(spec); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_StepsPauseReset(t *testing.T) {
	s := binary(t)
	m, err := NewModel(s, "binary", 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		m = update(t, m, TickMsg{})
	}
	if tick := s.Snapshot().Tick; tick != 6 {
		t.Fatalf("expected tick 6, got %d", tick)
	}
	if len(m.energyHistory) != 4 {
		t.Errorf("expected 4 energy samples, got %d", len(m.energyHistory))
	}

	m = update(t, m, key(" "))
	m = update(t, m, TickMsg{})
	if tick := s.Snapshot().Tick; tick != 6 {
		t.Errorf("paused view should not step, got tick %d", tick)
	}
	if s.State() != sim.Paused {
		t.Errorf("expected paused simulator, got %s", s.State())
	}

	m = update(t, m, key("r"))
	if tick := s.Snapshot().Tick; tick != 0 {
		t.Errorf("reset should restore tick 0, got %d", tick)
	}
	if s.State() != sim.Paused {
		t.Errorf("reset should keep the view paused, got %s", s.State())
	}

	m = update(t, m, key(" "))
	m = update(t, m, TickMsg{})
	if tick := s.Snapshot().Tick; tick != 2 {
		t.Errorf("expected tick 2 after resume, got %d", tick)
	}

	if !strings.Contains(m.View(), "BINARY") {
		t.Error("view should carry the scenario name")
	}
}

func TestModel_ToggleCollisions(t *testing.T) {
	s := binary(t)
	m, err := NewModel(s, "binary", 1)
	if err != nil {
		t.Fatal(err)
	}

	m = update(t, m, key("c"))
	if m.collisions != collision.ModeMerge {
		t.Errorf("expected merge mode, got %s", m.collisions)
	}
	m = update(t, m, TickMsg{})
	if got := s.Config().CollisionMode; got != collision.ModeMerge {
		t.Errorf("simulator should pick up the mode on the next step, got %s", got)
	}

	m = update(t, m, key("c"))
	m = update(t, m, TickMsg{})
	if got := s.Config().CollisionMode; got != collision.ModeNone {
		t.Errorf("expected collisions off again, got %s", got)
	}
}

func TestModel_ZoomKeys(t *testing.T) {
	m, err := NewModel(binary(t), "binary", 1)
	if err != nil {
		t.Fatal(err)
	}
	scale := m.view.Scale
	m = update(t, m, key("+"))
	if m.view.Scale <= scale {
		t.Error("+ should zoom in")
	}
	m = update(t, m, key("-"))
	m = update(t, m, key("-"))
	if m.view.Scale >= scale {
		t.Error("- should zoom out")
	}
}

func TestPicker_LaunchesChoice(t *testing.T) {
	var launched string
	launch := func(name string) (*sim.Simulator, error) {
		launched = name
		if name == "broken" {
			return nil, errors.New("no such scenario")
		}
		return binary(t), nil
	}
	p := NewPicker([]Choice{{Name: "broken"}, {Name: "binary", Description: "two stars"}}, launch, 1).WithTheme(ThemeOcean)

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	if p.active || !strings.Contains(p.View(), "no such scenario") {
		t.Error("failed launch should stay on the menu with the error")
	}

	next, _ = p.Update(key("j"))
	p = next.(Picker)
	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	if launched != "binary" || !p.active || cmd == nil {
		t.Errorf("expected binary to start, launched %q active %v", launched, p.active)
	}
	if !strings.Contains(p.View(), "BINARY") {
		t.Error("picker should hand over to the live view")
	}
	if p.live.theme.Name != ThemeOcean.Name {
		t.Errorf("live view should keep the picker theme, got %s", p.live.theme.Name)
	}
}
