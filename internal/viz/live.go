package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	statsWidth      = 50
	historyCapacity = 600
	trailLength     = 120
	frameInterval   = time.Second / 60
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model renders a running simulator. It only reads published snapshots and
// talks to the simulator through its public commands.
type Model struct {
	sim           *sim.Simulator
	name          string
	stepsPerFrame int
	initial       *sim.Checkpoint
	canvas        *Canvas
	view          Viewport
	theme         Theme
	st            styles
	trails        map[dynamo.BodyID][]dynamo.Vec3
	energyHistory []float64
	driftHistory  []float64
	e0            float64
	collisions    collision.Mode
	running       bool
	showHelp      bool
	err           error
}

// NewModel initializes s, remembers its starting point for the reset key
// and fits the view to its bodies.
func NewModel(s *sim.Simulator, name string, stepsPerFrame int) (Model, error) {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	if err := s.Initialize(); err != nil {
		return Model{}, err
	}

	m := Model{
		sim:           s,
		name:          name,
		stepsPerFrame: stepsPerFrame,
		initial:       s.CreateCheckpoint(),
		canvas:        NewCanvas(width-statsWidth, height-2),
		view:          NewViewport(),
		theme:         Themes[0],
		st:            newStyles(Themes[0]),
		trails:        make(map[dynamo.BodyID][]dynamo.Vec3),
		energyHistory: make([]float64, 0, historyCapacity),
		driftHistory:  make([]float64, 0, historyCapacity),
		e0:            s.Metrics().Total,
		collisions:    s.Config().CollisionMode,
		running:       true,
	}
	m.fit()
	m.record()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.togglePause()
		case "r":
			m.reset()
		case "+", "=":
			m.view.ZoomIn()
		case "-", "_":
			m.view.ZoomOut()
		case "left", "h":
			m.view.Pan(-panStep, 0, m.canvas.SubWidth(), m.canvas.SubHeight())
		case "right", "l":
			m.view.Pan(panStep, 0, m.canvas.SubWidth(), m.canvas.SubHeight())
		case "up", "k":
			m.view.Pan(0, panStep, m.canvas.SubWidth(), m.canvas.SubHeight())
		case "down", "j":
			m.view.Pan(0, -panStep, m.canvas.SubWidth(), m.canvas.SubHeight())
		case "x":
			m.view.Rotate(tiltStep, 0)
		case "X":
			m.view.Rotate(-tiltStep, 0)
		case "z":
			m.view.Rotate(0, tiltStep)
		case "Z":
			m.view.Rotate(0, -tiltStep)
		case "f":
			m.fit()
		case "c":
			m.toggleCollisions()
		case "t":
			m.theme = NextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.canvas.Resize(max(msg.Width-statsWidth-6, 10), max(msg.Height-2, 6))
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) fit() {
	m.view.Fit(m.sim.Snapshot().Bodies, m.canvas.SubWidth(), m.canvas.SubHeight())
}

func (m *Model) togglePause() {
	if m.running {
		if err := m.sim.Pause(); err != nil {
			m.err = err
		}
		m.running = false
		return
	}
	if err := m.sim.Resume(); err != nil {
		m.err = err
		return
	}
	m.running = true
}

// toggleCollisions switches between no collisions and inelastic merging.
// The change reaches the simulator at its next step boundary.
func (m *Model) toggleCollisions() {
	cfg := m.sim.Config()
	if m.collisions == collision.ModeNone {
		cfg.CollisionMode = collision.ModeMerge
	} else {
		cfg.CollisionMode = collision.ModeNone
	}
	if err := m.sim.UpdateConfig(cfg); err != nil {
		m.err = err
		return
	}
	m.collisions = cfg.CollisionMode
}

// reset restores the checkpoint taken when the model was built.
func (m *Model) reset() {
	if err := m.sim.RestoreCheckpoint(m.initial); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.collisions = m.initial.Config.CollisionMode
	clear(m.trails)
	m.energyHistory = m.energyHistory[:0]
	m.driftHistory = m.driftHistory[:0]
	if !m.running {
		_ = m.sim.Pause()
	}
	m.record()
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerFrame; i++ {
		if err := m.sim.Step(); err != nil {
			m.err = err
			m.running = false
			break
		}
	}
	m.record()
}

// record appends the current snapshot to the trails and the energy history.
func (m *Model) record() {
	snap := m.sim.Snapshot()
	live := make(map[dynamo.BodyID]struct{}, len(snap.Bodies))
	for _, b := range snap.Bodies {
		live[b.ID] = struct{}{}
		tr := append(m.trails[b.ID], b.Position)
		if len(tr) > trailLength {
			tr = tr[len(tr)-trailLength:]
		}
		m.trails[b.ID] = tr
	}
	for id := range m.trails {
		if _, ok := live[id]; !ok {
			delete(m.trails, id)
		}
	}

	e := m.sim.Metrics().Total
	m.energyHistory = appendCapped(m.energyHistory, e)
	m.driftHistory = appendCapped(m.driftHistory, relativeDrift(e, m.e0))
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) >= historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func relativeDrift(e, e0 float64) float64 {
	if e0 == 0 {
		return math.Abs(e - e0)
	}
	return math.Abs((e - e0) / e0)
}

// draw projects trails and bodies of the latest snapshot onto the canvas.
func (m *Model) draw(snap *sim.Snapshot) {
	m.canvas.Clear()
	w, h := m.canvas.SubWidth(), m.canvas.SubHeight()
	for _, tr := range m.trails {
		for _, p := range tr {
			if x, y, ok := m.view.Project(p, w, h); ok {
				m.canvas.Set(x, y)
			}
		}
	}
	for _, b := range snap.Bodies {
		if x, y, ok := m.view.Project(b.Position, w, h); ok {
			m.canvas.Disc(x, y, m.view.PixelRadius(b.Radius))
		}
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	snap := m.sim.Snapshot()
	m.draw(snap)
	canvasView := m.st.canvas.Render(m.st.bodies.Render(m.canvas.String()))

	cfg := m.sim.Config()
	var s strings.Builder
	s.WriteString(m.st.header.Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(m.st.failed.Render("ERROR") + " " + m.st.value.Render(m.err.Error()))
	case m.running:
		s.WriteString(m.st.running.Render("RUNNING"))
	default:
		s.WriteString(m.st.paused.Render("PAUSED"))
	}
	s.WriteString("\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(m.st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	drift := 0.0
	if n := len(m.driftHistory); n > 0 {
		drift = m.driftHistory[n-1]
	}
	row("Tick", fmt.Sprintf("%d", snap.Tick))
	row("Time", formatTime(snap.Time))
	row("Bodies", fmt.Sprintf("%d", len(snap.Bodies)))
	row("Energy", fmt.Sprintf("%.6g", m.energyHistory[len(m.energyHistory)-1]))
	s.WriteString(m.st.label.Render("Drift") + m.driftStyle(drift).Render(fmt.Sprintf("%.2e ", drift)) +
		m.st.value.Render(Sparkline(m.driftHistory, 16)) + "\n")
	row("Merges", fmt.Sprintf("%d", len(m.sim.Merges())))
	row("Integrator", cfg.Integrator)
	if stats, ok := m.sim.IntegratorStats(); ok {
		row("Sub-steps", fmt.Sprintf("%d ok %d rej %d forced", stats.Accepted, stats.Rejected, stats.Forced))
	}
	row("Evaluator", cfg.Evaluator)
	row("Collisions", string(m.collisions))
	row("Steps/frame", fmt.Sprintf("%d", m.stepsPerFrame))

	if m.showHelp {
		s.WriteString(m.st.help.Render(strings.Join([]string{
			"space  pause / resume",
			"r      reset to start",
			"+ -    zoom",
			"arrows pan",
			"x z    tilt / spin",
			"f      fit bodies",
			"c      toggle collisions",
			"t      cycle theme",
			"q      quit",
		}, "\n")))
	} else {
		s.WriteString(m.st.help.Render("SP:Pause R:Reset +-:Zoom C:Collide\nT:Theme  F:Fit  ?:Help Q:Quit"))
	}

	statsView := m.st.stats.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

func (m Model) driftStyle(d float64) lipgloss.Style {
	switch {
	case d < 1e-4:
		return m.st.good
	case d < 1e-2:
		return m.st.warning
	}
	return m.st.bad
}

func formatTime(t float64) string {
	const day = 86400.0
	a := math.Abs(t)
	switch {
	case a >= 365.25*day:
		return fmt.Sprintf("%.2f yr", t/(365.25*day))
	case a >= day:
		return fmt.Sprintf("%.2f d", t/day)
	case a >= 3600:
		return fmt.Sprintf("%.2f h", t/3600)
	}
	return fmt.Sprintf("%.3f", t)
}

// WithTheme returns m drawn in t.
func (m Model) WithTheme(t Theme) Model {
	m.theme = t
	m.st = newStyles(t)
	return m
}

// Run shows the live view of s in theme until the user quits.
func Run(s *sim.Simulator, name string, stepsPerFrame int, theme Theme) error {
	m, err := NewModel(s, name, stepsPerFrame)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m.WithTheme(theme), tea.WithAltScreen()).Run()
	return err
}
