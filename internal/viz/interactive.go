package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gravsim/internal/sim"
)

// Choice is one entry of the scenario menu.
type Choice struct {
	Name        string
	Description string
}

// Launcher builds a ready simulator for the chosen scenario.
type Launcher func(name string) (*sim.Simulator, error)

// Picker is a scenario menu that hands over to the live view once a
// scenario is chosen.
type Picker struct {
	choices       []Choice
	cursor        int
	launch        Launcher
	stepsPerFrame int
	theme         Theme
	live          Model
	active        bool
	size          *tea.WindowSizeMsg
	err           error
}

func NewPicker(choices []Choice, launch Launcher, stepsPerFrame int) Picker {
	return Picker{choices: choices, launch: launch, stepsPerFrame: stepsPerFrame, theme: Themes[0]}
}

// WithTheme returns p, and the live view it opens, drawn in t.
func (p Picker) WithTheme(t Theme) Picker {
	p.theme = t
	return p
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		p.size = &size
	}
	if p.active {
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.choices) == 0 {
			return p, nil
		}
		return p.start(p.choices[p.cursor].Name)
	}
	return p, nil
}

func (p Picker) start(name string) (Picker, tea.Cmd) {
	s, err := p.launch(name)
	if err != nil {
		p.err = err
		return p, nil
	}
	m, err := NewModel(s, name, p.stepsPerFrame)
	if err != nil {
		p.err = err
		return p, nil
	}
	m = m.WithTheme(p.theme)
	if p.size != nil {
		next, _ := m.Update(*p.size)
		m = next.(Model)
		m.fit()
	}
	p.live, p.active, p.err = m, true, nil
	return p, m.Init()
}

func (p Picker) View() string {
	if p.active {
		return p.live.View()
	}

	st := newStyles(p.theme)
	var b strings.Builder
	b.WriteString("\n\n    " + st.header.Render("GRAVSIM") + "\n    " + st.label.UnsetWidth().Render("gravitational n-body simulator") + "\n\n")
	for i, c := range p.choices {
		desc := c.Description
		if len(desc) > 48 {
			desc = desc[:45] + "..."
		}
		if i == p.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", st.cursor.Render("▸"), st.value.Bold(true).Render(fmt.Sprintf("%-14s", c.Name)), st.cursor.UnsetBold().Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", st.label.UnsetWidth().Render(fmt.Sprintf("%-14s", c.Name)), st.help.UnsetMarginTop().Render(desc)))
		}
	}
	if p.err != nil {
		b.WriteString("\n    " + st.failed.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + st.cursor.Render("j/k") + st.help.UnsetMarginTop().Render(" navigate  ") +
		st.cursor.Render("enter") + st.help.UnsetMarginTop().Render(" select  ") +
		st.cursor.Render("q") + st.help.UnsetMarginTop().Render(" quit") + "\n")
	return b.String()
}

// RunPicker shows the scenario menu and then the live view.
func RunPicker(choices []Choice, launch Launcher, stepsPerFrame int, theme Theme) error {
	_, err := tea.NewProgram(NewPicker(choices, launch, stepsPerFrame).WithTheme(theme), tea.WithAltScreen()).Run()
	return err
}
