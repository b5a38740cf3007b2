package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/host"
	"github.com/TheCrustyCrab/pure-audio/loader"
	"github.com/TheCrustyCrab/pure-audio/midi"
	"github.com/TheCrustyCrab/pure-audio/param"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	heldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	paramStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// keyboard maps one octave of home-row keys to MIDI keys from middle C.
var keyboard = map[string]uint8{
	"a": 60, "w": 61, "s": 62, "e": 63, "d": 64, "f": 65, "t": 66,
	"g": 67, "y": 68, "h": 69, "u": 70, "j": 71, "k": 72,
}

const tickInterval = 50 * time.Millisecond

type tickMsg time.Time

type interactiveModel struct {
	err      error
	node     *host.Node
	router   *midi.Router
	params   map[string][]float32
	held     map[uint8]bool
	meter    progress.Model
	inputs   [][][]float32
	outputs  [][][]float32
	schema   param.Schema
	name     string
	blocks   int
	frame    int
	selected int
	peak     float64
	rate     float32
	effect   bool
}

func newInteractiveModel(node *host.Node, src bridge.Source, sampleRate float32, params map[string][]float32, log *zap.Logger) *interactiveModel {
	shape := src.Shape()
	schema := src.Schema()
	values := make(map[string][]float32, len(schema))
	for _, d := range schema {
		values[d.Name] = []float32{d.Default}
	}
	for name, v := range params {
		values[name] = v
	}

	router := midi.NewRouter(log)
	router.RouteAll(node)

	blocks := int(math.Ceil(float64(sampleRate) * tickInterval.Seconds() / float64(shape.BlockSize)))
	return &interactiveModel{
		node:    node,
		router:  router,
		params:  values,
		held:    make(map[uint8]bool),
		meter:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		inputs:  newBlock(shape.Inputs, shape.Channels, shape.BlockSize),
		outputs: newBlock(shape.Outputs, shape.Channels, shape.BlockSize),
		schema:  schema,
		name:    src.Name(),
		blocks:  max(blocks, 1),
		rate:    sampleRate,
		effect:  src.Capability() == processor.Effect,
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *interactiveModel) Init() tea.Cmd {
	return tick()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "tab":
			if len(m.schema) > 0 {
				m.selected = (m.selected + 1) % len(m.schema)
			}

		case "up", "down":
			m.nudge(key == "up")

		case " ":
			for k := range m.held {
				m.router.Handle(midi.Encode(0, event.NoteOff(k, 0)))
			}
			clear(m.held)

		default:
			if k, ok := keyboard[key]; ok && !m.effect {
				e := event.NoteOn(k, 100)
				if m.held[k] {
					e = event.NoteOff(k, 0)
				}
				if m.router.Handle(midi.Encode(0, e)) {
					m.held[k] = !m.held[k]
				}
			}
		}

	case tickMsg:
		m.advance()
		return m, tick()
	}
	return m, nil
}

// nudge moves the selected parameter by a twentieth of its range.
func (m *interactiveModel) nudge(up bool) {
	if len(m.schema) == 0 {
		return
	}
	d := m.schema[m.selected]
	step := (d.Max - d.Min) / 20
	if !up {
		step = -step
	}
	v := param.Value(m.params[d.Name][0] + step).Clamp(d)
	m.params[d.Name] = []float32{v.Float32()}
}

// advance renders one tick's worth of blocks and records the output peak.
func (m *interactiveModel) advance() {
	ctx := context.Background()
	m.peak = 0
	for b := 0; b < m.blocks; b++ {
		tone(m.inputs, m.frame, m.rate)
		m.frame += len(m.outputs[0][0])
		if _, err := m.node.Process(ctx, m.inputs, m.outputs, m.params); err != nil {
			m.err = err
			return
		}
		for _, ch := range m.outputs[0] {
			for _, s := range ch {
				m.peak = math.Max(m.peak, math.Abs(float64(s)))
			}
		}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pure-audio"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n\n")

	b.WriteString(m.meter.ViewAs(math.Min(m.peak, 1)))
	b.WriteString(fmt.Sprintf(" %.2f\n\n", m.peak))

	for i, d := range m.schema {
		line := fmt.Sprintf("%s: %.2f (%g..%g)", d.Name, m.params[d.Name][0], d.Min, d.Max)
		if i == m.selected {
			b.WriteString(heldStyle.Render("> " + line))
		} else {
			b.WriteString(paramStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if !m.effect {
		b.WriteString("\n")
		keys := make([]string, 0, len(keyboard))
		for k := range keyboard {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keyboard[keys[i]] < keyboard[keys[j]] })
		for _, k := range keys {
			if m.held[keyboard[k]] {
				b.WriteString(heldStyle.Render(k))
			} else {
				b.WriteString(keyStyle.Render(k))
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "tab select parameter • ↑/↓ adjust • q quit"
	if !m.effect {
		help = "keys toggle notes • space release all • " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func runInteractive(ctx context.Context, log *zap.Logger, src bridge.Source, sampleRate float32, params map[string][]float32) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	h := host.NewContext(host.Config{
		Logger:     log,
		SampleRate: sampleRate,
		BlockSize:  src.Shape().BlockSize,
	})
	defer h.Close(ctx)

	node, err := loader.RegisterAndCreateNode(ctx, h, src)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newInteractiveModel(node, src, sampleRate, params, log), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
