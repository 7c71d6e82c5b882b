package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/pkg/style"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var flags viewFlags

	cmd := &cobra.Command{
		Use:   "watch <style>",
		Short: "Interactively move the view and watch resources load",
		Long: `Watch loads a stylesheet and shows source states and layer counts live while
you move the view.

Keys:
  ←/→/↑/↓  pan        +/-  zoom        [/]  rotate
  c        cycle the --class values      q    quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, ref string, flags viewFlags) error {
	view, err := flags.view()
	if err != nil {
		return err
	}
	if flags.pixelRatio > 0 {
		c.Config.PixelRatio = flags.pixelRatio
	}

	e, err := c.newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	openCtx, cancel := context.WithTimeout(ctx, flags.timeout)
	err = e.open(openCtx, ref, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("load style: %w", err)
	}

	m := newWatchModel(e, view, flags.classes)
	m.applyClasses()
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// watchModel - Live view of the engine
// =============================================================================

type frameMsg struct{}

// watchModel drives the controller from bubbletea's update loop, so every
// style call happens on one goroutine.
type watchModel struct {
	e    *engine
	view transform.State

	// classes are the --class values; classIdx selects how many of them are
	// active, cycling from none to all.
	classes  []string
	classIdx int

	snap   style.Snapshot
	frames int
}

func newWatchModel(e *engine, view transform.State, classes []string) *watchModel {
	return &watchModel{e: e, view: view, classes: classes, classIdx: len(classes)}
}

func (m *watchModel) applyClasses() {
	m.e.style.Cascade(m.classes[:m.classIdx])
}

func (m *watchModel) Init() tea.Cmd {
	return m.waitFrame()
}

// waitFrame blocks until the loop has work or a frame interval passes.
func (m *watchModel) waitFrame() tea.Cmd {
	wake := m.e.loop.Wake()
	return func() tea.Msg {
		select {
		case <-wake:
		case <-time.After(frameInterval):
		}
		return frameMsg{}
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.e.frame(m.view)
		m.snap = m.e.style.Snapshot()
		m.frames++
		return m, m.waitFrame()
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	}
	return m, nil
}

func (m *watchModel) handleKey(key string) tea.Cmd {
	// Pan a quarter of the viewport per key press.
	step := 360 / math.Pow(2, m.view.Zoom) / 4
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "left", "h":
		m.view.Center[0] = wrapLon(m.view.Center[0] - step)
	case "right", "l":
		m.view.Center[0] = wrapLon(m.view.Center[0] + step)
	case "up", "k":
		m.view.Center[1] = min(m.view.Center[1]+step, transform.MaxLatitude)
	case "down", "j":
		m.view.Center[1] = max(m.view.Center[1]-step, -transform.MaxLatitude)
	case "+", "=":
		m.view.Zoom = min(m.view.Zoom+0.5, 22)
	case "-":
		m.view.Zoom = max(m.view.Zoom-0.5, 0)
	case "[":
		m.view.Bearing = math.Mod(m.view.Bearing+345, 360)
	case "]":
		m.view.Bearing = math.Mod(m.view.Bearing+15, 360)
	case "c":
		if len(m.classes) > 0 {
			m.classIdx = (m.classIdx + 1) % (len(m.classes) + 1)
			m.applyClasses()
		}
	}
	return nil
}

func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func (m *watchModel) View() string {
	var b strings.Builder

	title := m.snap.Name
	if title == "" {
		title = "style"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("center %.4f,%.4f  zoom %.1f  bearing %.0f°  classes %v",
		m.view.Center[0], m.view.Center[1], m.view.Zoom, m.view.Bearing, m.snap.Classes)))
	b.WriteString("\n\n")

	if len(m.snap.Sources) > 0 {
		b.WriteString(sourcesTable(m.snap.Sources))
		b.WriteString("\n")
	}

	status := StyleWarning.Render("loading")
	if m.snap.Loaded {
		status = styleIconSuccess.Render(iconSuccess + " loaded")
	}
	fmt.Fprintf(&b, "%s  %s\n", status, StyleDim.Render(fmt.Sprintf("%d layers · frame %d", len(m.snap.Layers), m.frames)))
	if m.snap.LastError != "" {
		b.WriteString(styleIconError.Render(iconError+" "+m.snap.LastError) + "\n")
	}
	b.WriteString(StyleDim.Render("←/→/↑/↓ pan  +/- zoom  [/] rotate  c classes  q quit"))
	b.WriteString("\n")
	return b.String()
}
