package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nick/procdrive/child"
	"github.com/nick/procdrive/driver"
	"github.com/nick/procdrive/internal/buffer"
)

// scrollbackSize bounds how much output is retained per child for the
// preview pane, the way internal/buffer.RingBuffer bounds the teacher's
// process viewer scrollback.
const scrollbackSize = 256 * 1024

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	deadStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	previewStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errLineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// childItem adapts a supervised child to bubbles/list.Item, so list.Model's
// built-in sahilm/fuzzy filtering can search over labels.
type childItem struct {
	label string
	c     *child.Child
}

func (i childItem) Title() string { return i.label }
func (i childItem) Description() string {
	if i.c.Alive() {
		return "running"
	}
	if rc := i.c.ReturnCode(); rc != nil {
		return fmt.Sprintf("exited (%d)", *rc)
	}
	return "not started"
}
func (i childItem) FilterValue() string { return i.label }

type observationMsg struct {
	label string
	obs   driver.DriverObservation
}

type dashboard struct {
	drv        *driver.Driver
	labels     map[*child.Child]string
	scrollback map[string]*buffer.RingBuffer
	msgs       chan observationMsg

	list   list.Model
	width  int
	height int
}

func newDashboard(drv *driver.Driver, labels map[*child.Child]string) *dashboard {
	items := make([]list.Item, 0, len(labels))
	scrollback := make(map[string]*buffer.RingBuffer, len(labels))
	for c, label := range labels {
		items = append(items, childItem{label: label, c: c})
		scrollback[label] = buffer.NewRingBuffer(scrollbackSize)
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "procdrive"
	l.SetShowHelp(true)

	d := &dashboard{
		drv:        drv,
		labels:     labels,
		scrollback: scrollback,
		msgs:       make(chan observationMsg, 64),
		list:       l,
	}
	go d.pump()
	return d
}

// pump iterates the driver's active members continuously, feeding each
// observation (or timeout/exit error) into the child's scrollback buffer
// and forwarding it to the bubbletea program as a message.
func (d *dashboard) pump() {
	it := d.drv.Iterate(0, 0)
	for {
		c, obs, ok := it.Next()
		if !ok {
			return
		}
		label := d.labels[c]
		rb := d.scrollback[label]
		if obs.Err != nil {
			rb.Write([]byte(errLineStyle.Render(obs.Err.Error()) + "\n"))
		} else {
			rb.Write(obs.Stdout)
			rb.Write(obs.Stderr)
		}
		d.msgs <- observationMsg{label: label, obs: obs}
	}
}

func waitForObservation(msgs <-chan observationMsg) tea.Cmd {
	return func() tea.Msg {
		return <-msgs
	}
}

func (d *dashboard) Init() tea.Cmd {
	return waitForObservation(d.msgs)
}

func (d *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		listWidth := d.width / 3
		d.list.SetSize(listWidth, d.height)
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return d, tea.Quit
		}
		if !d.list.SettingFilter() {
			switch msg.String() {
			case "r":
				return d, d.restartSelected()
			case "x":
				return d, d.terminateSelected()
			}
		}

	case observationMsg:
		return d, waitForObservation(d.msgs)
	}

	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return d, cmd
}

func (d *dashboard) selected() (string, bool) {
	item, ok := d.list.SelectedItem().(childItem)
	if !ok {
		return "", false
	}
	return item.label, true
}

func (d *dashboard) restartSelected() tea.Cmd {
	return func() tea.Msg {
		item, ok := d.list.SelectedItem().(childItem)
		if !ok {
			return nil
		}
		if item.c.Alive() {
			return nil
		}
		_ = item.c.Start()
		_ = d.drv.ReturnBack(item.c)
		return nil
	}
}

func (d *dashboard) terminateSelected() tea.Cmd {
	return func() tea.Msg {
		item, ok := d.list.SelectedItem().(childItem)
		if !ok {
			return nil
		}
		_ = item.c.Terminate()
		return nil
	}
}

// renderPreview renders the scrollback of the selected child, word-wrapped
// to the available pane width. Every child's scrollback is wrapped the same
// way; terminal (pty) children get no separate treatment, and their escape
// sequences are not interpreted.
func (d *dashboard) renderPreview(width, height int) string {
	label, ok := d.selected()
	if !ok {
		return previewStyle.Width(width).Height(height).Render("no child selected")
	}
	rb, ok := d.scrollback[label]
	if !ok {
		return previewStyle.Width(width).Height(height).Render("")
	}

	content := string(rb.Bytes())
	if width > 2 {
		content = wordwrap.String(content, width-2)
	}

	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}

	title := label
	if item, ok := d.list.SelectedItem().(childItem); ok && item.c.Alive() {
		title = selectedStyle.Render(title)
	} else {
		title = deadStyle.Render(title)
	}

	return previewStyle.Width(width).Height(height).Render(title + "\n" + strings.Join(lines, "\n"))
}

func (d *dashboard) View() string {
	if d.width == 0 {
		return "loading..."
	}
	listView := d.list.View()
	previewWidth := d.width - lipgloss.Width(listView) - 4
	if previewWidth < 1 {
		previewWidth = 1
	}
	preview := d.renderPreview(previewWidth, d.height-2)
	return lipgloss.JoinHorizontal(lipgloss.Top, listView, preview)
}
