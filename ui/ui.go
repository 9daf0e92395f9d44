// Package ui is the terminal front end: a document ingestion tab and a chat
// tab, both talking to the HTTP API.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aqua777/docquery/rag/reader"
)

const (
	// Title is shown above the tabs.
	Title = "Document query assistant"
	// ExamplePrompt is offered on the chat tab.
	ExamplePrompt = "Summarize the documents in one sentence."
)

// Tab identifies one of the two screens.
type Tab int

const (
	TabIngest Tab = iota
	TabChat
)

var tabNames = []string{"Document Ingestion", "Chat"}

// API is the part of the HTTP client the UI needs.
type API interface {
	Ingest(ctx context.Context, collection string, files []reader.File) string
	Chat(ctx context.Context, collection, question string) string
	ResetChat(ctx context.Context, collection string) error
}

// FileLoader reads the paths typed on the ingestion tab.
type FileLoader func(paths ...string) ([]reader.File, error)

type ingestDoneMsg struct{ text string }

type chatDoneMsg struct{ answer string }

type resetDoneMsg struct{ err error }

type chatEntry struct {
	user bool
	text string
}

// Model is the Bubble Tea model for the UI.
type Model struct {
	api     API
	load    FileLoader
	timeout time.Duration

	tab   Tab
	focus int

	ingestCollection textinput.Model
	ingestPaths      textinput.Model
	ingestResult     string

	chatCollection textinput.Model
	prompt         textinput.Model
	transcript     []chatEntry
	viewport       viewport.Model

	spinner  spinner.Model
	busy     bool
	status   string
	renderer *glamour.TermRenderer
	width    int
	ready    bool
}

// Option configures a Model.
type Option func(*Model)

// WithFileLoader replaces reader.LoadPaths.
func WithFileLoader(load FileLoader) Option {
	return func(m *Model) {
		m.load = load
	}
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		m.timeout = d
	}
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 0
	return ti
}

// New creates the UI model.
func New(api API, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		api:              api,
		load:             reader.LoadPaths,
		timeout:          10 * time.Minute,
		ingestCollection: newInput("Collection Name"),
		ingestPaths:      newInput("Files to Ingest (comma separated paths)"),
		chatCollection:   newInput("Collection Name"),
		prompt:           newInput("Ask questions about the ingested documents"),
		viewport:         viewport.New(80, 12),
		spinner:          sp,
		status:           "ctrl+t: switch tab  tab: next field  enter: run  esc: quit",
		width:            80,
	}
	m.renderer = newRenderer(m.width)
	for _, opt := range opts {
		opt(&m)
	}
	m.applyFocus()
	m.refreshTranscript()
	return m
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, width-8)),
	)
	if err != nil {
		return nil
	}
	return r
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// inputs returns the focusable inputs of the active tab in focus order.
func (m *Model) inputs() []*textinput.Model {
	if m.tab == TabIngest {
		return []*textinput.Model{&m.ingestCollection, &m.ingestPaths}
	}
	return []*textinput.Model{&m.chatCollection, &m.prompt}
}

func (m *Model) applyFocus() {
	for _, in := range []*textinput.Model{&m.ingestCollection, &m.ingestPaths, &m.chatCollection, &m.prompt} {
		in.Blur()
	}
	inputs := m.inputs()
	m.focus = (m.focus + len(inputs)) % len(inputs)
	inputs[m.focus].Focus()
}

// Update handles key, window and API events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-14)
		m.renderer = newRenderer(msg.Width)
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ingestDoneMsg:
		m.busy = false
		m.ingestResult = msg.text
		return m, nil

	case chatDoneMsg:
		m.busy = false
		m.transcript = append(m.transcript, chatEntry{text: msg.answer})
		m.refreshTranscript()
		return m, nil

	case resetDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Reset failed: " + msg.err.Error()
		} else {
			m.transcript = nil
			m.status = "Conversation cleared."
			m.refreshTranscript()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+t":
			m.tab = (m.tab + 1) % Tab(len(tabNames))
			m.focus = 0
			m.applyFocus()
			return m, nil
		case "tab", "down":
			m.focus++
			m.applyFocus()
			return m, nil
		case "shift+tab", "up":
			m.focus--
			m.applyFocus()
			return m, nil
		case "ctrl+e":
			if m.tab == TabChat {
				m.prompt.SetValue(ExamplePrompt)
				m.focus = 1
				m.applyFocus()
			}
			return m, nil
		case "ctrl+r":
			if m.tab == TabChat && !m.busy {
				return m.reset()
			}
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.tab == TabIngest {
				return m.ingest()
			}
			return m.chat()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	in := m.inputs()[m.focus]
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m Model) ingest() (tea.Model, tea.Cmd) {
	collection := strings.TrimSpace(m.ingestCollection.Value())
	paths := splitPaths(m.ingestPaths.Value())
	if collection == "" || len(paths) == 0 {
		m.ingestResult = "❌ **Error**\n\nA collection name and at least one file are required."
		return m, nil
	}

	files, err := m.load(paths...)
	if err != nil {
		m.ingestResult = "❌ **Error during file upload**\n\n" + err.Error()
		return m, nil
	}

	m.busy = true
	m.ingestResult = ""
	api, timeout := m.api, m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ingestDoneMsg{text: api.Ingest(ctx, collection, files)}
	})
}

func (m Model) chat() (tea.Model, tea.Cmd) {
	collection := strings.TrimSpace(m.chatCollection.Value())
	question := strings.TrimSpace(m.prompt.Value())
	if collection == "" {
		m.status = "Enter a collection name first."
		return m, nil
	}
	if question == "" {
		return m, nil
	}

	m.busy = true
	m.prompt.SetValue("")
	m.transcript = append(m.transcript, chatEntry{user: true, text: question})
	m.refreshTranscript()

	api, timeout := m.api, m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return chatDoneMsg{answer: api.Chat(ctx, collection, question)}
	})
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	collection := strings.TrimSpace(m.chatCollection.Value())
	if collection == "" {
		m.status = "Enter a collection name first."
		return m, nil
	}

	m.busy = true
	api, timeout := m.api, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return resetDoneMsg{err: api.ResetChat(ctx, collection)}
	}
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) render(markdown string) string {
	if m.renderer == nil {
		return markdown
	}
	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) refreshTranscript() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent(hintStyle.Render("Example: " + ExamplePrompt + " (ctrl+e)"))
		return
	}
	var b strings.Builder
	for _, e := range m.transcript {
		if e.user {
			b.WriteString(userStyle.Render("You: " + e.text))
			b.WriteString("\n")
			continue
		}
		b.WriteString(m.render(e.text))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder()).Foreground(lipgloss.Color("8"))
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// View renders the active tab.
func (m Model) View() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}

	var body string
	if m.tab == TabIngest {
		body = m.ingestView()
	} else {
		body = m.chatView()
	}

	status := hintStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " Working..."
	}

	return titleStyle.Render("# "+Title) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" +
		body + "\n" + status
}

func (m Model) ingestView() string {
	result := m.ingestResult
	if result != "" {
		result = m.render(result)
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		labelStyle.Render("Collection Name"), m.ingestCollection.View(),
		labelStyle.Render("Files to Ingest"), m.ingestPaths.View(),
		labelStyle.Render("Ingestion Result (enter: Ingest)"), boxStyle.Render(result),
	)
}

func (m Model) chatView() string {
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		labelStyle.Render("Collection Name"), m.chatCollection.View(),
		boxStyle.Render(m.viewport.View()),
		m.prompt.View(),
		hintStyle.Render("enter: Send Prompt  ctrl+e: example  ctrl+r: clear conversation"),
	)
}
