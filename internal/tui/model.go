package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"catalograg/internal/domain"
	"catalograg/internal/usecase"
)

// Asker is the TUI-facing subset of the chat use case.
type Asker interface {
	Ask(ctx context.Context, conv *domain.Conversation, question string) (usecase.Reply, error)
}

type answerMsg struct {
	reply usecase.Reply
	err   error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	asker    Asker
	conv     *domain.Conversation
	input    textinput.Model
	viewport viewport.Model
	summary  string
	status   string
	waiting  bool
	ready    bool

	lastAsked string
}

// New creates a chat model bound to a fresh conversation.
func New(ctx context.Context, asker Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a product and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		asker:    asker,
		conv:     domain.NewConversation(),
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Ctrl+C to quit.",
	}
}

// Conversation returns the conversation driven by this model.
func (m Model) Conversation() *domain.Conversation { return m.conv }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, input box, spacer
		vh := msg.Height - reserved - th
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered from %d products.", len(msg.reply.Sources))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if m.waiting {
				m.status = "Still answering the previous question..."
				return m, nil
			}
			m.waiting = true
			m.input.SetValue("")
			m.status = "Thinking..."
			m.lastAsked = q
			m.refresh()
			return m, m.ask(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, conv, ctx := m.asker, m.conv, m.ctx
	return func() tea.Msg {
		reply, err := asker.Ask(ctx, conv, question)
		return answerMsg{reply: reply, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Catalog Assistant")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	turns := m.conv.History(0)
	if len(turns) == 0 && !m.waiting {
		return "Ask about products in the catalog, for example:\n  which cleanser suits sensitive skin?"
	}

	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(wrap(t.Question, width))
		b.WriteString("\n")
		b.WriteString(botStyle.Render("Assistant: "))
		b.WriteString(wrap(t.Answer, width))
		b.WriteString("\n\n")
	}
	if m.waiting {
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(wrap(m.lastAsked, width))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Assistant is typing..."))
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func wrap(text string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(text)
}
