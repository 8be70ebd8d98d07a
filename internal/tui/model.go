package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/export"
	"docchat/internal/orchestrator"
	"docchat/internal/session"
	"docchat/internal/textutil"
)

// ChatPort is the TUI-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, question string, sink domain.TokenSink) (orchestrator.Reply, session.Snapshot)
	Delete(i int) (session.Snapshot, error)
	Refresh() session.Snapshot
	Snapshot() session.Snapshot
}

// Options tune the model. Notice is shown under the header, e.g. ingest
// warnings.
type Options struct {
	Notice    string
	ExportDir string
}

type tokenMsg struct {
	turn   int
	text   string
	tokens <-chan string
}

type answerMsg struct {
	turn     int
	question string
	reply    orchestrator.Reply
	snap     session.Snapshot
}

type exportedMsg struct {
	path string
	err  error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	snap     session.Snapshot
	opts     Options

	cursor int
	status string
	ready  bool

	// turn identifies the in-flight question; results of older turns are
	// dropped.
	turn     int
	asking   bool
	pending  string
	partial  string
	cancel   context.CancelFunc
	lastNote string
}

// New creates a new TUI model instance.
func New(service ChatPort, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	snap := service.Snapshot()
	m := Model{service: service, input: ti, viewport: vp, snap: snap, opts: opts}
	m.cursor = max(0, len(snap.Exchanges)-1)
	m.status = "Ready. enter ask · ↑/↓ select · ctrl+x delete · ctrl+r clear · ctrl+e export · esc cancel"
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around history and question boxes
		_, rh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + 1 + qh + 1 // header, documents, notice + status + spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case tokenMsg:
		if msg.turn == m.turn && m.asking {
			m.partial += msg.text
			m.refresh()
			m.viewport.GotoBottom()
		}
		return m, waitToken(msg.turn, msg.tokens)

	case answerMsg:
		if msg.turn != m.turn {
			return m, nil
		}
		m.asking = false
		m.partial = ""
		m.pending = ""
		m.cancel = nil
		m.snap = msg.snap
		switch {
		case msg.reply.Failed:
			m.status = "Error: " + msg.reply.Text
		case msg.reply.Cached:
			m.status = fmt.Sprintf("Answered from history for %q", msg.question)
		default:
			m.status = fmt.Sprintf("Answered %q", msg.question)
		}
		m.cursor = max(0, len(m.snap.Exchanges)-1)
		m.lastNote = ""
		if msg.reply.Cached {
			m.lastNote = "(from history) " + msg.reply.Text
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Transcript written to " + msg.path
		}
		return m, nil

	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.asking {
				return m, nil
			}
			m.input.SetValue("")
			return m.ask(q)
		case "esc":
			if m.asking {
				m.cancel()
				m.turn++
				m.asking = false
				m.partial = ""
				m.status = fmt.Sprintf("Cancelled %q", m.pending)
				m.pending = ""
				m.refresh()
			}
			return m, nil
		case "down":
			if n := len(m.snap.Exchanges); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.refresh()
			}
			return m, nil
		case "up":
			if n := len(m.snap.Exchanges); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.refresh()
			}
			return m, nil
		case "ctrl+x":
			if m.asking || len(m.snap.Exchanges) == 0 {
				return m, nil
			}
			snap, err := m.service.Delete(m.cursor)
			if err != nil {
				m.status = "Error: " + err.Error()
				return m, nil
			}
			m.snap = snap
			m.cursor = min(m.cursor, max(0, len(snap.Exchanges)-1))
			m.status = "Deleted entry"
			m.refresh()
			return m, nil
		case "ctrl+r":
			if m.asking {
				return m, nil
			}
			m.snap = m.service.Refresh()
			m.cursor = 0
			m.lastNote = ""
			m.status = "History cleared"
			m.refresh()
			return m, nil
		case "ctrl+e":
			return m, exportCmd(m.snap, m.opts.ExportDir)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) (tea.Model, tea.Cmd) {
	m.turn++
	turn := m.turn
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.asking = true
	m.pending = q
	m.partial = ""
	m.status = fmt.Sprintf("Thinking about %q…", q)
	m.refresh()

	tokens := make(chan string, 64)
	service := m.service
	run := func() tea.Msg {
		defer close(tokens)
		reply, snap := service.Ask(ctx, q, func(s string) {
			select {
			case tokens <- s:
			case <-ctx.Done():
			}
		})
		cancel()
		return answerMsg{turn: turn, question: q, reply: reply, snap: snap}
	}
	return m, tea.Batch(run, waitToken(turn, tokens))
}

func waitToken(turn int, tokens <-chan string) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-tokens
		if !ok {
			return nil
		}
		return tokenMsg{turn: turn, text: s, tokens: tokens}
	}
}

func exportCmd(snap session.Snapshot, dir string) tea.Cmd {
	return func() tea.Msg {
		now := time.Now()
		data, err := export.Transcript(snap.Exchanges, snap.Documents, now)
		if err != nil {
			return exportedMsg{err: err}
		}
		path := filepath.Join(dir, "docchat-transcript-"+now.Format("20060102-150405")+".pdf")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
}

// View renders the TUI layout and current history.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Chat")
	docs := "No documents indexed."
	if m.snap.Ready {
		docs = fmt.Sprintf("%s · %d chunks", strings.Join(m.snap.Documents, ", "), m.snap.Chunks)
	}
	docs = dimStyle.Render(docs)
	notice := dimStyle.Render(m.opts.Notice)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	history := historyBoxStyle.Render(m.viewport.View())
	return header + "\n" + docs + "\n" + notice + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	var b strings.Builder
	if len(m.snap.Exchanges) == 0 && !m.asking {
		b.WriteString(export.EmptyHistory)
	}
	for i, ex := range m.snap.Exchanges {
		marker := "  "
		q := ex.Question
		if i == m.cursor {
			marker = "▸ "
			q = selectedStyle.Render(q)
		}
		b.WriteString(marker + questionStyle.Render("Q: ") + q + "\n")
		b.WriteString("  " + highlightBestSentence(ex.Answer, ex.Question) + "\n\n")
	}
	if m.asking {
		b.WriteString("  " + questionStyle.Render("Q: ") + m.pending + "\n")
		b.WriteString("  " + m.partial + "▌\n")
	}
	if m.lastNote != "" {
		b.WriteString(dimStyle.Render(m.lastNote))
	}
	return b.String()
}

var (
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	selectedStyle   = lipgloss.NewStyle().Underline(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// highlightBestSentence emphasises the sentence of text that shares the most
// words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	qTokens := textutil.ContentSet(query)
	if len(qTokens) == 0 || len(sentences) < 2 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := 0
	for i, s := range sentences {
		if score := textutil.Overlap(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return strings.Join(sentences, " ")
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
