package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shoprag/internal/catalog"
	"shoprag/internal/domain"
)

// DefaultMaxResults is how many recommendations a search asks for.
const DefaultMaxResults = 5

// RecommendPort is the TUI-facing subset of the recommendation service.
type RecommendPort interface {
	Recommend(ctx context.Context, query, preferences string, maxResults int) []domain.Recommendation
	Explain(ctx context.Context, query string, recs []domain.Recommendation, preferences string) string
}

// resultsMsg carries the outcome of a background search.
type resultsMsg struct {
	query       string
	recs        []domain.Recommendation
	explanation string
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service     RecommendPort
	query       textinput.Model
	preferences textinput.Model
	viewport    viewport.Model
	results     []domain.Recommendation
	explanation string
	summary     string
	status      string
	cursor      int
	ready       bool
	searching   bool
	lastQuery   string
	maxResults  int
}

// New creates a new TUI model instance.
func New(service RecommendPort, summary string) Model {
	q := textinput.New()
	q.Prompt = "search> "
	q.Placeholder = "What are you looking for? Enter to search"
	q.Focus()
	q.CharLimit = 0

	p := textinput.New()
	p.Prompt = "prefs>  "
	p.Placeholder = "Optional preferences, Tab to switch"
	p.CharLimit = 0

	vp := viewport.New(0, 0)
	return Model{
		service:     service,
		query:       q,
		preferences: p,
		viewport:    vp,
		summary:     summary,
		status:      "Catalog loaded. Type to search.",
		maxResults:  DefaultMaxResults,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 2 + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultsMsg:
		m.searching = false
		m.results = msg.recs
		m.explanation = msg.explanation
		m.cursor = 0
		m.lastQuery = msg.query
		if len(msg.recs) == 0 {
			m.status = fmt.Sprintf("No recommendations for %q", msg.query)
		} else {
			m.status = fmt.Sprintf("%d recommendations for %q", len(msg.recs), msg.query)
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab", "shift+tab":
			if m.query.Focused() {
				m.query.Blur()
				return m, m.preferences.Focus()
			}
			m.preferences.Blur()
			return m, m.query.Focus()
		case "enter":
			q := strings.TrimSpace(m.query.Value())
			if q != "" && !m.searching {
				m.searching = true
				m.status = fmt.Sprintf("Searching for %q...", q)
				return m, m.search(q, strings.TrimSpace(m.preferences.Value()))
			}
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	if m.query.Focused() {
		m.query, cmd = m.query.Update(msg)
	} else {
		m.preferences, cmd = m.preferences.Update(msg)
	}
	return m, cmd
}

// search runs the recommendation and explanation off the UI goroutine.
func (m Model) search(query, preferences string) tea.Cmd {
	service := m.service
	limit := m.maxResults
	return func() tea.Msg {
		ctx := context.Background()
		recs := service.Recommend(ctx, query, preferences, limit)
		return resultsMsg{
			query:       query,
			recs:        recs,
			explanation: service.Explain(ctx, query, recs, preferences),
		}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Product Recommendations")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.query.View() + "\n" + m.preferences.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	it := r.Item
	var b strings.Builder
	fmt.Fprintf(&b, "Result %d/%d  score=%.3f\n\n", m.cursor+1, len(m.results), r.Score)
	b.WriteString(titleStyle.Render(it.Title) + "\n")
	fmt.Fprintf(&b, "%s  |  %s  |  rating %.1f/5\n", it.Category, catalog.FormatPrice(it.Price), it.Rating)
	if desc := highlightBestSentence(it.Description, m.lastQuery); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}
	if m.explanation != "" {
		b.WriteString("\n" + explanationStyle.Render(m.explanation))
	}
	return b.String()
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	explanationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Italic(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(trimAll(sentences), " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx && bestScore > 0 {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func trimAll(ss []string) []string {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
	return ss
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
