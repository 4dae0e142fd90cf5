// Package tui is the terminal front end. It renders controller snapshots and
// turns key presses into controller calls.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/game"
	"github.com/tatianab/xianxia/internal/models"
)

type screen int

const (
	screenLanguage screen = iota
	screenName
	screenIdentity
	screenPlaying
	screenGameOver
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

type model struct {
	screen    screen
	ctrl      *game.Controller
	lang      catalog.Lang
	name      string
	cursor    int
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	bar       progress.Model
	session   models.Session
	err       error
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

// NewModel builds the root model. A controller that already holds a resumed
// session starts on the story screen; otherwise setup begins with the language
// picker, preselecting lang.
func NewModel(ctrl *game.Controller, lang catalog.Lang) model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 30

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		screen:    screenLanguage,
		ctrl:      ctrl,
		lang:      lang,
		textInput: ti,
		spinner:   sp,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:     defaultWidth,
		height:    defaultHeight,
	}
	for i, l := range catalog.Langs {
		if l == lang {
			m.cursor = i
		}
	}
	m.resize()

	switch ctrl.Status() {
	case game.InProgress:
		m.screen = screenPlaying
		m.refresh()
	case game.GameOver:
		m.screen = screenGameOver
		m.refresh()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// turnResolvedMsg is sent after any controller call that may have changed the
// session.
type turnResolvedMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		if m.screen == screenPlaying || m.screen == screenGameOver {
			m.viewport.SetContent(m.renderLog())
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case turnResolvedMsg:
		m.err = msg.err
		if msg.err != nil {
			m.screen = screenIdentity
			m.session = models.Session{}
			return m, nil
		}
		m.refresh()
		switch m.ctrl.Status() {
		case game.AwaitingSetup:
			m.toName()
		case game.InProgress:
			m.screen = screenPlaying
		case game.GameOver:
			m.screen = screenGameOver
		}
		m.cursor = 0
		return m, nil
	}

	if m.screen == screenName {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.screen {
	case screenLanguage:
		switch msg.String() {
		case "up", "k":
			m.cursor = max(0, m.cursor-1)
		case "down", "j":
			m.cursor = min(len(catalog.Langs)-1, m.cursor+1)
		case "enter":
			m.lang = catalog.Langs[m.cursor]
			m.toName()
		}
		return m, nil

	case screenName:
		if msg.Type == tea.KeyEnter {
			name := strings.TrimSpace(m.textInput.Value())
			if name == "" {
				return m, nil
			}
			m.name = name
			m.screen = screenIdentity
			m.cursor = 0
			m.textInput.Blur()
			return m, nil
		}
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd

	case screenIdentity:
		idents := catalog.Identities()
		switch msg.String() {
		case "up", "k":
			m.cursor = max(0, m.cursor-1)
		case "down", "j":
			m.cursor = min(len(idents)-1, m.cursor+1)
		case "enter":
			m.screen = screenPlaying
			m.session = models.Session{Busy: true, Language: m.lang}
			m.viewport.SetContent("")
			return m, m.startSession(idents[m.cursor])
		}
		return m, nil

	case screenPlaying:
		if m.session.Busy || m.ctrl.Busy() {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			m.cursor = max(0, m.cursor-1)
			return m, nil
		case "down", "j":
			m.cursor = min(len(m.session.Choices)-1, m.cursor+1)
			return m, nil
		case "ctrl+r":
			if m.ctrl.Restart(context.Background()) {
				m.session = models.Session{}
				m.toName()
			}
			return m, nil
		case "enter":
			return m.choose(m.cursor)
		}
		if len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' {
			return m.choose(int(msg.Runes[0] - '1'))
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd

	case screenGameOver:
		if msg.Type == tea.KeyEnter && m.ctrl.Reincarnate(context.Background()) {
			m.session = models.Session{}
			m.toName()
		}
		return m, nil
	}
	return m, nil
}

func (m model) choose(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.session.Choices) {
		return m, nil
	}
	choice := m.session.Choices[i]
	m.session.Busy = true
	m.session.Log = append(m.session.Log, models.LogEntry{Role: models.RoleUser, Text: choice.LogText(m.lang)})
	m.session.Choices = nil
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
	return m, m.submitChoice(choice)
}

func (m *model) toName() {
	m.screen = screenName
	m.cursor = 0
	m.err = nil
	text := catalog.Text(m.lang)
	m.textInput.Placeholder = text.NamePlaceholder
	m.textInput.SetValue(m.name)
	m.textInput.Focus()
}

func (m *model) refresh() {
	m.session = m.ctrl.Snapshot()
	if m.session.Language != "" {
		m.lang = m.session.Language
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *model) resize() {
	logWidth := int(float64(m.width) * 0.70)
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(logWidth, max(5, m.height-12))
	} else {
		m.viewport.Width = logWidth
		m.viewport.Height = max(5, m.height-12)
	}
	m.bar.Width = max(10, int(float64(m.width)*0.20))
}

func (m model) View() string {
	text := catalog.Text(m.lang)
	var s string

	switch m.screen {
	case screenLanguage:
		var b strings.Builder
		b.WriteString(titleStyle.Render(text.Title) + "  " + text.Subtitle + "\n\n")
		b.WriteString(text.ChooseLanguage + "\n\n")
		for i, l := range catalog.Langs {
			b.WriteString(m.option(i, languageLabel(l)) + "\n")
		}
		s = b.String()

	case screenName:
		s = fmt.Sprintf("%s\n\n%s\n\n%s",
			titleStyle.Render(text.Title),
			text.EnterName,
			m.textInput.View())

	case screenIdentity:
		var b strings.Builder
		b.WriteString(titleStyle.Render(text.SelectIdentity) + "\n\n")
		for i, ident := range catalog.Identities() {
			b.WriteString(m.option(i, ident.DisplayName(m.lang)) + "\n")
			b.WriteString(helpStyle.Render("    "+ident.Describe(m.lang)) + "\n")
		}
		b.WriteString("\n" + text.Start)
		if m.err != nil {
			b.WriteString("\n\n" + errorStyle.Render(m.err.Error()))
		}
		s = b.String()

	case screenPlaying, screenGameOver:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.renderChoices(),
			"\n"+helpStyle.Render(text.Help),
		)
	}

	return "\n" + s + "\n"
}

func (m model) option(i int, label string) string {
	if i == m.cursor {
		return selectedStyle.Render("> " + label)
	}
	return "  " + label
}

func (m model) renderChoices() string {
	text := catalog.Text(m.lang)

	if m.screen == screenGameOver {
		return titleStyle.Render(text.GameOver) + "\n" + text.GameOverDesc + "\n\n" +
			selectedStyle.Render("[enter] "+text.Reincarnate)
	}
	if m.session.Busy {
		return m.spinner.View() + " " + text.Thinking
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(text.Choose) + "\n")
	for i, c := range m.session.Choices {
		b.WriteString(m.option(i, fmt.Sprintf("%d. %s", i+1, c.Text)) + "\n")
	}
	return b.String()
}

func (m model) renderState() string {
	p := m.session.Player
	if p.Name == "" {
		return ""
	}
	text := catalog.Text(m.lang)

	var b strings.Builder
	b.WriteString(titleStyle.Render(p.Name) + "\n")
	b.WriteString(p.Identity + "\n\n")

	fmt.Fprintf(&b, "%s: %s\n", text.Realm, p.Realm)
	fmt.Fprintf(&b, "%s: %s\n", text.SpiritRoot, p.SpiritRoot)
	fmt.Fprintf(&b, "%s: %s\n", text.Phase, p.Phase)
	fmt.Fprintf(&b, "%s: %s\n\n", text.Location, p.Location)

	fmt.Fprintf(&b, "%s %d/%d\n%s\n", text.HP, p.HP, p.MaxHP, m.bar.ViewAs(ratio(p.HP, p.MaxHP)))
	fmt.Fprintf(&b, "%s %d/%d\n%s\n\n", text.Qi, p.Qi, p.MaxQi, m.bar.ViewAs(ratio(p.Qi, p.MaxQi)))

	fmt.Fprintf(&b, "%s: %d\n", text.Karma, p.Karma)
	fmt.Fprintf(&b, "%s: %d\n\n", text.Wealth, p.Gold)

	b.WriteString(titleStyle.Render(text.Bag) + "\n")
	if len(p.Inventory) == 0 {
		b.WriteString("(" + text.Empty + ")")
	}
	for _, item := range p.Inventory {
		b.WriteString("- " + item + "\n")
	}

	stateWidth := int(float64(m.width) * 0.28)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

func (m model) renderLog() string {
	logWidth := m.viewport.Width
	var b strings.Builder
	for _, entry := range m.session.Log {
		switch entry.Role {
		case models.RoleUser:
			b.WriteString(userStyle.Width(logWidth).Render("> "+entry.Text) + "\n\n")
		default:
			b.WriteString(gameStyle.Width(logWidth).Render(entry.Text) + "\n\n")
		}
	}
	return b.String()
}

func ratio(v, maxV int) float64 {
	if maxV <= 0 {
		return 0
	}
	return float64(v) / float64(maxV)
}

func languageLabel(l catalog.Lang) string {
	switch l {
	case catalog.Chinese:
		return "中文"
	default:
		return "English"
	}
}

func (m model) startSession(ident catalog.Identity) tea.Cmd {
	ctrl, name, lang := m.ctrl, m.name, m.lang
	return func() tea.Msg {
		_, err := ctrl.StartSession(context.Background(), name, ident, lang)
		return turnResolvedMsg{err: err}
	}
}

func (m model) submitChoice(choice models.Choice) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.SubmitChoice(context.Background(), choice)
		return turnResolvedMsg{}
	}
}

// Run blocks until the player quits.
func Run(ctrl *game.Controller, lang catalog.Lang) error {
	p := tea.NewProgram(NewModel(ctrl, lang), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
