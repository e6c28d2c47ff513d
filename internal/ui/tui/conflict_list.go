// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/conflictfix/internal/repair"
)

// ConflictAction represents the action chosen in the conflict list.
type ConflictAction int

const (
	// ConflictActionNone means no action was taken (user quit).
	ConflictActionNone ConflictAction = iota
	// ConflictActionRepair means the user wants to repair the selected files.
	ConflictActionRepair
)

// ConflictListResult contains the result of the conflict list interaction.
type ConflictListResult struct {
	Action   ConflictAction
	Selected []repair.Match
}

// Paths returns the selected file paths.
func (r ConflictListResult) Paths() []string {
	return repair.MatchPaths(r.Selected)
}

type conflictListKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Confirm   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultConflictListKeyMap() conflictListKeyMap {
	return conflictListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "tab"),
			key.WithHelp("space/tab", "toggle"),
		),
		ToggleAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle all"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "repair selected"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ConflictListModel is the BubbleTea model for choosing which conflicted
// files to repair. Every file starts selected.
type ConflictListModel struct {
	table    table.Model
	matches  []repair.Match
	selected map[string]bool
	keys     conflictListKeyMap
	result   ConflictListResult
	showHelp bool
	width    int
	quitting bool
	pathCol  int
}

var conflictListStyles = struct {
	Title       lipgloss.Style
	Help        lipgloss.Style
	Status      lipgloss.Style
	DetailBox   lipgloss.Style
	DetailTitle lipgloss.Style
}{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	DetailBox:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	DetailTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
}

const (
	conflictListCheckboxWidth = 3
	conflictListPathWidth     = 50
	conflictListRegionsWidth  = 8
	conflictListColumnPadding = 2
	conflictListDetailLines   = 4
)

func conflictListColumns(totalWidth int) ([]table.Column, int) {
	pathWidth := conflictListPathWidth
	if totalWidth > 0 {
		fixed := conflictListCheckboxWidth + conflictListRegionsWidth + conflictListColumnPadding*3
		pathWidth = max(totalWidth-fixed, 20)
	}
	return []table.Column{
		{Title: " ", Width: conflictListCheckboxWidth},
		{Title: "File", Width: pathWidth},
		{Title: "Regions", Width: conflictListRegionsWidth},
	}, pathWidth
}

// NewConflictListModel creates a conflict list over the given scan matches.
func NewConflictListModel(matches []repair.Match) ConflictListModel {
	columns, pathWidth := conflictListColumns(0)

	selected := make(map[string]bool, len(matches))
	for _, m := range matches {
		selected[m.Path] = true
	}

	m := ConflictListModel{
		matches:  matches,
		selected: selected,
		keys:     defaultConflictListKeyMap(),
		pathCol:  pathWidth,
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(m.rows()),
		table.WithFocused(true),
		table.WithHeight(min(max(len(matches), 1), 15)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m.table = t
	return m
}

func (m ConflictListModel) rows() []table.Row {
	rows := make([]table.Row, len(m.matches))
	for i, match := range m.matches {
		checkbox := "[ ]"
		if m.selected[match.Path] {
			checkbox = "[x]"
		}
		rows[i] = table.Row{
			checkbox,
			truncatePath(match.Path, m.pathCol),
			fmt.Sprintf("%d", len(match.Regions)),
		}
	}
	return rows
}

// Init implements tea.Model.
func (m ConflictListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-10-conflictListDetailLines, 5))
		columns, pathWidth := conflictListColumns(msg.Width)
		m.pathCol = pathWidth
		m.table.SetColumns(columns)
		m.table.SetRows(m.rows())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.result = ConflictListResult{Action: ConflictActionNone}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Toggle):
			if current, ok := m.current(); ok {
				m.selected[current.Path] = !m.selected[current.Path]
				m.table.SetRows(m.rows())
			}
			return m, nil

		case key.Matches(msg, m.keys.ToggleAll):
			selectAll := m.selectedCount() < len(m.matches)
			for _, match := range m.matches {
				m.selected[match.Path] = selectAll
			}
			m.table.SetRows(m.rows())
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			m.result = ConflictListResult{
				Action:   ConflictActionRepair,
				Selected: m.selectedMatches(),
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ConflictListModel) current() (repair.Match, bool) {
	cursor := m.table.Cursor()
	if cursor >= 0 && cursor < len(m.matches) {
		return m.matches[cursor], true
	}
	return repair.Match{}, false
}

func (m ConflictListModel) selectedCount() int {
	n := 0
	for _, match := range m.matches {
		if m.selected[match.Path] {
			n++
		}
	}
	return n
}

func (m ConflictListModel) selectedMatches() []repair.Match {
	var selected []repair.Match
	for _, match := range m.matches {
		if m.selected[match.Path] {
			selected = append(selected, match)
		}
	}
	return selected
}

// View implements tea.Model.
func (m ConflictListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(conflictListStyles.Title.Render("Conflicted files"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString("\n")
	b.WriteString(conflictListStyles.Status.Render(
		fmt.Sprintf("%d of %d selected", m.selectedCount(), len(m.matches))))
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}
	return b.String()
}

// renderDetail lists the regions of the file under the cursor.
func (m ConflictListModel) renderDetail() string {
	current, ok := m.current()
	if !ok {
		return ""
	}

	lines := make([]string, 0, conflictListDetailLines)
	for i, r := range current.Regions {
		if i == conflictListDetailLines-1 && len(current.Regions) > conflictListDetailLines {
			lines = append(lines, fmt.Sprintf("… %d more", len(current.Regions)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("lines %d-%d  %s → %s", r.StartLine, r.EndLine, r.StartLabel, r.EndLabel))
	}

	content := conflictListStyles.DetailTitle.Render("Keeps incoming side") + "\n" + strings.Join(lines, "\n")
	box := conflictListStyles.DetailBox
	if m.width > 0 {
		box = box.Width(m.width - 2)
	}
	return box.Render(content)
}

func (m ConflictListModel) renderShortHelp() string {
	keys := []string{
		"↑/↓ navigate",
		"space toggle",
		"a toggle all",
		"enter repair",
		"? help",
		"q quit",
	}
	return conflictListStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ConflictListModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Move up
  ↓/j      Move down

Selection:
  Space/Tab  Toggle current file
  a          Select or clear all files

Actions:
  Enter    Repair selected files (incoming side wins)

General:
  ?        Toggle full help
  q/Esc    Quit without repairing`
	return conflictListStyles.Help.Render(help)
}

// Result returns the result of the user interaction.
func (m ConflictListModel) Result() ConflictListResult {
	return m.result
}

// RunConflictList runs the interactive conflict list and returns the result.
func RunConflictList(matches []repair.Match) (ConflictListResult, error) {
	if len(matches) == 0 {
		return ConflictListResult{}, nil
	}

	m, err := run(NewConflictListModel(matches))
	if err != nil {
		return ConflictListResult{}, err
	}
	return m.Result(), nil
}
