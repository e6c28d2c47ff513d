package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/klauern/conflictfix/internal/backup"
)

// BackupAction represents the action to perform on a selected backup.
type BackupAction int

const (
	// ActionNone means no action was taken (user quit).
	ActionNone BackupAction = iota
	// ActionRestore means the user wants to restore the selected backup.
	ActionRestore
	// ActionDelete means the user wants to delete the selected backup.
	ActionDelete
	// ActionVerify means the user wants to verify the selected backup.
	ActionVerify
)

// BackupListResult contains the result of the backup list interaction.
type BackupListResult struct {
	Action BackupAction
	Backup backup.Metadata
}

type backupListKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Restore  key.Binding
	Delete   key.Binding
	Verify   key.Binding
	Filter   key.Binding
	ClearFlt key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultBackupListKeyMap() backupListKeyMap {
	return backupListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Restore: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restore"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Verify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "verify"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		ClearFlt: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// BackupListModel is the BubbleTea model for browsing backups taken by
// repair. Restore and delete ask for confirmation; verify returns at once.
type BackupListModel struct {
	table       table.Model
	backups     []backup.Metadata
	filtered    []backup.Metadata
	keys        backupListKeyMap
	result      BackupListResult
	filter      string
	filtering   bool
	showHelp    bool
	confirmMode bool
	confirmMsg  string
	pathCol     int
	quitting    bool
}

var backupListStyles = struct {
	Title       lipgloss.Style
	Help        lipgloss.Style
	Filter      lipgloss.Style
	FilterInput lipgloss.Style
	Confirm     lipgloss.Style
	Status      lipgloss.Style
}{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Filter:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	FilterInput: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	Confirm:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(1, 2),
	Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
}

const (
	backupListIDWidth      = 28
	backupListRunWidth     = 20
	backupListPathWidth    = 40
	backupListCreatedWidth = 16
	backupListSizeWidth    = 8
)

func backupListColumns(totalWidth int) ([]table.Column, int) {
	pathWidth := backupListPathWidth
	if totalWidth > 0 {
		fixed := backupListIDWidth + backupListRunWidth + backupListCreatedWidth + backupListSizeWidth + 2*5
		pathWidth = max(totalWidth-fixed, 20)
	}
	return []table.Column{
		{Title: "ID", Width: backupListIDWidth},
		{Title: "Run", Width: backupListRunWidth},
		{Title: "File", Width: pathWidth},
		{Title: "Created", Width: backupListCreatedWidth},
		{Title: "Size", Width: backupListSizeWidth},
	}, pathWidth
}

// NewBackupListModel creates a backup list over backups, newest first.
func NewBackupListModel(backups []backup.Metadata) BackupListModel {
	columns, pathWidth := backupListColumns(0)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(backupsToRows(backups, pathWidth)),
		table.WithFocused(true),
		table.WithHeight(15),
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

	return BackupListModel{
		table:    t,
		backups:  backups,
		filtered: backups,
		keys:     defaultBackupListKeyMap(),
		pathCol:  pathWidth,
	}
}

func backupsToRows(backups []backup.Metadata, pathWidth int) []table.Row {
	rows := make([]table.Row, len(backups))
	for i, b := range backups {
		rows[i] = table.Row{
			b.ID,
			b.Run,
			truncatePath(b.SourcePath, pathWidth),
			humanize.Time(b.CreatedAt),
			humanize.Bytes(uint64(max(b.Size, 0))),
		}
	}
	return rows
}

// Init implements tea.Model.
func (m BackupListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BackupListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-8, 5))
		columns, pathWidth := backupListColumns(msg.Width)
		m.pathCol = pathWidth
		m.table.SetColumns(columns)
		m.table.SetRows(backupsToRows(m.filtered, m.pathCol))

	case tea.KeyMsg:
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y":
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
				m.confirmMsg = ""
				m.result = BackupListResult{}
			}
			return m, nil
		}

		if m.filtering {
			return m.updateFilter(msg), nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.result = BackupListResult{}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, nil

		case key.Matches(msg, m.keys.ClearFlt):
			m.filter = ""
			m.applyFilter()
			return m, nil

		case key.Matches(msg, m.keys.Restore):
			return m.confirm(ActionRestore, "Restore %s to %s? (y/n)"), nil

		case key.Matches(msg, m.keys.Delete):
			return m.confirm(ActionDelete, "Delete backup %s of %s? (y/n)"), nil

		case key.Matches(msg, m.keys.Verify):
			if selected, ok := m.current(); ok {
				m.result = BackupListResult{Action: ActionVerify, Backup: selected}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// confirm records action for the backup under the cursor and asks for a y/n.
// format receives the backup ID and source path.
func (m BackupListModel) confirm(action BackupAction, format string) BackupListModel {
	selected, ok := m.current()
	if !ok {
		return m
	}
	m.result = BackupListResult{Action: action, Backup: selected}
	m.confirmMode = true
	m.confirmMsg = fmt.Sprintf(format, selected.ID, selected.SourcePath)
	return m
}

func (m BackupListModel) updateFilter(msg tea.KeyMsg) BackupListModel {
	switch msg.String() {
	case "enter":
		m.filtering = false
	case "esc":
		m.filter = ""
		m.filtering = false
		m.applyFilter()
	case "backspace":
		if m.filter != "" {
			runes := []rune(m.filter)
			m.filter = string(runes[:len(runes)-1])
			m.applyFilter()
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.filter += string(msg.Runes)
			m.applyFilter()
		}
	}
	return m
}

func (m *BackupListModel) applyFilter() {
	if m.filter == "" {
		m.filtered = m.backups
	} else {
		var filtered []backup.Metadata
		needle := strings.ToLower(m.filter)
		for _, b := range m.backups {
			if strings.Contains(strings.ToLower(b.ID), needle) ||
				strings.Contains(strings.ToLower(b.Run), needle) ||
				strings.Contains(strings.ToLower(b.SourcePath), needle) {
				filtered = append(filtered, b)
			}
		}
		m.filtered = filtered
	}
	m.table.SetRows(backupsToRows(m.filtered, m.pathCol))
	m.table.SetCursor(0)
}

func (m BackupListModel) current() (backup.Metadata, bool) {
	cursor := m.table.Cursor()
	if cursor >= 0 && cursor < len(m.filtered) {
		return m.filtered[cursor], true
	}
	return backup.Metadata{}, false
}

// View implements tea.Model.
func (m BackupListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(backupListStyles.Title.Render("Backups"))
	b.WriteString("\n\n")

	if m.filter != "" || m.filtering {
		filterVal := backupListStyles.FilterInput.Render(m.filter)
		if m.filtering {
			filterVal += "█"
		}
		b.WriteString(backupListStyles.Filter.Render("Filter: ") + filterVal + "\n\n")
	}

	b.WriteString(m.table.View())
	if m.confirmMode {
		b.WriteString("\n\n")
		b.WriteString(backupListStyles.Confirm.Render(m.confirmMsg))
		return b.String()
	}
	b.WriteString("\n")

	status := fmt.Sprintf("%d backup(s)", len(m.filtered))
	if m.filter != "" {
		status = fmt.Sprintf("%d of %d backup(s) (filtered)", len(m.filtered), len(m.backups))
	}
	b.WriteString(backupListStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}
	return b.String()
}

func (m BackupListModel) renderShortHelp() string {
	keys := []string{
		"↑/↓ navigate",
		"r restore",
		"d delete",
		"v verify",
		"/ filter",
		"? help",
		"q quit",
	}
	return backupListStyles.Help.Render(strings.Join(keys, " • "))
}

func (m BackupListModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Move up
  ↓/j      Move down
  g/Home   Go to top
  G/End    Go to bottom

Actions:
  r        Restore selected backup to its original path
  d        Delete selected backup
  v        Verify selected backup against its hash

Filter:
  /        Filter by ID, run or file
  Esc      Clear filter
  Enter    Finish filtering

General:
  ?        Toggle full help
  q        Quit`
	return backupListStyles.Help.Render(help)
}

// Result returns the result of the user interaction.
func (m BackupListModel) Result() BackupListResult {
	return m.result
}

// RunBackupList runs the interactive backup list and returns the result.
func RunBackupList(backups []backup.Metadata) (BackupListResult, error) {
	if len(backups) == 0 {
		return BackupListResult{}, nil
	}

	m, err := run(NewBackupListModel(backups))
	if err != nil {
		return BackupListResult{}, err
	}
	return m.Result(), nil
}
