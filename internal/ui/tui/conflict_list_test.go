package tui

import (
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/klauern/conflictfix/internal/markers"
	"github.com/klauern/conflictfix/internal/repair"
)

func testMatches() []repair.Match {
	return []repair.Match{
		{
			Path: "src/a.ts",
			Regions: []markers.Region{
				{StartLine: 2, EndLine: 6, StartLabel: "HEAD", EndLabel: "feature"},
			},
		},
		{
			Path: "src/b.json",
			Regions: []markers.Region{
				{StartLine: 1, EndLine: 5, StartLabel: "HEAD", EndLabel: "main"},
				{StartLine: 9, EndLine: 13, StartLabel: "HEAD", EndLabel: "main"},
			},
		},
	}
}

func TestNewConflictListModel_AllSelected(t *testing.T) {
	m := NewConflictListModel(testMatches())

	if len(m.matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(m.matches))
	}
	if m.selectedCount() != 2 {
		t.Errorf("expected every file selected by default, got %d", m.selectedCount())
	}

	rows := m.rows()
	if rows[0][0] != "[x]" || rows[1][2] != "2" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestConflictListModel_Toggle(t *testing.T) {
	m := NewConflictListModel(testMatches())

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	cm := newModel.(ConflictListModel)

	if cm.selected["src/a.ts"] {
		t.Error("expected src/a.ts to be deselected after space")
	}
	if !cm.selected["src/b.json"] {
		t.Error("expected src/b.json to stay selected")
	}

	// Move down and toggle the second file too.
	newModel, _ = cm.Update(tea.KeyMsg{Type: tea.KeyDown})
	newModel, _ = newModel.(ConflictListModel).Update(tea.KeyMsg{Type: tea.KeySpace})
	cm = newModel.(ConflictListModel)

	if cm.selectedCount() != 0 {
		t.Errorf("expected 0 selected, got %d", cm.selectedCount())
	}
}

func TestConflictListModel_ToggleAll(t *testing.T) {
	m := NewConflictListModel(testMatches())

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	cm := newModel.(ConflictListModel)
	if cm.selectedCount() != 0 {
		t.Errorf("expected toggle all to clear a full selection, got %d", cm.selectedCount())
	}

	newModel, _ = cm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	cm = newModel.(ConflictListModel)
	if cm.selectedCount() != 2 {
		t.Errorf("expected toggle all to select every file, got %d", cm.selectedCount())
	}
}

func TestConflictListModel_Confirm(t *testing.T) {
	m := NewConflictListModel(testMatches())

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	newModel, cmd := newModel.(ConflictListModel).Update(tea.KeyMsg{Type: tea.KeyEnter})
	cm := newModel.(ConflictListModel)

	if cmd == nil {
		t.Fatal("expected quit command after enter")
	}
	if !cm.quitting {
		t.Error("expected model to be quitting")
	}

	result := cm.Result()
	if result.Action != ConflictActionRepair {
		t.Errorf("expected ConflictActionRepair, got %v", result.Action)
	}
	if !reflect.DeepEqual(result.Paths(), []string{"src/b.json"}) {
		t.Errorf("expected only src/b.json selected, got %v", result.Paths())
	}
}

func TestConflictListModel_QuitKey(t *testing.T) {
	m := NewConflictListModel(testMatches())

	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	cm := newModel.(ConflictListModel)

	if !cm.quitting {
		t.Error("expected model to be quitting after pressing 'q'")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if cm.Result().Action != ConflictActionNone {
		t.Errorf("expected ConflictActionNone, got %v", cm.Result().Action)
	}
	if cm.View() != "" {
		t.Error("expected empty view after quitting")
	}
}

func TestConflictListModel_HelpToggle(t *testing.T) {
	m := NewConflictListModel(testMatches())

	if strings.Contains(m.View(), "Quit without repairing") {
		t.Error("full help should be hidden initially")
	}

	newModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	cm := newModel.(ConflictListModel)

	if !cm.showHelp {
		t.Error("expected help to be shown after pressing '?'")
	}
	if !strings.Contains(cm.View(), "Quit without repairing") {
		t.Error("expected full help in view")
	}
}

func TestConflictListModel_View(t *testing.T) {
	m := NewConflictListModel(testMatches())
	view := m.View()

	for _, want := range []string{"Conflicted files", "src/a.ts", "lines 2-6", "feature", "2 of 2 selected"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q\n%s", want, view)
		}
	}
}

func TestConflictListModel_WindowResize(t *testing.T) {
	m := NewConflictListModel(testMatches())

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	cm := newModel.(ConflictListModel)

	if cm.width != 120 {
		t.Errorf("expected width 120, got %d", cm.width)
	}
	wantPath := 120 - conflictListCheckboxWidth - conflictListRegionsWidth - conflictListColumnPadding*3
	if cm.pathCol != wantPath {
		t.Errorf("expected path column %d, got %d", wantPath, cm.pathCol)
	}
}

func TestConflictListModel_Init(t *testing.T) {
	if cmd := NewConflictListModel(testMatches()).Init(); cmd != nil {
		t.Error("expected nil command from Init")
	}
}

func TestRunConflictList_Empty(t *testing.T) {
	result, err := RunConflictList(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != ConflictActionNone || len(result.Selected) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
