package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
)

func firstBatch(t *testing.T) *engine.Batch {
	t.Helper()
	reg, err := schema.LoadFile("../../schema/testdata/jon_gui_state.yaml")
	if err != nil {
		t.Fatal(err)
	}
	e, err := engine.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Process(&snapshot.Snapshot{
		Seq:   1,
		Time:  time.Unix(1, 0),
		State: map[string]any{"compass": map[string]any{"azimuth": 1600, "units_idx": 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func update(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var tm tea.Model
		tm, cmd = m.Update(msg)
		m = tm.(Model)
	}
	return m, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	m := New("jon")
	if v := m.View(); !strings.Contains(v, "waiting for data") {
		t.Errorf("empty view: %q", v)
	}
	m, _ = update(t, m,
		BatchMsg{Batch: firstBatch(t)},
		tea.WindowSizeMsg{Width: 80, Height: 5},
		key("j"),
		key("enter"),
	)
	r, ok := m.Tree().Selected()
	if !ok || r.Path != "compass" || !r.Expanded {
		t.Fatalf("selected %+v", r)
	}
	m, _ = update(t, m, key("down"), key("down"), key("down"))
	if got := m.Tree().Offset(); got != 2 {
		t.Errorf("offset: got %d", got)
	}
	v := m.View()
	for _, s := range []string{"jon  #1", "bank", "7 missing"} {
		if !strings.Contains(v, s) {
			t.Errorf("view lacks %q:\n%s", s, v)
		}
	}
	if strings.Contains(v, "header") {
		t.Errorf("scrolled view still shows the first row:\n%s", v)
	}
}

func TestModelQuit(t *testing.T) {
	_, cmd := update(t, New("jon"), key("q"))
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q does not quit")
	}
}

func TestModelErr(t *testing.T) {
	m, _ := update(t, New("jon"), ErrMsg{Err: errors.New("connection refused")})
	if v := m.View(); !strings.Contains(v, "connection refused") {
		t.Errorf("error not shown:\n%s", v)
	}
	b := firstBatch(t)
	m, _ = update(t, m, BatchMsg{Batch: b}, BatchMsg{Batch: b})
	if v := m.View(); !strings.Contains(v, "out of order") {
		t.Errorf("out of order batch not reported:\n%s", v)
	}
}
