package monitor

import (
	"fmt"

	"github.com/dchernopolskiy/Flare-sub001/internal/board"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// Boards returns a copy of the configured board list.
func (m *Monitor) Boards() []model.Board {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Board, len(m.boards))
	copy(out, m.boards)
	return out
}

// AddBoard creates a board from a URL, deriving its source tag, and persists
// the updated list.
func (m *Monitor) AddBoard(rawURL, name string, enabled bool) (model.Board, error) {
	b, err := board.New(rawURL, name, enabled)
	if err != nil {
		return model.Board{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.boards {
		if existing.URL == b.URL {
			return model.Board{}, fmt.Errorf("board %s already configured", b.URL)
		}
		if existing.Name == b.Name {
			return model.Board{}, fmt.Errorf("board name %q already in use", b.Name)
		}
	}

	m.boards = append(m.boards, b)
	m.states[b.Name] = stateFor(b)
	m.persistBoardsLocked()
	return b, nil
}

// RemoveBoard deletes a board by name, clears its tracking entries and any
// cached detection state for its domain, and re-merges without its results.
func (m *Monitor) RemoveBoard(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, b := range m.boards {
		if b.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("unknown board %q", name)
	}

	removed := m.boards[idx]
	m.boards = append(m.boards[:idx], m.boards[idx+1:]...)
	delete(m.results, name)
	delete(m.states, name)
	delete(m.errs, name)

	if err := m.store.ClearTracking(name); err != nil {
		m.logger.Warn("clearing tracking failed", "board", name, "error", err)
	}
	if domain := removed.Domain(); domain != "" && m.caches != nil {
		m.caches.Invalidate(domain)
	}

	m.mergeLocked()
	m.persistBoardsLocked()
	return nil
}

// SetBoardEnabled flips a board's enabled flag and persists the list. A
// disabled board keeps its last results in the merged set until removed.
func (m *Monitor) SetBoardEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.boards {
		if m.boards[i].Name != name {
			continue
		}
		m.boards[i].Enabled = enabled
		m.states[name] = stateFor(m.boards[i])
		m.persistBoardsLocked()
		return nil
	}
	return fmt.Errorf("unknown board %q", name)
}

// ImportBoards parses the line format "url | name | enabled|disabled",
// appending new boards. Malformed lines are returned; duplicates are
// silently skipped.
func (m *Monitor) ImportBoards(text string) (added []model.Board, failed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added, failed = board.Import(text, m.boards)
	if len(added) == 0 {
		return added, failed
	}

	for _, b := range added {
		m.boards = append(m.boards, b)
		m.states[b.Name] = stateFor(b)
	}
	m.persistBoardsLocked()
	return added, failed
}

// ExportBoards serializes the board list, one per line.
func (m *Monitor) ExportBoards() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return board.Export(m.boards)
}
