package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nrebound/trader/internal/market"
)

// Position is one open paper holding. At most one exists per symbol; closing
// it is terminal, a later BUY creates a fresh instance.
type Position struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	BuyDate  string  `json:"buy_date"` // YYYY-MM-DD, local exchange date
	BuyPrice float64 `json:"buy_price"`
	Shares   int     `json:"shares"`
	Cost     float64 `json:"cost"`
}

type state struct {
	Version   int64               `json:"version"`
	UpdatedAt string              `json:"updated_at"`
	Capital   float64             `json:"capital"`
	Positions map[string]Position `json:"positions"`
}

// Manager owns the portfolio snapshot and its persistence. One process, one
// writer: a second broker instance pointed at the same file would race the
// read-modify-write cycle, so deployment keeps it singular.
type Manager struct {
	mu       sync.RWMutex
	filePath string
	st       state
}

func NewManager(filePath string, capital float64) *Manager {
	return &Manager{
		filePath: filePath,
		st: state{
			Capital:   capital,
			Positions: map[string]Position{},
		},
	}
}

// Load reads the snapshot from disk; a missing file starts an empty book.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return m.saveLocked()
		}
		return fmt.Errorf("read portfolio: %w", err)
	}
	capital := m.st.Capital
	if err := json.Unmarshal(data, &m.st); err != nil {
		return fmt.Errorf("unmarshal portfolio: %w", err)
	}
	if m.st.Positions == nil {
		m.st.Positions = map[string]Position{}
	}
	if m.st.Capital == 0 {
		m.st.Capital = capital
	}
	return nil
}

// Open adds a position after enforcing the two entry invariants: no second
// position for a held symbol, and total cost never exceeding capital.
func (m *Manager) Open(pos Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.st.Positions[pos.Symbol]; held {
		return fmt.Errorf("position already open for %s", pos.Symbol)
	}
	if m.totalCostLocked()+pos.Cost > m.st.Capital {
		return fmt.Errorf("insufficient capital: used %.2f + %.2f > %.2f",
			m.totalCostLocked(), pos.Cost, m.st.Capital)
	}
	m.st.Positions[pos.Symbol] = pos
	return m.saveLocked()
}

// Close removes a position and persists the snapshot.
func (m *Manager) Close(symbol string) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, held := m.st.Positions[symbol]
	if !held {
		return Position{}, fmt.Errorf("no open position for %s", symbol)
	}
	delete(m.st.Positions, symbol)
	if err := m.saveLocked(); err != nil {
		return Position{}, err
	}
	return pos, nil
}

func (m *Manager) Has(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, held := m.st.Positions[symbol]
	return held
}

// Positions returns a copy of all open positions.
func (m *Manager) Positions() map[string]Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Position, len(m.st.Positions))
	for sym, pos := range m.st.Positions {
		out[sym] = pos
	}
	return out
}

func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.st.Positions)
}

func (m *Manager) TotalCost() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalCostLocked()
}

func (m *Manager) Capital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Capital
}

func (m *Manager) totalCostLocked() float64 {
	total := 0.0
	for _, pos := range m.st.Positions {
		total += pos.Cost
	}
	return total
}

// saveLocked writes the full snapshot atomically: temp file then rename.
func (m *Manager) saveLocked() error {
	m.st.Version++
	m.st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(m.st, "", "  ")
	if err != nil {
		return market.NewPersistenceError(m.filePath, err)
	}
	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return market.NewPersistenceError(m.filePath, err)
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		os.Remove(tmp)
		return market.NewPersistenceError(m.filePath, err)
	}
	return nil
}
