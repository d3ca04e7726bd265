package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nrebound/trader/internal/market"
)

const timeLayout = "2006-01-02 15:04:05"

var header = []string{"id", "time", "action", "symbol", "name", "price", "shares", "note"}

// TradeRecord is one audit-trail row. Records are only ever appended.
type TradeRecord struct {
	ID     string
	Time   time.Time
	Action string // "BUY" or "SELL"
	Symbol string
	Name   string
	Price  float64
	Shares int
	Note   string
}

// Ledger appends trade records to a CSV file, writing the header exactly
// once when the file is created.
type Ledger struct {
	path string
}

func New(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, market.NewPersistenceError(path, err)
	}
	return &Ledger{path: path}, nil
}

// Append writes one record. A missing ID is filled in.
func (l *Ledger) Append(rec TradeRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return market.NewPersistenceError(l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return market.NewPersistenceError(l.path, err)
		}
	}
	row := []string{
		rec.ID,
		rec.Time.Format(timeLayout),
		rec.Action,
		rec.Symbol,
		rec.Name,
		strconv.FormatFloat(rec.Price, 'f', 2, 64),
		strconv.Itoa(rec.Shares),
		rec.Note,
	}
	if err := w.Write(row); err != nil {
		return market.NewPersistenceError(l.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return market.NewPersistenceError(l.path, err)
	}
	return nil
}

// ReadAll returns every record in append order.
func (l *Ledger) ReadAll() ([]TradeRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, market.NewDataUnavailableError(l.path, "cannot open ledger", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, market.NewParseError(l.path, "malformed ledger", err)
	}

	var recs []TradeRecord
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) != len(header) {
			return nil, market.NewParseError(l.path, fmt.Sprintf("row %d has %d columns", i+1, len(row)), nil)
		}
		ts, err := time.Parse(timeLayout, row[1])
		if err != nil {
			return nil, market.NewParseError(l.path, fmt.Sprintf("row %d time", i+1), err)
		}
		price, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, market.NewParseError(l.path, fmt.Sprintf("row %d price", i+1), err)
		}
		shares, err := strconv.Atoi(row[6])
		if err != nil {
			return nil, market.NewParseError(l.path, fmt.Sprintf("row %d shares", i+1), err)
		}
		recs = append(recs, TradeRecord{
			ID: row[0], Time: ts, Action: row[2], Symbol: row[3],
			Name: row[4], Price: price, Shares: shares, Note: row[7],
		})
	}
	return recs, nil
}
