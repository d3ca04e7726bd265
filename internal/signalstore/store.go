package signalstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
)

const (
	filePrefix = "n_rebound_signals_"
	fileSuffix = ".csv"
	dateLayout = "2006-01-02"
)

var header = []string{
	"symbol", "name", "detection_date", "limit_up_date",
	"current_price", "range_position_pct", "pullback_pct",
}

// Store persists signal sets as one CSV per scan run, named with the run
// date. The newest file by modification time is authoritative.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, market.NewPersistenceError(dir, err)
	}
	return &Store{dir: dir}, nil
}

// PathFor returns the signal set path for a run date.
func (s *Store) PathFor(runDate time.Time) string {
	return filepath.Join(s.dir, filePrefix+runDate.Format("20060102")+fileSuffix)
}

// Write sorts signals by pullback percent descending and rewrites the whole
// set atomically. Called for every incremental flush and once at scan end, so
// a crashed scan still leaves a usable partial set behind.
func (s *Store) Write(runDate time.Time, signals []market.Signal) error {
	sorted := make([]market.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PullbackPct > sorted[j].PullbackPct
	})

	path := s.PathFor(runDate)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return market.NewPersistenceError(path, err)
	}

	w := csv.NewWriter(f)
	rows := [][]string{header}
	for _, sig := range sorted {
		rows = append(rows, []string{
			sig.Symbol,
			sig.Name,
			sig.DetectionDate.Format(dateLayout),
			sig.LimitUpDate.Format(dateLayout),
			strconv.FormatFloat(sig.CurrentPrice, 'f', 2, 64),
			strconv.FormatFloat(sig.RangePositionPct, 'f', 4, 64),
			strconv.FormatFloat(sig.PullbackPct, 'f', 2, 64),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return market.NewPersistenceError(path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return market.NewPersistenceError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return market.NewPersistenceError(path, err)
	}
	return nil
}

// LoadLatest reads the newest signal set by file modification time. A missing
// store yields a data_unavailable error.
func (s *Store) LoadLatest() ([]market.Signal, time.Time, error) {
	path, mtime, err := s.latestFile()
	if err != nil {
		return nil, time.Time{}, err
	}
	signals, err := s.load(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return signals, mtime, nil
}

// LatestModTime returns the modification time of the newest signal set, or a
// data_unavailable error when none exists. The staleness scheduler keys off
// this.
func (s *Store) LatestModTime() (time.Time, error) {
	_, mtime, err := s.latestFile()
	return mtime, err
}

// GC removes signal sets older than the retention window. Run at scan start.
func (s *Store) GC(retention time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-retention)
	for _, e := range entries {
		if e.IsDir() || !isSignalFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.dir, e.Name())
			if err := os.Remove(path); err == nil {
				observ.Log("signalset_expired", map[string]any{"path": path})
			}
		}
	}
}

func (s *Store) latestFile() (string, time.Time, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", time.Time{}, market.NewDataUnavailableError(s.dir, "signal store unreadable", err)
	}
	var newest string
	var newestAt time.Time
	for _, e := range entries {
		if e.IsDir() || !isSignalFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = filepath.Join(s.dir, e.Name())
			newestAt = info.ModTime()
		}
	}
	if newest == "" {
		return "", time.Time{}, market.NewDataUnavailableError(s.dir, "no signal set found", nil)
	}
	return newest, newestAt, nil
}

func (s *Store) load(path string) ([]market.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, market.NewDataUnavailableError(path, "cannot open signal set", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, market.NewParseError(path, "malformed signal set", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var signals []market.Signal
	for i, row := range rows[1:] { // skip header
		if len(row) != len(header) {
			return nil, market.NewParseError(path, fmt.Sprintf("row %d has %d columns", i+2, len(row)), nil)
		}
		sig, err := parseRow(row)
		if err != nil {
			return nil, market.NewParseError(path, fmt.Sprintf("row %d", i+2), err)
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func parseRow(row []string) (market.Signal, error) {
	var sig market.Signal
	var err error
	sig.Symbol = row[0]
	sig.Name = row[1]
	if sig.DetectionDate, err = time.Parse(dateLayout, row[2]); err != nil {
		return sig, err
	}
	if sig.LimitUpDate, err = time.Parse(dateLayout, row[3]); err != nil {
		return sig, err
	}
	if sig.CurrentPrice, err = strconv.ParseFloat(row[4], 64); err != nil {
		return sig, err
	}
	if sig.RangePositionPct, err = strconv.ParseFloat(row[5], 64); err != nil {
		return sig, err
	}
	if sig.PullbackPct, err = strconv.ParseFloat(row[6], 64); err != nil {
		return sig, err
	}
	return sig, nil
}

func isSignalFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
