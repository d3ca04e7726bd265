package schedule

import (
	"time"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/signalstore"
)

// NeedsScan reports whether the newest signal set is missing or older than
// maxAge. This is the whole of the scheduler: a freshness check before the
// live loops start, not a cron.
func NeedsScan(store *signalstore.Store, maxAge time.Duration) bool {
	mtime, err := store.LatestModTime()
	if err != nil {
		if market.IsType(err, market.ErrDataUnavailable) {
			observ.Log("signalset_missing", nil)
			return true
		}
		observ.Error("signalset_stat_failed", err, nil)
		return true
	}
	age := time.Since(mtime)
	if age > maxAge {
		observ.Log("signalset_stale", map[string]any{
			"age_hours": age.Hours(), "max_hours": maxAge.Hours(),
		})
		return true
	}
	return false
}
