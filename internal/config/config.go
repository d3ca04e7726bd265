package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Screener struct {
	MinHistoryBars   int     `yaml:"min_history_bars"`
	LookbackDays     int     `yaml:"lookback_days"`
	LimitUpPct       float64 `yaml:"limit_up_pct"`
	RangeCeiling     float64 `yaml:"range_ceiling"`
	UpperShadowLimit float64 `yaml:"upper_shadow_limit"`
	VolShrinkRatio   float64 `yaml:"vol_shrink_ratio"`
	Workers          int     `yaml:"workers"`
	FlushEvery       int     `yaml:"flush_every"`
	RetentionDays    int     `yaml:"retention_days"`
}

type Radar struct {
	IntervalSec     int     `yaml:"interval_sec"`
	TriggerPct      float64 `yaml:"trigger_pct"`
	CooldownSec     int     `yaml:"cooldown_sec"`
	RangePosCeiling float64 `yaml:"range_pos_ceiling"` // 1.0 disables the filter
}

type Broker struct {
	TotalCapital       float64 `yaml:"total_capital"`
	SinglePositionCash float64 `yaml:"single_position_cash"`
	TakeProfitPct      float64 `yaml:"take_profit_pct"`
	StopLossPct        float64 `yaml:"stop_loss_pct"`
	MaxHoldDays        int     `yaml:"max_hold_days"`
	EntryFloorPct      float64 `yaml:"entry_floor_pct"`
	EntryCeilingPct    float64 `yaml:"entry_ceiling_pct"`
	DebounceSec        int     `yaml:"debounce_sec"`
	AICoefficient      float64 `yaml:"ai_coefficient"`
	BuyThreshold       float64 `yaml:"buy_threshold"`
	LotSize            int     `yaml:"lot_size"`
	IntervalSec        int     `yaml:"interval_sec"`
	IdleIntervalSec    int     `yaml:"idle_interval_sec"`
	StalenessHours     int     `yaml:"staleness_hours"`

	// Whether a capital-rejected entry still consumes the debounce window,
	// like a score-rejected one does.
	DebounceOnCapitalReject *bool `yaml:"debounce_on_capital_reject"`
}

type Scorer struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type Data struct {
	Dir             string  `yaml:"dir"`
	QuoteChunkSize  int     `yaml:"quote_chunk_size"`
	QuoteCacheTTLMs int     `yaml:"quote_cache_ttl_ms"`
	FetchTimeoutSec int     `yaml:"fetch_timeout_sec"`
	RatePerSec      float64 `yaml:"rate_per_sec"`
	UniverseURL     string  `yaml:"universe_url"`
	UniverseFile    string  `yaml:"universe_file"`
	HistoryURL      string  `yaml:"history_url"`
	QuoteURL        string  `yaml:"quote_url"`
}

type Notify struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

type Root struct {
	Screener Screener `yaml:"screener"`
	Radar    Radar    `yaml:"radar"`
	Broker   Broker   `yaml:"broker"`
	Scorer   Scorer   `yaml:"scorer"`
	Data     Data     `yaml:"data"`
	Notify   Notify   `yaml:"notify"`
}

// Load reads the YAML config, fills defaults, then applies NREB_* environment
// overrides (a .env file next to the binary is honored via godotenv).
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return c, err
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}
	applyDefaults(&c)
	applyEnv(&c)
	return c, nil
}

func applyDefaults(c *Root) {
	s := &c.Screener
	if s.MinHistoryBars == 0 {
		s.MinHistoryBars = 60
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = 7
	}
	if s.LimitUpPct == 0 {
		s.LimitUpPct = 9.5
	}
	if s.RangeCeiling == 0 {
		s.RangeCeiling = 0.6
	}
	if s.UpperShadowLimit == 0 {
		s.UpperShadowLimit = 0.06
	}
	if s.VolShrinkRatio == 0 {
		s.VolShrinkRatio = 1.2
	}
	if s.Workers == 0 {
		s.Workers = 4
	}
	if s.FlushEvery == 0 {
		s.FlushEvery = 5
	}
	if s.RetentionDays == 0 {
		s.RetentionDays = 3
	}

	r := &c.Radar
	if r.IntervalSec == 0 {
		r.IntervalSec = 3
	}
	if r.TriggerPct == 0 {
		r.TriggerPct = 0.5
	}
	if r.CooldownSec == 0 {
		r.CooldownSec = 1800
	}
	if r.RangePosCeiling == 0 {
		r.RangePosCeiling = 1.0
	}

	b := &c.Broker
	if b.TotalCapital == 0 {
		b.TotalCapital = 100000
	}
	if b.SinglePositionCash == 0 {
		b.SinglePositionCash = 5000
	}
	if b.TakeProfitPct == 0 {
		b.TakeProfitPct = 0.08
	}
	if b.StopLossPct == 0 {
		b.StopLossPct = -0.05
	}
	if b.MaxHoldDays == 0 {
		b.MaxHoldDays = 5
	}
	if b.EntryFloorPct == 0 {
		b.EntryFloorPct = 0.1
	}
	if b.EntryCeilingPct == 0 {
		b.EntryCeilingPct = 1.5
	}
	if b.DebounceSec == 0 {
		b.DebounceSec = 1800
	}
	if b.AICoefficient == 0 {
		b.AICoefficient = 1.1
	}
	if b.BuyThreshold == 0 {
		b.BuyThreshold = 0.55
	}
	if b.LotSize == 0 {
		b.LotSize = 100
	}
	if b.IntervalSec == 0 {
		b.IntervalSec = 3
	}
	if b.IdleIntervalSec == 0 {
		b.IdleIntervalSec = 300
	}
	if b.StalenessHours == 0 {
		b.StalenessHours = 20
	}
	if b.DebounceOnCapitalReject == nil {
		v := true
		b.DebounceOnCapitalReject = &v
	}

	if c.Scorer.TimeoutSec == 0 {
		c.Scorer.TimeoutSec = 10
	}

	d := &c.Data
	if d.Dir == "" {
		d.Dir = "data"
	}
	if d.QuoteChunkSize == 0 {
		d.QuoteChunkSize = 80
	}
	if d.QuoteCacheTTLMs == 0 {
		d.QuoteCacheTTLMs = 2000
	}
	if d.FetchTimeoutSec == 0 {
		d.FetchTimeoutSec = 5
	}
	if d.RatePerSec == 0 {
		d.RatePerSec = 10
	}
	if d.QuoteURL == "" {
		d.QuoteURL = "http://hq.sinajs.cn/list="
	}
}

func applyEnv(c *Root) {
	// .env is optional; real environment always wins over it.
	_ = godotenv.Load()

	if v := os.Getenv("NREB_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("NREB_SCORER_URL"); v != "" {
		c.Scorer.URL = v
	}
	if v := os.Getenv("NREB_TELEGRAM_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv("NREB_TELEGRAM_CHAT"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
}
