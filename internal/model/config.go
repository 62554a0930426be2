package model

import "time"

// Config holds every tunable of an analysis run. It replaces per-script
// globals and is passed explicitly into each pipeline stage.
type Config struct {
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Exclusion   ExclusionConfig   `yaml:"exclusion" mapstructure:"exclusion"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap" mapstructure:"bootstrap"`
	Power       PowerConfig       `yaml:"power" mapstructure:"power"`
	Recall      RecallConfig      `yaml:"recall" mapstructure:"recall"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// InputConfig controls how datasets are read. Locations may be local
// paths or http(s) URLs.
type InputConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes          int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per host; 0 disables limiting
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// ExclusionConfig controls trial filtering and outlier removal
type ExclusionConfig struct {
	PracticeMarker   string  `yaml:"practice_marker" mapstructure:"practice_marker"`     // Sentence text marking practice trials
	OutlierMethod    string  `yaml:"outlier_method" mapstructure:"outlier_method"`       // "iqr" or "sd"
	OutlierK         float64 `yaml:"outlier_k" mapstructure:"outlier_k"`                 // IQR (or SD) multiplier
	MinRegions       int     `yaml:"min_regions" mapstructure:"min_regions"`             // Trials with fewer regions are skipped
	WordBand         Band    `yaml:"word_band" mapstructure:"word_band"`                 // Word-level RT band
	SensitivityBands []Band  `yaml:"sensitivity_bands" mapstructure:"sensitivity_bands"` // Bands compared on modifier RT
	RobustnessDelta  float64 `yaml:"robustness_delta" mapstructure:"robustness_delta"`   // Max |Δd| across bands to call results robust
}

// BootstrapConfig controls the Cohen's d confidence interval
type BootstrapConfig struct {
	Iterations int     `yaml:"iterations" mapstructure:"iterations"`
	Alpha      float64 `yaml:"alpha" mapstructure:"alpha"`
	Seed       uint64  `yaml:"seed" mapstructure:"seed"`
}

// PowerConfig controls the sample size table
type PowerConfig struct {
	Alpha       float64   `yaml:"alpha" mapstructure:"alpha"`
	Power       float64   `yaml:"power" mapstructure:"power"`
	WithinR     float64   `yaml:"within_r" mapstructure:"within_r"` // Assumed within-subject correlation
	EffectSizes []float64 `yaml:"effect_sizes" mapstructure:"effect_sizes"`
}

// RecallConfig holds the lexicons used to code free recall
type RecallConfig struct {
	Facts      []string `yaml:"facts" mapstructure:"facts"`
	Negative   []string `yaml:"negative" mapstructure:"negative"`     // Direct derogation
	Neutral    []string `yaml:"neutral" mapstructure:"neutral"`
	Indirect   []string `yaml:"indirect" mapstructure:"indirect"`     // Indirect negative wording
	Derogatory []string `yaml:"derogatory" mapstructure:"derogatory"` // Belittling wording
	Extended   []string `yaml:"extended" mapstructure:"extended"`     // Added to negative for the extended count
	FalseInfo  []string `yaml:"false_info" mapstructure:"false_info"` // Content only present in implausible sentences
}

// CacheConfig controls caching of parsed datasets
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Empty means the user cache directory
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig controls where results are written
type OutputConfig struct {
	Dir        string  `yaml:"dir" mapstructure:"dir"`
	SQLitePath string  `yaml:"sqlite_path" mapstructure:"sqlite_path"` // Optional results database
	Alpha      float64 `yaml:"alpha" mapstructure:"alpha"`             // Significance level for signals
	Verbose    bool    `yaml:"verbose" mapstructure:"verbose"`
}

// ConcurrencyConfig controls parallel work
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Bootstrap and batch workers
}

// DefaultConfig returns the settings used in the write-up
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "sprstat/1.0",
			MaxBytes:          64 << 20,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Exclusion: ExclusionConfig{
			PracticeMarker: "연습",
			OutlierMethod:  "iqr",
			OutlierK:       2.5,
			MinRegions:     4,
			WordBand:       Band{Lower: 200, Upper: 3000},
			SensitivityBands: []Band{
				{Lower: 200, Upper: 3000},
				{Lower: 200, Upper: 1600},
			},
			RobustnessDelta: 0.05,
		},
		Bootstrap: BootstrapConfig{
			Iterations: 10000,
			Alpha:      0.05,
			Seed:       42,
		},
		Power: PowerConfig{
			Alpha:       0.05,
			Power:       0.80,
			WithinR:     0.5,
			EffectSizes: []float64{0.2, 0.5, 0.8},
		},
		Recall: RecallConfig{
			Facts: []string{
				"중앙아시아", "협곡", "산악", "반지하", "흙", "돌",
				"산양", "오리", "정령", "의식", "장인", "도기", "뼈",
				"허브", "노래", "짧은", "반복", "유목", "정착",
			},
			Negative:   []string{"저급", "야만", "후진", "열등", "미개", "더러", "무식", "조잡"},
			Neutral:    []string{"생활", "문화", "전통", "기술", "예술", "음식", "의식"},
			Indirect:   []string{"천박", "무지", "수준 낮", "낙후", "원시", "조악"},
			Derogatory: []string{"하찮", "졸렬", "단순", "부족"},
			Extended: []string{
				"부족", "낙후", "원시", "천박", "졸렬", "하찮", "조악",
				"빈약", "단순", "거칠", "투박", "촌스러", "멀다", "떨어지",
				"못하", "약하", "적은", "부실", "허술",
			},
			FalseInfo: []string{
				"금속", "고층", "사막", "날개", "날아", "비행", "점프", "뛰어넘",
				"금", "바꾼", "흙을 먹", "씹어먹", "물에 잠기", "떨어져", "재탄생",
				"매일 이동", "조립", "몸을 갖다대",
			},
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Dir:   "./sprstat-results",
			Alpha: 0.05,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
