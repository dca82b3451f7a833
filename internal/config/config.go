// Package config holds the engine's project configuration: ingestion
// limits, compaction/retrieval tuning, and orchestrator resource caps. It
// is loaded from a `.codeintel.kdl` file in KDL dialect
// (github.com/sblinch/kdl-go), falling back to built-in defaults when no
// file is present.
package config

import (
	"fmt"
)

// Config is the fully resolved, in-memory project configuration.
type Config struct {
	Version      int
	Project      Project
	Index        Index
	Performance  Performance
	Compaction   Compaction
	Search       Search
	Orchestrator Orchestrator
	Include      []string
	Exclude      []string
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize      int64  // per-file byte cap (§6 default 1 MiB)
	MaxTotalSizeMB   int64  // total ingested-bytes cap; not enforced by the Walker
	MaxFileCount     int    // total file cap
	FollowSymlinks   bool
	RespectGitignore bool
	WatchMode        bool // parsed only: nothing in this module starts a corefs.Watcher from it
	WatchDebounceMs  int
}

type Performance struct {
	MaxMemoryMB         int
	MaxGoroutines       int
	ParallelFileWorkers int // 0 = auto-detect (GOMAXPROCS)
	IndexingTimeoutSec  int
}

// Compaction holds the per-level parser-tree cache sizes (§9 "Open
// Questions"). engine.New sizes every language's tree cache from
// LightCacheSize; MediumCacheSize and HardCacheSize are validated but not
// read by any component.
type Compaction struct {
	LightCacheSize  int
	MediumCacheSize int
	HardCacheSize   int
	LightBodyLines  int // bodies longer than this are dropped at Light level
}

type Search struct {
	DefaultContextLines int
	MaxResults          int
	EnableFuzzy         bool
	Ranking             SearchRanking
}

// SearchRanking holds per-field and per-file-type score adjustments. Only
// Default fills it in (LoadKDL has no search block), and neither the
// Full-Text Layer's BM25 boosts (§4.4, fulltext.Field.Boost) nor the hybrid
// ranker (§4.8) reads these values.
type SearchRanking struct {
	SymbolFieldBoost float64
	PathFieldBoost   float64
	ContentBoost     float64
	CodeFileBoost    float64
	DocFilePenalty   float64
	ConfigFileBoost  float64
}

// Orchestrator sizes the plan executor's resource controls (§4.9, §5).
type Orchestrator struct {
	MaxConcurrency          int
	MaxRetries              int
	CircuitBreakerThreshold int
	CircuitBreakerResetSec  int
	AgentTimeoutSec         int
	MemoryPressureMB        int
}

// Validate reports configuration values outside sane bounds.
func (c *Config) Validate() error {
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index.max_file_size must be positive, got %d", c.Index.MaxFileSize)
	}
	if c.Orchestrator.MaxConcurrency <= 0 {
		return fmt.Errorf("orchestrator.max_concurrency must be positive, got %d", c.Orchestrator.MaxConcurrency)
	}
	if c.Compaction.LightCacheSize <= 0 || c.Compaction.MediumCacheSize <= 0 || c.Compaction.HardCacheSize <= 0 {
		return fmt.Errorf("compaction cache sizes must be positive")
	}
	return nil
}

// Default returns the built-in configuration, rooted at root.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Index: Index{
			MaxFileSize:      1 * 1024 * 1024,
			MaxTotalSizeMB:   500,
			MaxFileCount:     20000,
			FollowSymlinks:   false,
			RespectGitignore: true,
			WatchMode:        false,
			WatchDebounceMs:  150,
		},
		Performance: Performance{
			MaxMemoryMB:         1024,
			MaxGoroutines:       8,
			ParallelFileWorkers: 0,
			IndexingTimeoutSec:  120,
		},
		Compaction: Compaction{
			// §9 Open Question: Hard gets the smallest value since its
			// compacted payload is the smallest of the three levels, but
			// it is never zero. Only LightCacheSize is read (by engine.New).
			LightCacheSize:  256,
			MediumCacheSize: 128,
			HardCacheSize:   64,
			LightBodyLines:  25,
		},
		Search: Search{
			DefaultContextLines: 2,
			MaxResults:          100,
			EnableFuzzy:         true,
			Ranking: SearchRanking{
				SymbolFieldBoost: 3.0,
				PathFieldBoost:   2.0,
				ContentBoost:     1.0,
				CodeFileBoost:    50.0,
				DocFilePenalty:   -20.0,
				ConfigFileBoost:  10.0,
			},
		},
		Orchestrator: Orchestrator{
			MaxConcurrency:          4,
			MaxRetries:              2,
			CircuitBreakerThreshold: 5,
			CircuitBreakerResetSec:  30,
			AgentTimeoutSec:         60,
			MemoryPressureMB:        1024,
		},
		Include: []string{},
		Exclude: []string{
			".git", ".hg", ".svn",
			"node_modules", "vendor", "target", "dist", "build", ".venv",
		},
	}
}
