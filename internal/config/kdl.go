// KDL loading, adapted from internal/config/kdl_config.go: the same
// document-node walking style and helper shape, generalized to this
// package's Config fields (orchestrator resource caps, compaction cache
// sizes) instead of a search-ranking-only schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL reads `.codeintel.kdl` under projectRoot, if present, and returns
// a Config seeded with defaults and overridden by the file's contents. A
// missing file is not an error: nil, nil is returned and callers should
// fall back to Default(projectRoot).
func LoadKDL(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".codeintel.kdl")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default(projectRoot)
	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "index":
			applyIndex(cfg, n.Children)
		case "performance":
			applyPerformance(cfg, n.Children)
		case "compaction":
			applyCompaction(cfg, n.Children)
		case "orchestrator":
			applyOrchestrator(cfg, n.Children)
		case "include":
			cfg.Include = append(cfg.Include, collectStrings(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStrings(n)...)
		}
	}

	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	}
	return cfg, nil
}

func applyIndex(cfg *Config, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "max_file_size":
			if s, ok := firstString(cn); ok {
				if sz, err := parseSize(s); err == nil {
					cfg.Index.MaxFileSize = sz
				}
			} else if v, ok := firstInt(cn); ok {
				cfg.Index.MaxFileSize = int64(v)
			}
		case "max_total_size_mb":
			if v, ok := firstInt(cn); ok {
				cfg.Index.MaxTotalSizeMB = int64(v)
			}
		case "max_file_count":
			if v, ok := firstInt(cn); ok {
				cfg.Index.MaxFileCount = v
			}
		case "follow_symlinks":
			if b, ok := firstBool(cn); ok {
				cfg.Index.FollowSymlinks = b
			}
		case "respect_gitignore":
			if b, ok := firstBool(cn); ok {
				cfg.Index.RespectGitignore = b
			}
		case "watch_mode":
			if b, ok := firstBool(cn); ok {
				cfg.Index.WatchMode = b
			}
		case "watch_debounce_ms":
			if v, ok := firstInt(cn); ok {
				cfg.Index.WatchDebounceMs = v
			}
		}
	}
}

func applyPerformance(cfg *Config, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "max_memory_mb":
			if v, ok := firstInt(cn); ok {
				cfg.Performance.MaxMemoryMB = v
			}
		case "max_goroutines":
			if v, ok := firstInt(cn); ok {
				cfg.Performance.MaxGoroutines = v
			}
		case "parallel_file_workers":
			if v, ok := firstInt(cn); ok {
				cfg.Performance.ParallelFileWorkers = v
			}
		case "indexing_timeout_sec":
			if v, ok := firstInt(cn); ok {
				cfg.Performance.IndexingTimeoutSec = v
			}
		}
	}
}

func applyCompaction(cfg *Config, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "light_cache_size":
			if v, ok := firstInt(cn); ok {
				cfg.Compaction.LightCacheSize = v
			}
		case "medium_cache_size":
			if v, ok := firstInt(cn); ok {
				cfg.Compaction.MediumCacheSize = v
			}
		case "hard_cache_size":
			if v, ok := firstInt(cn); ok {
				cfg.Compaction.HardCacheSize = v
			}
		case "light_body_lines":
			if v, ok := firstInt(cn); ok {
				cfg.Compaction.LightBodyLines = v
			}
		}
	}
}

func applyOrchestrator(cfg *Config, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "max_concurrency":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.MaxConcurrency = v
			}
		case "max_retries":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.MaxRetries = v
			}
		case "circuit_breaker_threshold":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.CircuitBreakerThreshold = v
			}
		case "circuit_breaker_reset_sec":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.CircuitBreakerResetSec = v
			}
		case "agent_timeout_sec":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.AgentTimeoutSec = v
			}
		case "memory_pressure_mb":
			if v, ok := firstInt(cn); ok {
				cfg.Orchestrator.MemoryPressureMB = v
			}
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstInt(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstString(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBool(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func assignString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstString(n); ok {
			set(s)
		}
	}
}

// collectStrings gathers string arguments, or — in block form, where each
// pattern is its own child node named by the pattern itself — the child
// node names.
func collectStrings(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments)+len(n.Children))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		for _, child := range n.Children {
			if s, ok := firstString(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// parseSize handles suffixed byte-size strings ("10MB", "500KB", "1GB").
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	num := s
	switch {
	case strings.HasSuffix(s, "GB"):
		mult, num = 1024*1024*1024, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		mult, num = 1024*1024, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		mult, num = 1024, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		num = strings.TrimSuffix(s, "B")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
