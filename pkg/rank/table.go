// Package rank scores canonical hits: a metadata coarse pass selects
// candidates, a semantic re-rank pass orders them, and a fixed linear blend
// produces the reported score.
package rank

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Authority tier values and the defaults for entries missing from the table.
const (
	authorityTierA   = 1.00
	authorityTierB   = 0.85
	authorityTierC   = 0.70
	authorityDefault = 0.50

	engineTrustDefault = 0.60
)

//go:embed ranking.yaml
var defaultTableYAML []byte

type tableFile struct {
	Authority struct {
		TierA []string `yaml:"tier_a"`
		TierB []string `yaml:"tier_b"`
		TierC []string `yaml:"tier_c"`
	} `yaml:"authority"`
	EngineTrust    map[string]float64 `yaml:"engine_trust"`
	TrackingParams []string           `yaml:"tracking_params"`
}

// Table holds the static scoring constants: domain authority tiers, per-engine
// trust, and the tracking-parameter set shared with URL canonicalization.
type Table struct {
	authority      map[string]float64
	engineTrust    map[string]float64
	trackingParams []string
}

func buildTable(f tableFile) *Table {
	t := &Table{
		authority:      make(map[string]float64),
		engineTrust:    f.EngineTrust,
		trackingParams: f.TrackingParams,
	}
	for _, d := range f.Authority.TierC {
		t.authority[strings.ToLower(d)] = authorityTierC
	}
	for _, d := range f.Authority.TierB {
		t.authority[strings.ToLower(d)] = authorityTierB
	}
	for _, d := range f.Authority.TierA {
		t.authority[strings.ToLower(d)] = authorityTierA
	}
	return t
}

// DefaultTable parses the embedded table.
func DefaultTable() *Table {
	var f tableFile
	if err := yaml.Unmarshal(defaultTableYAML, &f); err != nil {
		// The embedded asset is validated by tests; this cannot happen at
		// runtime.
		panic(fmt.Sprintf("embedded ranking table is invalid: %v", err))
	}
	return buildTable(f)
}

// LoadTable parses a table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking table: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ranking table %s: %w", path, err)
	}
	return buildTable(f), nil
}

// Authority returns the authority score for a domain, walking parent domains
// so subdomains inherit their registrable domain's tier.
func (t *Table) Authority(domain string) float64 {
	domain = strings.ToLower(domain)
	for domain != "" {
		if score, ok := t.authority[domain]; ok {
			return score
		}
		i := strings.Index(domain, ".")
		if i == -1 || !strings.Contains(domain[i+1:], ".") {
			break
		}
		domain = domain[i+1:]
	}
	return authorityDefault
}

// EngineTrust returns the trust score for an engine.
func (t *Table) EngineTrust(engine string) float64 {
	if score, ok := t.engineTrust[engine]; ok {
		return score
	}
	return engineTrustDefault
}

// TrackingParams returns the tracking-parameter set for URL canonicalization.
func (t *Table) TrackingParams() []string {
	return t.trackingParams
}

// Source hands out the current ranking table and supports hot reload of a
// file-backed table.
type Source struct {
	cur atomic.Pointer[Table]
}

func NewSource(t *Table) *Source {
	s := &Source{}
	s.cur.Store(t)
	return s
}

// Table returns the current table. Safe for concurrent use.
func (s *Source) Table() *Table {
	return s.cur.Load()
}

// Watch reloads the table whenever path changes, until ctx is cancelled. A
// file that fails to parse keeps the previous table in place.
func (s *Source) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create table watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops a watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				t, err := LoadTable(path)
				if err != nil {
					slog.Warn("Ignoring invalid ranking table update", "path", path, "error", err)
					continue
				}
				s.cur.Store(t)
				slog.Info("Reloaded ranking table", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Ranking table watcher error", "error", err)
			}
		}
	}()

	return nil
}
