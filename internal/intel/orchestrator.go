package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TomasB/ipintel/internal/envcheck"
	"github.com/TomasB/ipintel/internal/rangeidx"
	"github.com/TomasB/ipintel/internal/store"
)

// Config holds the orchestrator settings, resolved by the caller from
// the environment.
type Config struct {
	// DataDir holds one JSON-lines file per required index.
	DataDir string
	// WhoisDir is the root of the whois record store; warn-only.
	WhoisDir string
	// CustomListDir holds user-supplied list files; optional.
	CustomListDir string
	// MMDBPath enables the secondary coordinate source; optional.
	MMDBPath string
	// ASNLookup enables direct ASN queries.
	ASNLookup bool
}

// Required index files under DataDir, by index name.
var indexFiles = map[string]string{
	"asn":        "asn.jsonl",
	"company":    "company.jsonl",
	"location":   "location.jsonl",
	"datacenter": "datacenter.jsonl",
	"mobile":     "mobile.jsonl",
	"satellite":  "satellite.jsonl",
	"crawler":    "crawler.jsonl",
	"blacklist":  "blacklist.jsonl",
	"clean":      "clean.jsonl",
	"whois_ip":   "whois_ip.jsonl",
}

// snapshot is one immutable, fully finalized generation of every
// index. Lookups read whichever snapshot was published last; reload
// builds a replacement off to the side and swaps the pointer.
type snapshot struct {
	asn         *rangeidx.Index[ASNDetail]
	asnByNumber map[uint32]ASNDetail
	company     *rangeidx.Index[CompanyDetail]
	location    *rangeidx.Index[LocationDetail]
	datacenter  *rangeidx.Index[DatacenterDetail]
	mobile      *rangeidx.Index[bool]
	satellite   *rangeidx.Index[bool]
	crawler     *rangeidx.Index[bool]
	blacklist   *rangeidx.Index[BlacklistDetail]
	clean       *rangeidx.Index[bool]
	custom      *rangeidx.Index[string]
	whoisPath   *rangeidx.Index[string]
	versions    map[string]time.Time
}

const (
	stateNotLoaded = iota
	stateLoading
	stateLoaded
)

// Orchestrator owns the index set and exposes the composed query
// operations. Create one with New, call Load once, then query from
// any number of goroutines.
type Orchestrator struct {
	cfg    Config
	bogons *rangeidx.Index[struct{}]
	geo    *GeoSource

	state     atomic.Int32
	reloading atomic.Bool
	snap      atomic.Pointer[snapshot]
}

// New creates an unloaded orchestrator. If cfg.MMDBPath is set the
// secondary coordinate source is opened eagerly so a bad path fails
// fast.
func New(cfg Config) (*Orchestrator, error) {
	o := &Orchestrator{cfg: cfg, bogons: newBogonIndex()}
	if cfg.MMDBPath != "" {
		geo, err := OpenGeoSource(cfg.MMDBPath)
		if err != nil {
			return nil, err
		}
		o.geo = geo
	}
	return o, nil
}

// Load validates the environment and loads every required index,
// then publishes the snapshot and marks the orchestrator ready.
// Calling Load when already loaded is a no-op. Run it from a goroutine
// if the caller must not block on startup.
func (o *Orchestrator) Load(ctx context.Context) error {
	if !o.state.CompareAndSwap(stateNotLoaded, stateLoading) {
		if o.state.Load() == stateLoaded {
			return nil
		}
		return fmt.Errorf("load already in progress")
	}

	if err := o.validateEnvironment(); err != nil {
		o.state.Store(stateNotLoaded)
		return err
	}

	started := time.Now()
	snap, err := o.buildSnapshot(ctx)
	if err != nil {
		o.state.Store(stateNotLoaded)
		return err
	}
	o.snap.Store(snap)
	o.state.Store(stateLoaded)
	slog.Info("indexes loaded", "duration_ms", time.Since(started).Milliseconds())
	return nil
}

// Reload rebuilds every index from the store and atomically publishes
// the new snapshot. At most one reload runs at a time; a request that
// arrives while one is in progress reports StatusCurrentlyReloading.
func (o *Orchestrator) Reload(ctx context.Context) (string, error) {
	if o.state.Load() != stateLoaded {
		return "", errf(CodeNotLoaded, "indexes are not loaded yet")
	}
	if !o.reloading.CompareAndSwap(false, true) {
		return StatusCurrentlyReloading, nil
	}
	defer o.reloading.Store(false)

	started := time.Now()
	snap, err := o.buildSnapshot(ctx)
	if err != nil {
		slog.Error("reload failed, keeping previous snapshot", "error", err)
		return "", err
	}
	o.snap.Store(snap)
	slog.Info("indexes reloaded", "duration_ms", time.Since(started).Milliseconds())
	return StatusReloaded, nil
}

// Reload outcomes.
const (
	StatusReloaded           = "reloaded"
	StatusCurrentlyReloading = "currentlyReloading"
)

// Ready reports whether the orchestrator can serve lookups.
func (o *Orchestrator) Ready() error {
	if o.state.Load() != stateLoaded {
		return fmt.Errorf("indexes not loaded")
	}
	return nil
}

// Close releases the secondary coordinate source, if any.
func (o *Orchestrator) Close() error {
	if o.geo != nil {
		return o.geo.Close()
	}
	return nil
}

func (o *Orchestrator) validateEnvironment() error {
	checks := []envcheck.Check{{Path: o.cfg.DataDir, Dir: true}}
	for _, file := range indexFiles {
		checks = append(checks, envcheck.Check{Path: filepath.Join(o.cfg.DataDir, file)})
	}
	if o.cfg.WhoisDir != "" {
		checks = append(checks, envcheck.Check{Path: o.cfg.WhoisDir, Dir: true, WarnOnly: true})
	}
	if o.cfg.CustomListDir != "" {
		checks = append(checks, envcheck.Check{Path: o.cfg.CustomListDir, Dir: true, WarnOnly: true})
	}
	return envcheck.Validate(checks, time.Now())
}

// buildSnapshot loads every index in parallel into a fresh snapshot.
// Nothing touches the published snapshot until the whole build
// succeeds.
func (o *Orchestrator) buildSnapshot(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{versions: make(map[string]time.Time, len(indexFiles))}
	g, _ := errgroup.WithContext(ctx)

	path := func(name string) string {
		return filepath.Join(o.cfg.DataDir, indexFiles[name])
	}

	g.Go(func() error {
		entries, err := store.Read[ASNDetail](path("asn"))
		if err != nil {
			return err
		}
		idx := rangeidx.New[ASNDetail](rangeidx.SmallestMatch)
		byNumber := make(map[uint32]ASNDetail, len(entries))
		for _, e := range entries {
			if err := idx.Add(e.Range, e.Value); err != nil {
				return fmt.Errorf("asn index: %w", err)
			}
			byNumber[e.Value.ASN] = e.Value
		}
		if err := idx.Finalize(); err != nil {
			return err
		}
		snap.asn, snap.asnByNumber = idx, byNumber
		return nil
	})
	g.Go(func() (err error) {
		snap.company, err = store.ReadIndex[CompanyDetail](path("company"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.location, err = store.ReadIndex[LocationDetail](path("location"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.datacenter, err = store.ReadIndex[DatacenterDetail](path("datacenter"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.mobile, err = store.ReadIndex[bool](path("mobile"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.satellite, err = store.ReadIndex[bool](path("satellite"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.crawler, err = store.ReadIndex[bool](path("crawler"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.blacklist, err = store.ReadIndex[BlacklistDetail](path("blacklist"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.clean, err = store.ReadIndex[bool](path("clean"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.whoisPath, err = store.ReadIndex[string](path("whois_ip"), rangeidx.SmallestMatch)
		return err
	})
	g.Go(func() (err error) {
		snap.custom, err = loadCustomLists(o.cfg.CustomListDir)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for name, file := range indexFiles {
		v, err := store.Version(filepath.Join(o.cfg.DataDir, file))
		if err != nil {
			return nil, err
		}
		snap.versions[name] = v
	}
	return snap, nil
}

// current returns the published snapshot, or a typed error before the
// first load completes.
func (o *Orchestrator) current() (*snapshot, *Error) {
	snap := o.snap.Load()
	if snap == nil {
		return nil, errf(CodeNotLoaded, "indexes are not loaded yet")
	}
	return snap, nil
}

// Versions reports the freshness of the currently loaded data, per
// index name. With humanReadable set the values are RFC 3339 stamps,
// otherwise unix seconds.
func (o *Orchestrator) Versions(humanReadable bool) (map[string]string, error) {
	snap, terr := o.current()
	if terr != nil {
		return nil, terr
	}
	out := make(map[string]string, len(snap.versions))
	for name, t := range snap.versions {
		if humanReadable {
			out[name] = t.UTC().Format(time.RFC3339)
		} else {
			out[name] = strconv.FormatInt(t.Unix(), 10)
		}
	}
	return out, nil
}

// customList is one user-supplied list file: a named set of ranges
// that raises a single allow-listed flag on match.
type customList struct {
	Name     string   `json:"name"`
	Property string   `json:"property"`
	Entries  []string `json:"entries"`
}

var allowedCustomFlags = map[string]bool{
	"is_abuser":     true,
	"is_tor":        true,
	"is_vpn":        true,
	"is_proxy":      true,
	"is_datacenter": true,
}

// loadCustomLists merges every readable, valid list file in dir into
// one all-matches index whose value is the flag name to raise. Custom
// lists are optional: a missing dir, unreadable file or out-of-list
// property logs a warning and is skipped, never fails the load.
func loadCustomLists(dir string) (*rangeidx.Index[string], error) {
	idx := rangeidx.New[string](rangeidx.AllMatches)
	if dir != "" {
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err == nil {
			for _, file := range files {
				addCustomList(idx, file)
			}
		} else {
			slog.Warn("custom list scan failed, continuing without custom lists", "dir", dir, "error", err)
		}
	}
	if err := idx.Finalize(); err != nil {
		return nil, err
	}
	return idx, nil
}

func addCustomList(idx *rangeidx.Index[string], file string) {
	raw, err := os.ReadFile(file)
	if err != nil {
		slog.Warn("skipping unreadable custom list", "file", file, "error", err)
		return
	}
	var list customList
	if err := json.Unmarshal(raw, &list); err != nil {
		slog.Warn("skipping malformed custom list", "file", file, "error", err)
		return
	}
	if !allowedCustomFlags[list.Property] {
		slog.Warn("skipping custom list with disallowed property",
			"file", file, "property", list.Property)
		return
	}
	added := 0
	for _, spec := range list.Entries {
		if err := idx.Add(spec, list.Property); err != nil {
			slog.Warn("skipping bad custom list entry", "file", file, "entry", spec, "error", err)
			continue
		}
		added++
	}
	slog.Info("custom list loaded", "file", filepath.Base(file), "name", list.Name,
		"property", list.Property, "entries", added)
}
