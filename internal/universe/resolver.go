package universe

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/httputil"
	"github.com/wonny/scout/pkg/logger"
	"github.com/wonny/scout/pkg/redis"
)

// Resolver turns universe keys into ticker lists. An "auto:" key runs a
// source cascade (cached copy, primary scrape, CSV fallbacks, bundled
// file, built-in seed); "file:" and bare keys read only the bundled
// file. Resolution never fails outright, an unreadable key contributes
// nothing.
type Resolver struct {
	http        *httputil.Client
	logger      *logger.Logger
	cache       *redis.Cache
	cacheDir    string
	universeDir string
	ttl         time.Duration
}

func NewResolver(cfg *config.Config, log *logger.Logger, cache *redis.Cache) *Resolver {
	return &Resolver{
		http:        httputil.NewWithTimeout(log, 30*time.Second),
		logger:      log,
		cache:       cache,
		cacheDir:    filepath.Join(cfg.CacheDir, "universes"),
		universeDir: cfg.UniverseDir,
		ttl:         cfg.Scan.UniverseTTL,
	}
}

// Resolve unions the tickers of every named universe into one sorted,
// deduplicated list.
func (r *Resolver) Resolve(ctx context.Context, names []string) []string {
	set := make(map[string]struct{})
	for _, name := range names {
		for _, t := range r.resolveOne(ctx, name) {
			set[t] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Refresh drops any cached copy of an auto universe and re-resolves it.
func (r *Resolver) Refresh(ctx context.Context, name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "auto:") {
		_ = os.Remove(r.cachePath(name))
		_ = r.cache.Delete(ctx, redis.UniverseKey(name))
	}
	return r.resolveOne(ctx, name)
}

// LocalNames lists the bundled universe files available on disk.
func (r *Resolver) LocalNames() []string {
	entries, err := os.ReadDir(r.universeDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".txt"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "":
		return nil
	case strings.HasPrefix(name, "auto:"):
		return r.autoFetch(ctx, name)
	case strings.HasPrefix(name, "file:"):
		return r.readLocalFile(strings.TrimPrefix(name, "file:"))
	default:
		return r.readLocalFile(name)
	}
}

// autoFetch runs the cascade for an "auto:" key and writes any remotely
// fetched result back to the cache tiers.
func (r *Resolver) autoFetch(ctx context.Context, name string) []string {
	if cached := r.readCached(ctx, name); len(cached) > 0 {
		return cached
	}

	base := strings.TrimPrefix(name, "auto:")
	var tickers []string
	var err error

	switch base {
	case "sp500":
		tickers, err = r.fetchSP500(ctx)
		if err != nil || len(tickers) == 0 {
			r.logWikiFailure(name, err)
			tickers, err = r.fetchCSVSymbols(ctx, sp500CSVURL, []string{"Symbol", "symbol"}, sp500CSVTransform)
		}
	case "asx200":
		tickers, err = r.fetchASX200(ctx)
		if err != nil || len(tickers) == 0 {
			r.logWikiFailure(name, err)
			for _, u := range asx200CSVURLs {
				tickers, err = r.fetchCSVSymbols(ctx, u, asx200CSVCols, asx200CSVTransform)
				if err == nil && len(tickers) > 0 {
					break
				}
			}
		}
	default:
		r.logger.WithField("universe", name).Warn("Unknown auto universe key")
		return nil
	}
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"universe": name,
			"error":    err.Error(),
		}).Warn("Remote universe sources failed")
	}

	if len(tickers) == 0 {
		tickers = r.readLocalFile(base)
	}
	if len(tickers) == 0 {
		tickers = seedFor(base)
		r.logger.WithFields(map[string]interface{}{
			"universe": name,
			"count":    len(tickers),
		}).Warn("Falling back to built-in seed universe")
	}

	r.writeCached(ctx, name, tickers)
	return tickers
}

func (r *Resolver) logWikiFailure(name string, err error) {
	f := r.logger.WithField("universe", name)
	if err != nil {
		f = f.WithField("error", err.Error())
	}
	f.Info("Primary universe source unavailable, trying CSV fallback")
}

// readLocalFile reads a bundled list, one ticker per line, comments and
// blanks skipped.
func (r *Resolver) readLocalFile(name string) []string {
	path := filepath.Join(r.universeDir, name+".txt")
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToUpper(line))
	}
	return out
}

// ---- cache tiers ----

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9_-]`)

func (r *Resolver) cachePath(name string) string {
	return filepath.Join(r.cacheDir, unsafeKeyChars.ReplaceAllString(name, "_")+".txt")
}

func (r *Resolver) readCached(ctx context.Context, name string) []string {
	var fromRedis []string
	if ok, err := r.cache.Get(ctx, redis.UniverseKey(name), &fromRedis); err == nil && ok && len(fromRedis) > 0 {
		return fromRedis
	}

	path := r.cachePath(name)
	stat, err := os.Stat(path)
	if err != nil || time.Since(stat.ModTime()) > r.ttl {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (r *Resolver) writeCached(ctx context.Context, name string, tickers []string) {
	_ = r.cache.Set(ctx, redis.UniverseKey(name), tickers, r.ttl)

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return
	}
	tmp := r.cachePath(name) + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(tickers, "\n")+"\n"), 0o644); err != nil {
		return
	}
	if err := os.Rename(tmp, r.cachePath(name)); err != nil {
		_ = os.Remove(tmp)
	}
}
