package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/scout/internal/universe"
	"github.com/wonny/scout/pkg/config"
	"github.com/wonny/scout/pkg/logger"
)

// State is the queue's lifecycle position, derived from the persisted
// pending list and cursor rather than held separately.
type State string

const (
	StateEmpty     State = "empty"
	StatePrepared  State = "prepared"
	StateAdvancing State = "advancing"
	StateExhausted State = "exhausted"
)

const (
	pendingFile = "queue_pending.txt"
	cursorFile  = "queue_cursor.json"
	resultsFile = "queue_results.json"
)

type cursor struct {
	Index      int        `json:"index"`
	StartedAt  time.Time  `json:"started_at"`
	LastTickAt *time.Time `json:"last_tick_at"`
	Universes  []string   `json:"universes,omitempty"`
}

// Queue is the persisted, strictly ordered scan backlog. One symbol is
// scored per step; cursor and results are written together after each
// step so a restart resumes exactly where it stopped. A single process
// owns the queue directory; concurrent multi-process advancement is not
// supported.
type Queue struct {
	mu       sync.Mutex
	engine   *Engine
	resolver *universe.Resolver
	logger   *logger.Logger

	dir              string
	stepDelay        time.Duration
	defaultUniverses []string
	defaultCap       int

	pending []string
	cur     cursor
	results map[string]Signal
}

func NewQueue(cfg *config.Config, log *logger.Logger, engine *Engine, resolver *universe.Resolver) *Queue {
	q := &Queue{
		engine:           engine,
		resolver:         resolver,
		logger:           log,
		dir:              cfg.CacheDir,
		stepDelay:        cfg.Scan.StepDelay,
		defaultUniverses: cfg.Scan.Universes,
		defaultCap:       cfg.Scan.MaxTickers,
		results:          map[string]Signal{},
	}
	q.load()
	return q
}

// StepResult reports one advance.
type StepResult struct {
	Done      bool    `json:"done"`
	Remaining int     `json:"remaining"`
	Last      *Signal `json:"last,omitempty"`
}

// Status is the queue's externally visible state snapshot.
type Status struct {
	State      State      `json:"state"`
	Pending    int        `json:"pending"`
	Cursor     int        `json:"cursor"`
	Remaining  int        `json:"remaining"`
	Done       bool       `json:"done"`
	StartedAt  time.Time  `json:"started_at"`
	LastTickAt *time.Time `json:"last_tick_at,omitempty"`
	Universes  []string   `json:"universes,omitempty"`
}

// Prepare resolves the universes, unions and caps the symbols, and
// re-seeds the queue: cursor back to zero, previous results cleared.
// It always lands in Prepared regardless of the prior state.
func (q *Queue) Prepare(ctx context.Context, universes []string, cap int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.prepareLocked(ctx, universes, cap)
}

func (q *Queue) prepareLocked(ctx context.Context, universes []string, cap int) (int, error) {
	if len(universes) == 0 {
		universes = q.defaultUniverses
	}
	if cap <= 0 {
		cap = q.defaultCap
	}

	symbols := q.resolver.Resolve(ctx, universes)
	if len(symbols) > cap {
		q.logger.WithFields(map[string]interface{}{
			"from": len(symbols),
			"to":   cap,
		}).Info("Capping queue")
		symbols = symbols[:cap]
	}

	q.pending = symbols
	q.cur = cursor{Index: 0, StartedAt: time.Now().UTC(), Universes: universes}
	q.results = map[string]Signal{}

	if err := q.persistPending(); err != nil {
		return 0, fmt.Errorf("persist queue: %w", err)
	}
	if err := q.persistProgress(); err != nil {
		return 0, fmt.Errorf("persist queue: %w", err)
	}

	q.logger.WithFields(map[string]interface{}{
		"queued":    len(symbols),
		"universes": strings.Join(universes, ","),
	}).Info("Queue prepared")
	return len(symbols), nil
}

// Step advances the queue by one symbol. An Empty queue prepares itself
// with the default universe set first; an Exhausted queue reports done
// without advancing, the caller decides whether to re-prepare.
func (q *Queue) Step(ctx context.Context) (StepResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stateLocked() == StateEmpty {
		if _, err := q.prepareLocked(ctx, nil, 0); err != nil {
			return StepResult{}, err
		}
	}
	if q.stateLocked() == StateExhausted {
		return StepResult{Done: true, Remaining: 0}, nil
	}

	ticker := q.pending[q.cur.Index]
	sig := q.engine.ScreenOne(ctx, ticker)
	if sig == nil {
		placeholder := placeholderSignal(ticker)
		sig = &placeholder
	}
	q.results[ticker] = *sig

	q.cur.Index++
	now := time.Now().UTC()
	q.cur.LastTickAt = &now
	if err := q.persistProgress(); err != nil {
		q.logger.WithError(err).Error("Failed to persist queue progress")
	}

	res := StepResult{
		Done:      q.stateLocked() == StateExhausted,
		Remaining: len(q.pending) - q.cur.Index,
		Last:      sig,
	}

	if q.stepDelay > 0 {
		q.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-time.After(q.stepDelay):
		}
		q.mu.Lock()
	}
	return res, nil
}

// Status reports the current snapshot.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.stateLocked()
	return Status{
		State:      state,
		Pending:    len(q.pending),
		Cursor:     q.cur.Index,
		Remaining:  len(q.pending) - q.cur.Index,
		Done:       state == StateExhausted,
		StartedAt:  q.cur.StartedAt,
		LastTickAt: q.cur.LastTickAt,
		Universes:  q.cur.Universes,
	}
}

// Reset re-prepares with the previously used universe set.
func (q *Queue) Reset(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.prepareLocked(ctx, q.cur.Universes, 0)
}

// Results returns every recorded signal, ranked by score descending
// with ties in ticker order.
func (q *Queue) Results() []Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Signal, 0, len(q.results))
	for _, sig := range q.results {
		out = append(out, sig)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// RunLoop advances the queue until the context ends, re-preparing on
// exhaustion. The pid marker file makes an accidental second loop in
// the same process a no-op.
func (q *Queue) RunLoop(ctx context.Context) {
	marker := filepath.Join(q.dir, fmt.Sprintf("sweep_%d.json", os.Getpid()))
	_ = os.MkdirAll(q.dir, 0o755)
	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		q.logger.WithField("marker", marker).Warn("Sweep loop already running, not starting another")
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"pid": os.Getpid(), "ts": time.Now().UTC()})
	_, _ = f.Write(payload)
	_ = f.Close()
	defer os.Remove(marker)

	q.logger.WithField("step_delay", q.stepDelay).Info("Background sweep loop started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := q.Step(ctx)
		if err != nil {
			q.logger.WithError(err).Error("Sweep step failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if res.Done {
			n, err := q.Reset(ctx)
			if err != nil {
				q.logger.WithError(err).Error("Sweep re-prepare failed")
			}
			if err != nil || n == 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
			}
		}
	}
}

// stateLocked derives the lifecycle state. Callers hold q.mu.
func (q *Queue) stateLocked() State {
	switch {
	case len(q.pending) == 0 && q.cur.StartedAt.IsZero():
		return StateEmpty
	case q.cur.Index >= len(q.pending):
		return StateExhausted
	case q.cur.Index == 0:
		return StatePrepared
	default:
		return StateAdvancing
	}
}

// ---- persistence ----

func (q *Queue) load() {
	data, err := os.ReadFile(filepath.Join(q.dir, pendingFile))
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			q.pending = append(q.pending, line)
		}
	}

	var cur cursor
	if raw, err := os.ReadFile(filepath.Join(q.dir, cursorFile)); err == nil {
		if json.Unmarshal(raw, &cur) == nil {
			q.cur = cur
		}
	}
	if q.cur.Index < 0 {
		q.cur.Index = 0
	}
	if q.cur.Index > len(q.pending) {
		q.cur.Index = len(q.pending)
	}
	if q.cur.StartedAt.IsZero() {
		q.cur.StartedAt = time.Now().UTC()
	}

	var results map[string]Signal
	if raw, err := os.ReadFile(filepath.Join(q.dir, resultsFile)); err == nil {
		if json.Unmarshal(raw, &results) == nil && results != nil {
			q.results = results
		}
	}

	q.logger.WithFields(map[string]interface{}{
		"pending": len(q.pending),
		"cursor":  q.cur.Index,
		"results": len(q.results),
	}).Info("Resumed persisted queue")
}

func (q *Queue) persistPending() error {
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return err
	}
	return atomicWrite(filepath.Join(q.dir, pendingFile), []byte(strings.Join(q.pending, "\n")+"\n"))
}

// persistProgress writes cursor and results together so a crash between
// steps cannot desynchronize them.
func (q *Queue) persistProgress() error {
	resData, err := json.Marshal(q.results)
	if err != nil {
		return err
	}
	curData, err := json.Marshal(q.cur)
	if err != nil {
		return err
	}
	if err := atomicWrite(filepath.Join(q.dir, resultsFile), resData); err != nil {
		return err
	}
	return atomicWrite(filepath.Join(q.dir, cursorFile), curData)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
