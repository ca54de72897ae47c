package observability

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// Pipeline stages, in the order a chat turn runs through them.
const (
	StageMemoryRead = "memory_read"
	StageLinkCheck  = "link_check"
	StageCompletion = "completion"
	StagePersist    = "persist"
	StageTotal      = "turn_total"
)

// Turn outcomes counted alongside the latencies.
const (
	IndicatorMemoryDegraded = "memory_degraded"
	IndicatorLinkHit        = "link_hit"
)

var pipelineOrder = []string{StageMemoryRead, StageLinkCheck, StageCompletion, StagePersist, StageTotal}

// stageBudgetsMS is the p95 latency each stage is expected to stay under.
var stageBudgetsMS = map[string]float64{
	StageMemoryRead: 50,
	StageLinkCheck:  1500,
	StageCompletion: 4000,
	StagePersist:    50,
	StageTotal:      6000,
}

type StageStats struct {
	Stage      string  `json:"stage"`
	Samples    int     `json:"samples"`
	LastMS     float64 `json:"last_ms"`
	MeanMS     float64 `json:"mean_ms"`
	P50MS      float64 `json:"p50_ms"`
	P95MS      float64 `json:"p95_ms"`
	MaxMS      float64 `json:"max_ms"`
	BudgetMS   float64 `json:"budget_ms,omitempty"`
	OverBudget int     `json:"over_budget,omitempty"`
}

// Indicator counts one turn outcome. PerTurn is Count divided by the
// number of finished turns, or zero before the first turn ends.
type Indicator struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	PerTurn float64 `json:"per_turn"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Window      int          `json:"window"`
	Turns       int          `json:"turns"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// stageWindow holds the most recent latencies of each stage and running
// counts of turn outcomes.
type stageWindow struct {
	mu         sync.Mutex
	window     int
	samples    map[string][]float64
	turns      int
	indicators map[string]int
}

func newStageWindow(window int) *stageWindow {
	if window <= 0 {
		window = 256
	}
	return &stageWindow{
		window:     window,
		samples:    make(map[string][]float64),
		indicators: make(map[string]int),
	}
}

func (w *stageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s := append(w.samples[stage], ms)
	if len(s) > w.window {
		s = s[len(s)-w.window:]
	}
	w.samples[stage] = s
	if stage == StageTotal {
		w.turns++
	}
}

func (w *stageWindow) ObserveIndicator(name string) {
	if name == "" {
		return
	}
	w.mu.Lock()
	w.indicators[name]++
	w.mu.Unlock()
}

func (w *stageWindow) Snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		Window:      w.window,
		Turns:       w.turns,
		Stages:      make([]StageStats, 0, len(w.samples)),
	}
	for _, stage := range stageOrder(w.samples) {
		snap.Stages = append(snap.Stages, summarize(stage, w.samples[stage]))
	}

	names := make([]string, 0, len(w.indicators))
	for name := range w.indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ind := Indicator{Name: name, Count: w.indicators[name]}
		if w.turns > 0 {
			ind.PerTurn = round2(float64(ind.Count) / float64(w.turns))
		}
		snap.Indicators = append(snap.Indicators, ind)
	}
	return snap
}

// stageOrder lists known stages in pipeline order, then any others by name.
func stageOrder(samples map[string][]float64) []string {
	out := make([]string, 0, len(samples))
	for _, stage := range pipelineOrder {
		if len(samples[stage]) > 0 {
			out = append(out, stage)
		}
	}
	var extra []string
	for stage, s := range samples {
		if len(s) > 0 && !slices.Contains(pipelineOrder, stage) {
			extra = append(extra, stage)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func summarize(stage string, window []float64) StageStats {
	sorted := slices.Clone(window)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	stats := StageStats{
		Stage:    stage,
		Samples:  len(sorted),
		LastMS:   round2(window[len(window)-1]),
		MeanMS:   round2(sum / float64(len(sorted))),
		P50MS:    round2(nearestRank(sorted, 0.50)),
		P95MS:    round2(nearestRank(sorted, 0.95)),
		MaxMS:    round2(sorted[len(sorted)-1]),
		BudgetMS: stageBudgetsMS[stage],
	}
	if stats.BudgetMS > 0 {
		for _, v := range sorted {
			if v > stats.BudgetMS {
				stats.OverBudget++
			}
		}
	}
	return stats
}

func nearestRank(sorted []float64, q float64) float64 {
	rank := int(math.Ceil(q * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
