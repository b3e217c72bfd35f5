package main

import (
	"math"
	"sync"

	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/morph"
	"github.com/edipowladeo/enxame/telemetry"
)

// Penalties for runs that do not settle within the tick budget.
const (
	residualWeight = 100.0 // ticks per unit of remaining mean goal distance
	haltPenalty    = 500.0 // ticks per agent that hit the floor
)

// FitnessEvaluator runs headless morphs and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastSettled int // seeds that settled in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastSettled returns how many seeds settled in the most recent evaluation.
func (fe *FitnessEvaluator) LastSettled() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettled
}

// runResult holds the results from a single morph run.
type runResult struct {
	ticks    int64 // ticks until settled, or maxTicks
	settled  bool
	residual float64 // mean goal distance of active agents at the end
	halted   int
	err      error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the mean over seeds of ticks to settle, plus penalties for
// residual distance and halted agents.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runMorph(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	settled := 0
	for _, r := range results {
		total += fe.computeFitness(r)
		if r.settled {
			settled++
		}
	}

	fe.mu.Lock()
	fe.lastSettled = settled
	fe.mu.Unlock()

	return total / float64(len(results))
}

// runMorph steps one session until it settles or the tick budget runs out.
// cfg is only read.
func (fe *FitnessEvaluator) runMorph(cfg *config.Config, seed int64) runResult {
	s, err := morph.New(cfg, morph.Options{Seed: seed})
	if err != nil {
		return runResult{err: err}
	}
	defer s.Close()

	for s.Tick() < fe.maxTicks && !s.Settled() {
		s.UpdateHeadless()
	}

	st := s.Stats()
	return runResult{
		ticks:    s.Tick(),
		settled:  s.Settled(),
		residual: telemetry.Summarize(st.GoalDistances).Mean,
		halted:   st.Halted,
	}
}

func (fe *FitnessEvaluator) computeFitness(r runResult) float64 {
	if r.err != nil {
		return math.Inf(1)
	}
	f := float64(r.ticks) + haltPenalty*float64(r.halted)
	if !r.settled {
		f += residualWeight * r.residual
	}
	return f
}

// copyConfig returns an independent copy of the base config. Config holds
// no slices or maps, so a value copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	return &c
}
