/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package teller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/blnkfinance/teller/config"
	"github.com/blnkfinance/teller/model"
)

var tracer = otel.Tracer("Teller simulation")

var (
	ErrInvalidWorkerCount = fmt.Errorf("worker count must be between %d and %d", config.MIN_WORKERS, config.MAX_WORKERS)
	ErrInvalidTaskCount   = errors.New("tasks per worker must be at least 1")
	ErrSimulatorUsed      = errors.New("simulator has already been run")
)

type SimulatorState string

const (
	StateIdle               SimulatorState = "Idle"
	StateDispatching        SimulatorState = "Dispatching"
	StateAwaitingCompletion SimulatorState = "AwaitingCompletion"
	StateCompleted          SimulatorState = "Completed"
	StateTimedOut           SimulatorState = "TimedOut"
)

// WorkerReport aggregates the outcomes of one worker.
type WorkerReport struct {
	WorkerID  int       `json:"worker_id"`
	Committed int       `json:"committed"`
	Rejected  int       `json:"rejected"`
	Outcomes  []Outcome `json:"-"`
}

// Summary is the result of a simulation run. TimedOut counts the worker tasks
// that had not finished when the deadline passed or the run was cancelled.
// Cancelled is set when the caller's context was cancelled.
type Summary struct {
	State      SimulatorState `json:"state"`
	Committed  int            `json:"committed"`
	Rejected   int            `json:"rejected"`
	TimedOut   int            `json:"timed_out"`
	Workers    []WorkerReport `json:"workers"`
	Reasons    map[string]int `json:"reasons"`
	Cancelled  bool           `json:"cancelled"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// Attempts is the number of attempts that produced an outcome.
func (s Summary) Attempts() int {
	return s.Committed + s.Rejected
}

// Simulator runs a fixed number of workers once through a bounded pool.
type Simulator struct {
	mu       sync.Mutex
	state    SimulatorState
	ledger   *TransactionLedger
	picker   AccountPicker
	source   AmountSource
	poolSize int
	timeout  time.Duration
	grace    time.Duration
	pause    func() time.Duration
}

type SimulatorOption func(*Simulator)

// WithPoolSize bounds the number of workers running at once.
func WithPoolSize(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithTimeout sets how long Run waits for the workers.
func WithTimeout(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithGracePeriod sets how long Run waits, after the deadline, for in-flight
// attempts to finish before building the summary without them.
func WithGracePeriod(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.grace = d
	}
}

// WithWorkerPause sets the pause between attempts of each worker.
func WithWorkerPause(fn func() time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.pause = fn
	}
}

// NewSimulator creates an idle simulator.
//
// Parameters:
// - ledger *TransactionLedger: The ledger committed transactions are recorded in.
// - picker AccountPicker: Chooses the target account of each attempt.
// - source AmountSource: Supplies transaction kinds and amounts.
// - opts ...SimulatorOption: Pool size, timeout, grace period and pause overrides.
//
// Returns:
// - *Simulator: The simulator, in the Idle state.
func NewSimulator(ledger *TransactionLedger, picker AccountPicker, source AmountSource, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		state:    StateIdle,
		ledger:   ledger,
		picker:   picker,
		source:   source,
		poolSize: config.MAX_WORKERS,
		timeout:  30 * time.Second,
		grace:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) State() SimulatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves from one state to another, reporting whether the simulator
// was in the expected state.
func (s *Simulator) transition(from, to SimulatorState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// Run dispatches workerCount workers, each making tasksPerWorker attempts, and
// waits for them until the timeout. On timeout the workers are told to stop
// before their next attempt; attempts already inside an account's critical
// section finish. Invalid arguments are rejected before anything is dispatched
// and leave the simulator Idle.
func (s *Simulator) Run(ctx context.Context, workerCount, tasksPerWorker int) (Summary, error) {
	if workerCount < config.MIN_WORKERS || workerCount > config.MAX_WORKERS {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workerCount)
	}
	if tasksPerWorker < 1 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidTaskCount, tasksPerWorker)
	}
	if !s.transition(StateIdle, StateDispatching) {
		return Summary{}, ErrSimulatorUsed
	}

	ctx, span := tracer.Start(ctx, "Running simulation", trace.WithAttributes(
		attribute.Int("simulation.workers", workerCount),
		attribute.Int("simulation.tasks_per_worker", tasksPerWorker),
	))
	defer span.End()

	summary := Summary{StartedAt: ptr.Time(time.Now()), Reasons: make(map[string]int)}
	logrus.Infof("starting simulation with %d workers x %d tasks", workerCount, tasksPerWorker)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		reports []WorkerReport
		pending atomic.Int32
	)
	pending.Store(int32(workerCount))

	done := make(chan struct{})
	go func() {
		defer close(done)
		g := new(errgroup.Group)
		g.SetLimit(s.poolSize)
		for i := 1; i <= workerCount; i++ {
			w := NewWorker(i, s.picker, s.ledger, s.source, WithPause(s.pause))
			g.Go(func() error {
				defer pending.Add(-1)
				outcomes := w.RunTasks(runCtx, tasksPerWorker)
				mu.Lock()
				reports = append(reports, newWorkerReport(w.ID(), outcomes))
				mu.Unlock()
				return nil
			})
		}
		s.transition(StateDispatching, StateAwaitingCompletion)
		_ = g.Wait()
	}()

	select {
	case <-done:
		s.finish(StateCompleted)
	case <-runCtx.Done():
		select {
		case <-done:
			s.finish(StateCompleted)
		default:
			summary.TimedOut = int(pending.Load())
			s.finish(StateTimedOut)
			cancel()
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				logrus.Warnf("simulation timed out after %s with %d workers still running", s.timeout, summary.TimedOut)
				span.AddEvent("simulation timed out")
			} else {
				logrus.Warnf("simulation cancelled with %d workers still running", summary.TimedOut)
				span.AddEvent("simulation cancelled")
			}
			select {
			case <-done:
			case <-time.After(s.grace):
				logrus.Warn("abandoning workers that did not stop within the grace period")
			}
		}
	}

	mu.Lock()
	summary.Workers = append([]WorkerReport(nil), reports...)
	mu.Unlock()
	sort.Slice(summary.Workers, func(i, j int) bool { return summary.Workers[i].WorkerID < summary.Workers[j].WorkerID })

	for _, report := range summary.Workers {
		summary.Committed += report.Committed
		summary.Rejected += report.Rejected
		for _, o := range report.Outcomes {
			if !o.Committed() {
				summary.Reasons[model.RejectionKind(o.Err)]++
			}
		}
	}
	summary.State = s.State()
	summary.Cancelled = errors.Is(ctx.Err(), context.Canceled)
	summary.FinishedAt = ptr.Time(time.Now())

	span.SetAttributes(
		attribute.Int("simulation.committed", summary.Committed),
		attribute.Int("simulation.rejected", summary.Rejected),
		attribute.String("simulation.state", string(summary.State)),
	)
	logrus.Infof("simulation %s: %d committed, %d rejected", summary.State, summary.Committed, summary.Rejected)
	return summary, nil
}

func (s *Simulator) finish(state SimulatorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func newWorkerReport(id int, outcomes []Outcome) WorkerReport {
	report := WorkerReport{WorkerID: id, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Committed() {
			report.Committed++
		} else {
			report.Rejected++
		}
	}
	return report
}
