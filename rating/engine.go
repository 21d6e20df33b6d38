/*
engine.go - Rating engine: one claimant, a batch of impairments

PURPOSE:
  Orchestrates a rating. The occupation is resolved to a group once, every
  impairment runs through the Adjuster, and the adjusted values are
  combined and paid out for the no-apportionment and (when present) the
  with-apportionment variants.

CONCURRENCY:
  Impairments are independent: each only reads the immutable lookup
  tables, so they are adjusted concurrently (bounded by Workers). Results
  land in index-addressed slots and are combined after all workers finish,
  so output order always follows input order.

FAILURE POLICY:
  Strict:  the first lookup failure aborts the batch.
  Lenient: a missing variant becomes the default variant, and an impairment
           whose adjustment lookups fail is skipped. Both are recorded on
           the record and logged. If nothing survives, the first error is
           returned.

  Occupation and input errors abort under either policy.

SEE ALSO:
  - adjuster.go: Per-impairment chain
  - schedule.go: Payout calculator
*/
package rating

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
)

// DefaultWorkers bounds concurrent adjustments per request.
const DefaultWorkers = 4

// Engine rates requests against one set of tables and one schedule.
type Engine struct {
	tables   *lookup.Tables
	schedule Schedule
	adjuster *Adjuster
	logger   *log.Logger
	workers  int
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for lenient-mode substitutions.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWorkers bounds concurrent adjustments. n < 1 means one at a time.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithIDFunc replaces the result id generator.
func WithIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// NewEngine builds an engine over loaded tables.
func NewEngine(tables *lookup.Tables, schedule Schedule, opts ...Option) (*Engine, error) {
	if tables == nil {
		return nil, fmt.Errorf("rating engine: tables are required")
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("rating engine: %w", err)
	}
	e := &Engine{
		tables:   tables,
		schedule: schedule,
		adjuster: NewAdjuster(tables, schedule),
		logger:   log.Default(),
		workers:  DefaultWorkers,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load materialises tables from src with the schedule's miss policies and
// builds an engine over them.
func Load(ctx context.Context, src lookup.Source, schedule Schedule, opts ...Option) (*Engine, error) {
	tables, err := src.LoadTables(ctx, schedule.MissPolicies)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	return NewEngine(tables, schedule, opts...)
}

func (e *Engine) Tables() *lookup.Tables { return e.tables }
func (e *Engine) Schedule() Schedule     { return e.schedule }

// =============================================================================
// COMPUTE
// =============================================================================

// Compute rates one request.
func (e *Engine) Compute(ctx context.Context, req Request) (*Result, error) {
	if len(req.Impairments) == 0 {
		return nil, &generic.InputError{Field: "impairments", Reason: "at least one impairment is required"}
	}
	age, err := req.Claimant.AgeOnInjury()
	if err != nil {
		return nil, err
	}
	group, err := e.tables.ResolveGroup(req.Claimant.Occupation)
	if err != nil {
		return nil, err
	}

	records, errs, err := e.adjustAll(ctx, req.Impairments, group, age)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:         e.newID(),
		Occupation: req.Claimant.Occupation,
		Group:      group,
		Age:        age,
		Policy:     e.schedule.FailurePolicy,
		Records:    records,
	}

	rated := res.Rated()
	if len(rated) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	none, with := Apportion(rated)
	res.NoApportionment = e.outcome(none)
	if with != nil {
		o := e.outcome(with)
		res.WithApportionment = &o
	}

	for _, rec := range records {
		for _, s := range rec.Substitutions {
			e.logger.Printf("[Engine] %s: %s (%s): %s", res.ID, rec.ImpairmentCode, rec.BodyPart, s)
		}
		if rec.Skipped != "" {
			e.logger.Printf("[Engine] %s: skipped %s (%s): %s", res.ID, rec.ImpairmentCode, rec.BodyPart, rec.Skipped)
		}
	}
	return res, nil
}

// adjustAll runs the adjuster over every impairment. Under Lenient,
// lookup failures are returned per slot in errs instead of aborting.
func (e *Engine) adjustAll(ctx context.Context, imps []Impairment, group, age int) ([]Record, []error, error) {
	records := make([]Record, len(imps))
	errs := make([]error, len(imps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, imp := range imps {
		i, imp := i, imp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := e.adjuster.Adjust(imp, group, age)
			if err == nil {
				records[i] = rec
				return nil
			}
			if e.schedule.FailurePolicy == Lenient && generic.IsLookupFailure(err) {
				rec.Skipped = err.Error()
				records[i] = rec
				errs[i] = err
				return nil
			}
			return fmt.Errorf("impairment %d (%s): %w", i+1, imp.BodyPart, err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, errs, nil
}

func (e *Engine) outcome(values []decimal.Decimal) Outcome {
	percent := Combine(values)
	weeks := e.schedule.Weeks(percent)
	return Outcome{
		Values:      values,
		Percent:     percent,
		Weeks:       weeks,
		WeeklyRate:  e.schedule.WeeklyRate,
		Payout:      e.schedule.Payout(weeks),
		LifePension: e.schedule.LifePensionFor(percent),
	}
}
