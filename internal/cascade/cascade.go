// Package cascade runs the side effects one document transition has on a sibling
// document (quote accepted -> invoice, invoice paid -> order) under one policy.
package cascade

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/pressroom/internal/config"
	obslogger "github.com/smallbiznis/pressroom/internal/observability/logger"
	"github.com/smallbiznis/pressroom/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Policy string

const (
	// Strict runs the cascade in the primary transaction; a failure aborts both.
	Strict Policy = config.CascadeStrict
	// BestEffort runs the cascade inside a savepoint; a failure only undoes the cascade.
	BestEffort Policy = config.CascadeBestEffort
)

const (
	TransitionQuoteAccepted = "quote_accepted"
	TransitionInvoicePaid   = "invoice_paid"
)

func ParsePolicy(raw string) Policy {
	if strings.EqualFold(strings.TrimSpace(raw), string(BestEffort)) {
		return BestEffort
	}
	return Strict
}

// Error is a cascade failure surfaced under the strict policy.
type Error struct {
	Transition string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cascade %s: %v", e.Transition, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Step performs the cascade. It reports applied=false when there was nothing to do.
type Step func(tx *gorm.DB) (applied bool, err error)

var Module = fx.Module("cascade",
	fx.Provide(NewRunner),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Workflow *config.WorkflowConfigHolder `optional:"true"`
	Metrics  *metrics.Metrics             `optional:"true"`
}

type Runner struct {
	log      *zap.Logger
	workflow *config.WorkflowConfigHolder
	metrics  *metrics.Metrics
}

func NewRunner(p Params) *Runner {
	return &Runner{
		log:      p.Log.Named("cascade"),
		workflow: p.Workflow,
		metrics:  p.Metrics,
	}
}

func (r *Runner) Policy() Policy {
	return ParsePolicy(r.workflow.Get().CascadePolicy)
}

// Run executes step against tx according to the configured policy.
func (r *Runner) Run(ctx context.Context, tx *gorm.DB, transition string, step Step) error {
	return r.RunWithPolicy(ctx, tx, r.Policy(), transition, step)
}

func (r *Runner) RunWithPolicy(ctx context.Context, tx *gorm.DB, policy Policy, transition string, step Step) error {
	var applied bool

	if policy == BestEffort {
		err := tx.Transaction(func(sp *gorm.DB) error {
			ok, err := step(sp)
			applied = ok
			return err
		})
		if err != nil {
			obslogger.WithContext(ctx, r.log).Warn("cascade failed, primary update kept",
				zap.String("transition", transition),
				zap.String("policy", string(policy)),
				zap.Error(err),
			)
			r.metrics.RecordCascade(ctx, transition, metrics.CascadeOutcomeFailed)
			return nil
		}
		r.record(ctx, transition, applied)
		return nil
	}

	applied, err := step(tx)
	if err != nil {
		r.metrics.RecordCascade(ctx, transition, metrics.CascadeOutcomeFailed)
		return &Error{Transition: transition, Err: err}
	}
	r.record(ctx, transition, applied)
	return nil
}

func (r *Runner) record(ctx context.Context, transition string, applied bool) {
	outcome := metrics.CascadeOutcomeSkipped
	if applied {
		outcome = metrics.CascadeOutcomeApplied
	}
	r.metrics.RecordCascade(ctx, transition, outcome)
}
