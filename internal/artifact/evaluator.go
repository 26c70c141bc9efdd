package artifact

import (
	"context"
	"errors"
	"io/fs"

	"github.com/chainguard-dev/clog"

	"github.com/roach88/iseven/internal/domain"
)

// Evaluator runs stored artifacts against a target.
type Evaluator struct {
	store Store
}

// NewEvaluator returns an evaluator reading artifacts from store.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate loads the artifact for item and runs it with target.
// Every failure is a load error naming the artifact's location.
func (e *Evaluator) Evaluate(ctx context.Context, item domain.WorkItem, target uint32) (domain.Verdict, error) {
	loc := e.store.Location(item.Name)

	code, release, err := e.store.Open(ctx, item.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Inconclusive, domain.NewLoadError(loc, "missing artifact", err)
		}
		return domain.Inconclusive, domain.NewLoadError(loc, "cannot open artifact", err)
	}
	defer func() {
		if err := release(); err != nil {
			clog.WarnContextf(ctx, "release %s: %v", loc, err)
		}
	}()

	eax, err := Interpret(code, target)
	switch {
	case errors.Is(err, ErrEmpty):
		return domain.Inconclusive, domain.NewLoadError(loc, "missing artifact", nil)
	case err != nil:
		return domain.Inconclusive, domain.NewLoadError(loc, "cannot execute artifact", err)
	}

	v := VerdictOf(eax)
	clog.DebugContextf(ctx, "evaluated %s: %s", item.Name, v)
	return v, nil
}
