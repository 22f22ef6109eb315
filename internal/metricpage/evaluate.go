package metricpage

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-fed-dashboard/internal/connectors/prometheus"
	"go-fed-dashboard/internal/errchain"
	"go-fed-dashboard/internal/helpers"
)

// Querier runs range queries against the time-series backend.
type Querier interface {
	QueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]prometheus.Series, error)
}

// WidgetValue is a widget together with its evaluated data.
type WidgetValue struct {
	Widget
	Value  *float64            `json:"value,omitempty"`
	Series []prometheus.Series `json:"series,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Evaluator resolves composed pages against a Querier.
type Evaluator struct {
	q           Querier
	window      time.Duration
	step        time.Duration
	concurrency int
	now         func() time.Time
}

func NewEvaluator(q Querier, window, step time.Duration) *Evaluator {
	if window <= 0 {
		window = time.Hour
	}
	if step <= 0 {
		step = time.Minute
	}
	return &Evaluator{q: q, window: window, step: step, concurrency: 4, now: time.Now}
}

// Evaluate queries every widget of p. A failing widget carries its formatted
// error; the others are still returned.
func (e *Evaluator) Evaluate(ctx context.Context, p Page) []WidgetValue {
	end := e.now().UTC()
	start := end.Add(-e.window)

	out := make([]WidgetValue, len(p.Widgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, w := range p.Widgets {
		g.Go(func() error {
			out[i] = e.evaluateWidget(gctx, w, start, end)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Evaluator) evaluateWidget(ctx context.Context, w Widget, start, end time.Time) WidgetValue {
	wv := WidgetValue{Widget: w}
	series, err := e.q.QueryRange(ctx, w.Query, start, end, e.step)
	if err != nil {
		log.WithError(err).WithField("widget", w.Key).Warn("Metric query failed")
		wv.Error = errchain.Format(err)
		return wv
	}

	if w.Kind.IsGraph() {
		wv.Series = series
		return wv
	}
	if v, ok := Reduce(series, w.FinalType); ok {
		wv.Value = &v
	}
	return wv
}

// Reduce collapses series into one number: each series is reduced by ft and
// the per-series results are added. ok is false when there is no data.
func Reduce(series []prometheus.Series, ft FinalType) (float64, bool) {
	total := 0.0
	found := false
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		values := make([]float64, 0, len(s.Points))
		for _, p := range s.Points {
			values = append(values, p.Value)
		}

		var v float64
		switch ft {
		case FinalSum:
			for _, x := range values {
				v += x
			}
		case FinalAvg:
			v = helpers.Average(values)
		default:
			v = values[len(values)-1]
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total += v
		found = true
	}
	return total, found
}
