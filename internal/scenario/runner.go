package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
)

// File permission constants.
const (
	outputFilePermission = 0600
)

// Session is the part of app.Service a scenario drives.
type Session interface {
	Interact(ctx context.Context, kind query.ChartKind, ev render.Event) error
	SetDateRange(ctx context.Context, start, end filter.YearMonth) error
	SelectCategory(ctx context.Context, category string) error
	SelectSubcategory(ctx context.Context, subcategory string) error
	OpenSimilarity(ctx context.Context) error
	CloseSimilarity(ctx context.Context) error
	SubmitSimilarity(ctx context.Context, opts analysis.Options) error
	Reset(ctx context.Context) error
	Pan(ctx context.Context, dLon, dLat float64) (render.View, error)
	Zoom(ctx context.Context, ticks int) (render.View, error)
	Settle(ctx context.Context) error
	Snapshot(ctx context.Context) (app.Snapshot, error)
}

var _ Session = (*app.Service)(nil)

// Stats holds replay statistics.
type Stats struct {
	StepsApplied        int           `json:"steps_applied"`
	StepsRejected       int           `json:"steps_rejected"`
	ExpectationsChecked int           `json:"expectations_checked"`
	StartTime           time.Time     `json:"start_time"`
	EndTime             time.Time     `json:"end_time"`
	Duration            time.Duration `json:"duration"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int    `json:"index"`
	Action Action `json:"action"`
	Error  string `json:"error,omitempty"`
}

// Report is what a replay produced.
type Report struct {
	Name  string       `json:"name,omitempty"`
	Steps []StepResult `json:"steps"`
	Stats Stats        `json:"stats"`
	Final app.Snapshot `json:"final"`
}

// Run applies the steps in order, settling the session after each one, and
// returns the final snapshot. A rejected step stops the run unless it allows
// errors; a failed expectation always does.
func Run(ctx context.Context, sess Session, script *Script) (*Report, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("scenario")
	rep := &Report{Name: script.Name, Stats: Stats{StartTime: time.Now()}}

	log.Info(ctx, "starting scenario",
		logger.String("name", script.Name),
		logger.Int("steps", len(script.Steps)))

	for i, st := range script.Steps {
		res := StepResult{Index: i + 1, Action: st.Action}
		err := apply(ctx, sess, st)
		if err == nil {
			err = sess.Settle(ctx)
		}
		if err != nil {
			res.Error = err.Error()
			rep.Steps = append(rep.Steps, res)
			rep.Stats.StepsRejected++
			if !st.AllowError {
				return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
			}
			log.Info(ctx, "step rejected", logger.Int("step", i+1), logger.String("action", string(st.Action)), logger.Error(err))
			continue
		}
		rep.Steps = append(rep.Steps, res)
		rep.Stats.StepsApplied++
		log.Debug(ctx, "step applied", logger.Int("step", i+1), logger.String("action", string(st.Action)))

		if st.Expect != nil {
			snap, err := sess.Snapshot(ctx)
			if err != nil {
				return rep, fmt.Errorf("step %d: snapshot: %w", i+1, err)
			}
			rep.Stats.ExpectationsChecked++
			if err := st.Expect.Verify(snap); err != nil {
				return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
			}
		}
	}

	final, err := sess.Snapshot(ctx)
	if err != nil {
		return rep, fmt.Errorf("final snapshot: %w", err)
	}
	rep.Final = final
	rep.Stats.EndTime = time.Now()
	rep.Stats.Duration = rep.Stats.EndTime.Sub(rep.Stats.StartTime)

	log.Info(ctx, "scenario completed",
		logger.Int("applied", rep.Stats.StepsApplied),
		logger.Int("rejected", rep.Stats.StepsRejected),
		logger.Int("expectations", rep.Stats.ExpectationsChecked),
		logger.Duration("duration", rep.Stats.Duration))
	return rep, nil
}

func apply(ctx context.Context, sess Session, st Step) error {
	switch st.Action {
	case ClickCountry:
		return sess.Interact(ctx, query.Map, render.Event{Kind: render.Click, Points: []render.Point{{Location: st.Country}}})
	case HoverCountry:
		return sess.Interact(ctx, query.Map, render.Event{Kind: render.Hover, Points: []render.Point{{Location: st.Country}}})
	case ClickProfile:
		return sess.Interact(ctx, query.Profiles, render.Event{Kind: render.Click, Points: []render.Point{{Label: st.Profile}}})
	case DateRange:
		start, err := filter.ParseYearMonth(st.Start)
		if err != nil {
			return err
		}
		end, err := filter.ParseYearMonth(st.End)
		if err != nil {
			return err
		}
		return sess.SetDateRange(ctx, start, end)
	case Category:
		return sess.SelectCategory(ctx, st.Category)
	case Subcategory:
		return sess.SelectSubcategory(ctx, st.Subcategory)
	case OpenSimilarity:
		return sess.OpenSimilarity(ctx)
	case CloseSimilarity:
		return sess.CloseSimilarity(ctx)
	case Lasso:
		pts := make([]render.Point, len(st.Customers))
		for i, id := range st.Customers {
			pts[i] = render.Point{Index: i, CustomerID: id}
		}
		return sess.Interact(ctx, query.Similarity, render.Event{Kind: render.Select, Points: pts})
	case Deselect:
		return sess.Interact(ctx, query.Similarity, render.Event{Kind: render.Deselect})
	case ClickCustomer:
		return sess.Interact(ctx, query.Similarity, render.Event{Kind: render.Click, Points: []render.Point{{CustomerID: st.Customer}}})
	case SimilarityOptions:
		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return err
		}
		return sess.SubmitSimilarity(ctx, st.Options.apply(snap.Analysis))
	case ClickSalesDate:
		return sess.Interact(ctx, query.Sales, render.Event{Kind: render.Click, Points: []render.Point{{X: st.Date}}})
	case Reset:
		return sess.Reset(ctx)
	case Pan:
		_, err := sess.Pan(ctx, st.Lon, st.Lat)
		return err
	case Zoom:
		_, err := sess.Zoom(ctx, st.Ticks)
		return err
	}
	return fmt.Errorf("%w: unknown action %q", ErrInvalidScript, st.Action)
}

func (c *OptionsChange) apply(o analysis.Options) analysis.Options {
	if c.CustomerID != nil {
		o.CustomerID = *c.CustomerID
	}
	if c.K != nil {
		o.K = *c.K
	}
	if c.Metric != nil {
		o.Metric = *c.Metric
	}
	if c.Normalization != nil {
		o.Normalization = *c.Normalization
	}
	if c.Embedding != nil {
		o.Embedding = *c.Embedding
	}
	if c.XAxis != nil {
		x := *c.XAxis
		o.XAxis = &x
	}
	if c.YAxis != nil {
		y := *c.YAxis
		o.YAxis = &y
	}
	return o
}

// WriteReport writes the report as indented JSON to path, or to stdout when
// path is empty or "-".
func WriteReport(ctx context.Context, rep *Report, path string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, outputFilePermission); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Get().Info(ctx, "report saved to file", logger.String("filename", path))
	return nil
}
