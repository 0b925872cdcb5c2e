package scenario_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/scenario"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// fakeSession applies a small subset of the dashboard rules to a snapshot
// and records every call.
type fakeSession struct {
	calls   []string
	events  []render.Event
	snap    app.Snapshot
	settled int
	reject  map[string]error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snap: app.Snapshot{
			Analysis: analysis.Defaults(),
			Charts:   map[query.ChartKind]app.ChartStatus{},
		},
		reject: map[string]error{},
	}
}

func (f *fakeSession) do(name string) error {
	f.calls = append(f.calls, name)
	return f.reject[name]
}

func (f *fakeSession) Interact(_ context.Context, kind query.ChartKind, ev render.Event) error {
	if err := f.do("interact:" + string(kind) + ":" + string(ev.Kind)); err != nil {
		return err
	}
	f.events = append(f.events, ev)
	switch {
	case kind == query.Map && ev.Kind == render.Click:
		loc := ev.Points[0].Location
		if f.snap.Filters.Country == loc {
			loc = ""
		}
		f.snap.Filters.Country = loc
	case kind == query.Profiles && ev.Kind == render.Click:
		f.snap.Filters.Profile = ev.Points[0].Label
	case kind == query.Similarity && ev.Kind == render.Select:
		ids := make([]string, len(ev.Points))
		for i, p := range ev.Points {
			ids[i] = p.CustomerID
		}
		f.snap.Filters.SelectedCustomers = ids
	case kind == query.Similarity && ev.Kind == render.Deselect:
		f.snap.Filters.SelectedCustomers = nil
	}
	return nil
}

func (f *fakeSession) SetDateRange(_ context.Context, start, end filter.YearMonth) error {
	if err := f.do("date_range"); err != nil {
		return err
	}
	f.snap.Filters.DateStart, f.snap.Filters.DateEnd = start, end
	return nil
}

func (f *fakeSession) SelectCategory(_ context.Context, category string) error {
	if err := f.do("category"); err != nil {
		return err
	}
	f.snap.Filters.Category, f.snap.Filters.Subcategory = category, ""
	return nil
}

func (f *fakeSession) SelectSubcategory(_ context.Context, subcategory string) error {
	if err := f.do("subcategory"); err != nil {
		return err
	}
	f.snap.Filters.Subcategory = subcategory
	return nil
}

func (f *fakeSession) OpenSimilarity(context.Context) error {
	if err := f.do("open"); err != nil {
		return err
	}
	f.snap.SimilarityOpen = true
	return nil
}

func (f *fakeSession) CloseSimilarity(context.Context) error {
	if err := f.do("close"); err != nil {
		return err
	}
	f.snap.SimilarityOpen = false
	return nil
}

func (f *fakeSession) SubmitSimilarity(_ context.Context, opts analysis.Options) error {
	if err := f.do("options"); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	f.snap.Analysis = opts
	return nil
}

func (f *fakeSession) Reset(context.Context) error {
	if err := f.do("reset"); err != nil {
		return err
	}
	f.snap.Filters.SelectedCustomers = nil
	f.snap.Analysis = analysis.Defaults()
	return nil
}

func (f *fakeSession) Pan(_ context.Context, dLon, dLat float64) (render.View, error) {
	return render.View{CenterLon: dLon, CenterLat: dLat, Scale: 1}, f.do("pan")
}

func (f *fakeSession) Zoom(_ context.Context, ticks int) (render.View, error) {
	return render.View{Scale: float64(ticks)}, f.do("zoom")
}

func (f *fakeSession) Settle(context.Context) error {
	f.settled++
	return nil
}

func (f *fakeSession) Snapshot(context.Context) (app.Snapshot, error) {
	return f.snap, nil
}

const walkthrough = `
name: walkthrough
steps:
  - action: click_country
    country: Germany
    expect:
      country: Germany
  - action: click_profile
    profile: Minorista Lujo
  - action: date_range
    start: "2010-12"
    end: "2011-06"
    expect:
      date_start: "2010-12"
      date_end: "2011-06"
  - action: open_similarity
    expect:
      similarity_open: true
  - action: lasso
    customers: ["12347", "12348"]
    expect:
      selected_customers: ["12347", "12348"]
  - action: similarity_options
    options:
      k: 25
      metric: cosine
    expect:
      k: 25
  - action: click_sales_date
    date: "2011-03-01"
  - action: pan
    lon: 10
    lat: 5
  - action: zoom
    ticks: 2
  - action: click_country
    country: Germany
    expect:
      country: ""
`

func TestParse(t *testing.T) {
	Convey("Given scenario scripts", t, func() {
		Convey("A complete script parses", func() {
			s, err := scenario.Parse(strings.NewReader(walkthrough))
			So(err, ShouldBeNil)
			So(s.Name, ShouldEqual, "walkthrough")
			So(s.Steps, ShouldHaveLength, 10)
			So(s.Steps[0].Action, ShouldEqual, scenario.ClickCountry)
			So(*s.Steps[5].Options.K, ShouldEqual, 25)
			So(s.Steps[5].Options.Normalization, ShouldBeNil)
		})

		Convey("Unknown keys are rejected", func() {
			_, err := scenario.Parse(strings.NewReader("steps:\n  - action: reset\n    colour: red\n"))
			So(errors.Is(err, scenario.ErrInvalidScript), ShouldBeTrue)
		})

		Convey("Unknown actions are rejected", func() {
			_, err := scenario.Parse(strings.NewReader("steps:\n  - action: teleport\n"))
			So(errors.Is(err, scenario.ErrInvalidScript), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "teleport")
		})

		Convey("Missing required fields are rejected", func() {
			for _, doc := range []string{
				"steps:\n  - action: click_country\n",
				"steps:\n  - action: date_range\n    start: \"2011-01\"\n",
				"steps:\n  - action: lasso\n",
				"steps:\n  - action: similarity_options\n",
			} {
				_, err := scenario.Parse(strings.NewReader(doc))
				So(errors.Is(err, scenario.ErrInvalidScript), ShouldBeTrue)
			}
		})

		Convey("An empty script is rejected", func() {
			_, err := scenario.Parse(strings.NewReader("name: nothing\n"))
			So(errors.Is(err, scenario.ErrInvalidScript), ShouldBeTrue)
		})

		Convey("Load reads from disk", func() {
			path := filepath.Join(t.TempDir(), "walk.yaml")
			So(os.WriteFile(path, []byte(walkthrough), 0o600), ShouldBeNil)
			s, err := scenario.Load(path)
			So(err, ShouldBeNil)
			So(s.Steps, ShouldHaveLength, 10)

			_, err = scenario.Load(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given a parsed walkthrough", t, func() {
		script, err := scenario.Parse(strings.NewReader(walkthrough))
		So(err, ShouldBeNil)
		sess := newFakeSession()

		Convey("Every step is applied and settled in order", func() {
			rep, err := scenario.Run(ctx, sess, script)
			So(err, ShouldBeNil)
			So(rep.Stats.StepsApplied, ShouldEqual, 10)
			So(rep.Stats.StepsRejected, ShouldEqual, 0)
			So(rep.Stats.ExpectationsChecked, ShouldEqual, 6)
			So(sess.settled, ShouldEqual, 10)
			So(sess.calls, ShouldResemble, []string{
				"interact:map:click",
				"interact:profiles:click",
				"date_range",
				"open",
				"interact:similarity:select",
				"options",
				"interact:sales:click",
				"pan",
				"zoom",
				"interact:map:click",
			})
			So(rep.Final.Filters.Profile, ShouldEqual, "Minorista Lujo")
			So(rep.Final.Filters.Country, ShouldEqual, "")
		})

		Convey("Events carry what the charts report", func() {
			_, err := scenario.Run(ctx, sess, script)
			So(err, ShouldBeNil)
			So(sess.events[1].Points[0].Label, ShouldEqual, "Minorista Lujo")
			So(sess.events[2].Points, ShouldHaveLength, 2)
			So(sess.events[2].Points[1].CustomerID, ShouldEqual, "12348")
			So(sess.events[3].Points[0].X, ShouldEqual, "2011-03-01")
		})

		Convey("Option changes keep the fields they do not name", func() {
			rep, err := scenario.Run(ctx, sess, script)
			So(err, ShouldBeNil)
			So(rep.Final.Analysis.K, ShouldEqual, 25)
			So(rep.Final.Analysis.Metric, ShouldEqual, "cosine")
			So(rep.Final.Analysis.Normalization, ShouldEqual, analysis.Defaults().Normalization)
		})
	})

	Convey("Given rejected steps", t, func() {
		sess := newFakeSession()
		sess.reject["reset"] = app.ErrBackpressure

		Convey("A rejection stops the run", func() {
			script := &scenario.Script{Steps: []scenario.Step{
				{Action: scenario.Reset},
				{Action: scenario.OpenSimilarity},
			}}
			rep, err := scenario.Run(ctx, sess, script)
			So(errors.Is(err, app.ErrBackpressure), ShouldBeTrue)
			So(rep.Stats.StepsRejected, ShouldEqual, 1)
			So(sess.calls, ShouldResemble, []string{"reset"})
		})

		Convey("An allowed rejection is recorded and skipped", func() {
			script := &scenario.Script{Steps: []scenario.Step{
				{Action: scenario.Reset, AllowError: true},
				{Action: scenario.OpenSimilarity},
			}}
			rep, err := scenario.Run(ctx, sess, script)
			So(err, ShouldBeNil)
			So(rep.Steps[0].Error, ShouldNotBeEmpty)
			So(rep.Steps[1].Error, ShouldBeEmpty)
			So(rep.Stats.StepsApplied, ShouldEqual, 1)
			So(rep.Final.SimilarityOpen, ShouldBeTrue)
		})

		Convey("Invalid options are rejected by the session", func() {
			k := 0
			script := &scenario.Script{Steps: []scenario.Step{
				{Action: scenario.SimilarityOptions, Options: &scenario.OptionsChange{K: &k}},
			}}
			_, err := scenario.Run(ctx, sess, script)
			So(errors.Is(err, analysis.ErrValidation), ShouldBeTrue)
		})

		Convey("A malformed date is a step error", func() {
			script := &scenario.Script{Steps: []scenario.Step{
				{Action: scenario.DateRange, Start: "2011/01", End: "2011-02"},
			}}
			_, err := scenario.Run(ctx, sess, script)
			So(err, ShouldNotBeNil)
			So(sess.calls, ShouldBeEmpty)
		})
	})

	Convey("Given unmet expectations", t, func() {
		sess := newFakeSession()
		want := "France"
		script := &scenario.Script{Steps: []scenario.Step{
			{Action: scenario.ClickCountry, Country: "Germany", Expect: &scenario.Expect{Country: &want}},
		}}

		Convey("The run fails with every mismatch", func() {
			_, err := scenario.Run(ctx, sess, script)
			So(errors.Is(err, scenario.ErrExpectation), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, `want "France", got "Germany"`)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		snap := app.Snapshot{
			Charts: map[query.ChartKind]app.ChartStatus{
				query.Sales:    {State: app.Error, Message: "boom"},
				query.Products: {State: app.Idle, Empty: true},
			},
			Lasso: app.Lasso{Countries: []string{"France", "Germany"}},
		}

		Convey("Matching charts pass", func() {
			e := &scenario.Expect{
				Charts:         map[string]string{"sales": "error", "products": "idle"},
				Empty:          []string{"products"},
				LassoCountries: []string{"France", "Germany"},
			}
			So(e.Verify(snap), ShouldBeNil)
		})

		Convey("All mismatches are reported together", func() {
			open := true
			e := &scenario.Expect{
				Charts:         map[string]string{"sales": "idle"},
				Empty:          []string{"sales"},
				SimilarityOpen: &open,
			}
			err := e.Verify(snap)
			So(errors.Is(err, scenario.ErrExpectation), ShouldBeTrue)
			msg := err.Error()
			So(msg, ShouldContainSubstring, "chart sales: want idle, got error")
			So(msg, ShouldContainSubstring, "no-data")
			So(msg, ShouldContainSubstring, "similarity_open")
		})
	})
}

func TestWriteReport(t *testing.T) {
	Convey("Given a report", t, func() {
		rep := &scenario.Report{Name: "r", Steps: []scenario.StepResult{{Index: 1, Action: scenario.Reset}}}
		path := filepath.Join(t.TempDir(), "report.json")

		Convey("It is written as JSON", func() {
			So(scenario.WriteReport(context.Background(), rep, path), ShouldBeNil)
			b, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"action": "reset"`)
			So(string(b), ShouldContainSubstring, fmt.Sprintf(`"name": %q`, "r"))
		})
	})
}
