package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/adapters/render"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/app"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/config"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService(t *testing.T) {
	Convey("Given a service with an injected backend", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DebounceMS = 10
		cfg.FetchWorkers = 2
		fb := newFakeBackend()
		svc := app.NewService(cfg, initialData(), app.WithBackend(fb))

		Convey("Calls before Start fail", func() {
			_, err := svc.Snapshot(ctx)
			So(errors.Is(err, app.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Frame(query.Map)
			So(errors.Is(err, app.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)

			Convey("Interactions reach the controller", func() {
				err := svc.Interact(ctx, query.Map, render.Event{Kind: render.Click, Points: []render.Point{{Location: "Germany"}}})
				So(err, ShouldBeNil)
				So(svc.Settle(ctx), ShouldBeNil)

				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Filters.Country, ShouldEqual, "Germany")
				f, err := svc.Frame(query.Profiles)
				So(err, ShouldBeNil)
				So(f.Spec.Layout["title"], ShouldEqual, "/api/customer-profiles/Germany/")
			})

			Convey("Events nobody listens to are reported", func() {
				err := svc.Interact(ctx, query.Products, render.Event{Kind: render.Click})
				So(errors.Is(err, app.ErrNoHandler), ShouldBeTrue)
			})

			Convey("Unknown charts are rejected", func() {
				err := svc.Interact(ctx, query.Categories, render.Event{Kind: render.Click})
				So(errors.Is(err, render.ErrUnknownTarget), ShouldBeTrue)
			})

			Convey("Commands are delegated", func() {
				So(svc.SelectCategory(ctx, "Juguetes"), ShouldBeNil)
				So(svc.SelectSubcategory(ctx, "Peluches"), ShouldBeNil)
				v, err := svc.Zoom(ctx, 2)
				So(err, ShouldBeNil)
				So(v.Scale, ShouldBeGreaterThan, 1.0)
				So(svc.Settle(ctx), ShouldBeNil)
				snap, _ := svc.Snapshot(ctx)
				So(snap.Filters.Subcategory, ShouldEqual, "Peluches")
			})

			Convey("Stop ends the session", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				_, err := svc.Snapshot(ctx)
				So(errors.Is(err, app.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service whose initial data has no map", t, func() {
		ctx := context.Background()
		data := initialData()
		data.WorldMap = nil
		svc := app.NewService(config.New(), data, app.WithBackend(newFakeBackend()))

		Convey("Start fails and the error stays visible", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, app.ErrMissingPrerequisite), ShouldBeTrue)
			f, ferr := svc.Engine().Frame(app.DefaultTargets().Dashboard)
			So(ferr, ShouldBeNil)
			So(f.Notice, ShouldContainSubstring, "world map")
		})
	})
}
