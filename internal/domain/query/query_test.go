package query

import (
	"errors"
	"net/http"
	"testing"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/analysis"
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/filter"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	Convey("Given an empty filter state", t, func() {
		var s filter.State

		Convey("Every ordinary request omits unset parameters", func() {
			for _, kind := range []ChartKind{Profiles, Sales, Products, CustomerIDs, Categories} {
				r, ok := Build(s, kind)
				So(ok, ShouldBeTrue)
				So(r.Params, ShouldBeEmpty)
				So(r.Method, ShouldEqual, http.MethodGet)
			}
		})

		Convey("Profiles use the global endpoint", func() {
			r, _ := Build(s, Profiles)
			So(r.Path, ShouldEqual, "/api/customer-profiles-global/")
		})

		Convey("Map and similarity are not filter-derived", func() {
			_, ok := Build(s, Map)
			So(ok, ShouldBeFalse)
			_, ok = Build(s, Similarity)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a fully populated filter state", t, func() {
		s := filter.State{
			Country:     "United Kingdom",
			Profile:     "Minorista Estándar",
			DateStart:   filter.MustYearMonth("2011-01"),
			DateEnd:     filter.MustYearMonth("2011-06"),
			Category:    "Kitchen",
			Subcategory: "Mugs",
		}

		Convey("Profiles put the country in the path", func() {
			r, _ := Build(s, Profiles)
			So(r.Path, ShouldEqual, "/api/customer-profiles/United%20Kingdom/")
			So(r.Params, ShouldResemble, Params{{"start_date", "2011-01"}, {"end_date", "2011-06"}})
		})

		Convey("Sales carry country, profile and dates in order", func() {
			r, _ := Build(s, Sales)
			So(r.Params, ShouldResemble, Params{
				{"country", "United Kingdom"},
				{"profile", "Minorista Estándar"},
				{"start_date", "2011-01"},
				{"end_date", "2011-06"},
			})
		})

		Convey("Products add category and subcategory", func() {
			r, _ := Build(s, Products)
			v, ok := r.Params.Get("subcategory")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "Mugs")
			So(len(r.Params), ShouldEqual, 6)
		})

		Convey("Customer ids ignore the profile", func() {
			r, _ := Build(s, CustomerIDs)
			So(r.Params.Has("profile"), ShouldBeFalse)
			So(r.Params.Has("country"), ShouldBeTrue)
		})

		Convey("Keys differ when any filter differs", func() {
			r1, _ := Build(s, Products)
			s.Subcategory = ""
			r2, _ := Build(s, Products)
			So(r1.Key(), ShouldNotEqual, r2.Key())
		})
	})
}

func TestBuildSimilarity(t *testing.T) {
	Convey("Given analysis options", t, func() {
		s := filter.State{Country: "Germany"}
		opts := analysis.Defaults()

		Convey("k=0 and k=501 produce no request", func() {
			for _, k := range []int{0, 501} {
				opts.K = k
				r, err := BuildSimilarity(s, opts)
				So(errors.Is(err, analysis.ErrValidation), ShouldBeTrue)
				So(r, ShouldResemble, Request{})
			}
		})

		Convey("k=1 and k=500 are accepted", func() {
			for _, k := range []int{1, 500} {
				opts.K = k
				r, err := BuildSimilarity(s, opts)
				So(err, ShouldBeNil)
				So(r.Method, ShouldEqual, http.MethodPost)
				So(r.Body.(SimilarityBody).K, ShouldEqual, k)
			}
		})

		Convey("Unset filters are sent as null and axes only in pairs", func() {
			r, err := BuildSimilarity(filter.State{}, opts)
			So(err, ShouldBeNil)
			body := r.Body.(SimilarityBody)
			So(body.Country, ShouldBeNil)
			So(body.StartDate, ShouldBeNil)
			So(body.CustomerID, ShouldBeNil)
			So(body.XAxis, ShouldBeNil)

			x, y := 0, 2
			opts.XAxis, opts.YAxis = &x, &y
			r, err = BuildSimilarity(filter.State{}, opts)
			So(err, ShouldBeNil)
			So(*r.Body.(SimilarityBody).YAxis, ShouldEqual, 2)
		})

		Convey("The key folds in every option", func() {
			a, _ := BuildSimilarity(s, opts)
			opts.Metric = "cosine"
			b, _ := BuildSimilarity(s, opts)
			So(a.Key(), ShouldNotEqual, b.Key())
			So(b.Key(), ShouldContainSubstring, "metric=cosine")
		})
	})
}

func TestBuildProductsView(t *testing.T) {
	Convey("Given a lasso selection", t, func() {
		s := filter.State{
			Country:           "Germany",
			Profile:           "Minorista Estándar",
			Category:          "Kitchen",
			SelectedCustomers: []string{"1", "2", "3"},
		}

		Convey("The products view is the customer override", func() {
			r := BuildProductsView(s)
			So(r.Kind, ShouldEqual, CustomerProducts)
			body := r.Body.(CustomerProductsBody)
			So(body.CustomerIDs, ShouldResemble, []string{"1", "2", "3"})
			So(*body.Category, ShouldEqual, "Kitchen")
			So(body.Subcategory, ShouldBeNil)
			So(r.Key(), ShouldNotContainSubstring, "Germany")
		})

		Convey("Without a selection it falls back to the ordinary query", func() {
			s.SelectedCustomers = nil
			r := BuildProductsView(s)
			So(r.Kind, ShouldEqual, Products)
			So(r.Params.Has("country"), ShouldBeTrue)
		})
	})
}

func TestBuildSalesDetail(t *testing.T) {
	Convey("Given a clicked trend date", t, func() {
		r := BuildSalesDetail(filter.State{Profile: "Mayorista Lujo"}, "2011-05-12")
		So(r.Path, ShouldEqual, "/api/sales-detail/2011-05-12/")
		So(r.Params, ShouldResemble, Params{{"profile", "Mayorista Lujo"}})
	})
}
