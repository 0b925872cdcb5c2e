package similarity

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const payload = `{
  "embedding": [
    {"id": 12346.0, "x": 0.1, "y": 0.2, "cluster": 0, "customer_type": "Minorista Estándar", "outlier": false, "total_spent": 10, "frequency": 1, "unique_products": 1, "country": "Germany"},
    {"id": "12347", "x": 0.3, "y": 0.1, "cluster": 0, "customer_type": "Minorista Estándar", "outlier": true, "total_spent": 20, "frequency": 2, "unique_products": 2, "country": "France"},
    {"id": 12348, "x": 0.5, "y": 0.9, "cluster": 1, "customer_type": "Mayorista Lujo", "outlier": false, "total_spent": 30, "frequency": 3, "unique_products": 3, "country": "Germany"}
  ],
  "neighbors": [{"id": "12348", "distance": 0.4, "rank": 1}],
  "edges": [{"source": "12346", "target": "12348"}],
  "total_customers": 3,
  "axis_info": {"use_pca": true, "x_axis_name": null, "y_axis_name": null},
  "pca_variance": {"pc1_variance": 41.5, "pc2_variance": 22.3, "total_variance": 63.8, "pc1_features": ["Monetary"], "pc2_features": []}
}`

func decode() Result {
	var r Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		panic(err)
	}
	return r
}

func TestResultDecode(t *testing.T) {
	Convey("Given a compute payload", t, func() {
		r := decode()

		Convey("Numeric and string ids normalize to the same form", func() {
			So(string(r.Embedding[0].ID), ShouldEqual, "12346")
			So(string(r.Embedding[1].ID), ShouldEqual, "12347")
			So(string(r.Embedding[2].ID), ShouldEqual, "12348")
		})

		Convey("It is not empty", func() {
			So(r.IsEmpty(), ShouldBeFalse)
			So(Result{}.IsEmpty(), ShouldBeTrue)
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given a lasso over three customers", t, func() {
		sel := decode().Select([]string{"12346", "12347", "12348", "12346", "99999"})

		Convey("Ids are distinct and keep order", func() {
			So(sel.CustomerIDs, ShouldResemble, []string{"12346", "12347", "12348", "99999"})
		})

		Convey("Countries and profiles are the distinct sets covered", func() {
			So(sel.Countries, ShouldResemble, map[string]bool{"Germany": true, "France": true})
			So(sel.Profiles, ShouldResemble, map[string]bool{"Minorista Estándar": true, "Mayorista Lujo": true})
		})
	})
}

func TestSpec(t *testing.T) {
	Convey("Given a result with a focused customer", t, func() {
		s := decode().Spec("12346")

		Convey("The edge is drawn first", func() {
			So(s.Data[0]["mode"], ShouldEqual, "lines")
		})

		Convey("Every marker trace carries customer ids", func() {
			ids := []string{}
			for _, tr := range s.Data[1:] {
				for _, cd := range tr["customdata"].([]any) {
					ids = append(ids, cd.([]any)[0].(string))
				}
			}
			So(ids, ShouldHaveLength, 3)
			So(ids, ShouldContain, "12346")
		})

		Convey("The focused customer gets its own trace", func() {
			var names []string
			for _, tr := range s.Data[1:] {
				names = append(names, tr["name"].(string))
			}
			So(names, ShouldContain, "Cliente Seleccionado")
			So(names, ShouldContain, "Cluster 0: Minorista Estándar (100%) (Atípicos)")
			So(names, ShouldContain, "Vecinos - Cluster 1: Mayorista Lujo (100%)")
		})

		Convey("Axis titles come from the explained variance", func() {
			So(s.Layout["xaxis"].(map[string]any)["title"], ShouldEqual, "Monetary (41.5%)")
			So(s.Layout["yaxis"].(map[string]any)["title"], ShouldEqual, "Dimensión 2 (22.3%)")
			So(s.Layout["dragmode"], ShouldEqual, "lasso")
		})
	})

	Convey("Given an empty result", t, func() {
		s := Result{}.Spec("")
		So(s.IsEmpty(), ShouldBeTrue)
	})
}
