// Package similarity models the customer-similarity result returned by the
// backend and turns it into a scatter chart spec.
package similarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/chart"
)

// CustomerID accepts both numeric and string identifiers on the wire.
type CustomerID string

// UnmarshalJSON normalizes 12346, 12346.0 and "12346" to "12346".
func (id *CustomerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CustomerID(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("customer id %s: %w", string(b), err)
	}
	*id = CustomerID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Point is one customer in the 2-D embedding.
type Point struct {
	ID             CustomerID `json:"id"`
	X              float64    `json:"x"`
	Y              float64    `json:"y"`
	Cluster        int        `json:"cluster"`
	CustomerType   string     `json:"customer_type"`
	Outlier        bool       `json:"outlier"`
	TotalSpent     float64    `json:"total_spent"`
	Frequency      float64    `json:"frequency"`
	UniqueProducts float64    `json:"unique_products"`
	Country        string     `json:"country"`
}

// Neighbor is one of the k nearest customers of the focused customer.
type Neighbor struct {
	ID       CustomerID `json:"id"`
	Distance float64    `json:"distance"`
	Rank     int        `json:"rank"`
}

// Edge links the focused customer to a neighbor.
type Edge struct {
	Source CustomerID `json:"source"`
	Target CustomerID `json:"target"`
}

// AxisInfo describes manual feature axes.
type AxisInfo struct {
	UsePCA    bool    `json:"use_pca"`
	XAxisName *string `json:"x_axis_name"`
	YAxisName *string `json:"y_axis_name"`
}

// Variance describes the explained variance of the projection.
type Variance struct {
	PC1      *float64 `json:"pc1_variance"`
	PC2      *float64 `json:"pc2_variance"`
	Total    *float64 `json:"total_variance"`
	PC1Names []string `json:"pc1_features"`
	PC2Names []string `json:"pc2_features"`
}

// Result is the compute endpoint's payload.
type Result struct {
	Embedding      []Point    `json:"embedding"`
	Neighbors      []Neighbor `json:"neighbors"`
	Edges          []Edge     `json:"edges"`
	TotalCustomers int        `json:"total_customers"`
	AxisInfo       *AxisInfo  `json:"axis_info,omitempty"`
	Variance       *Variance  `json:"pca_variance,omitempty"`
}

// IsEmpty reports a result without points.
func (r Result) IsEmpty() bool { return len(r.Embedding) == 0 }

// Index maps customer ids to their points.
func (r Result) Index() map[string]Point {
	out := make(map[string]Point, len(r.Embedding))
	for _, p := range r.Embedding {
		out[string(p.ID)] = p
	}
	return out
}

// Selection is what a lasso over the scatter covers.
type Selection struct {
	CustomerIDs []string
	Countries   map[string]bool
	Profiles    map[string]bool
}

// Select derives the distinct countries and profiles of the selected ids.
// Unknown ids are kept in CustomerIDs but contribute no country or profile.
func (r Result) Select(ids []string) Selection {
	idx := r.Index()
	sel := Selection{Countries: map[string]bool{}, Profiles: map[string]bool{}}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sel.CustomerIDs = append(sel.CustomerIDs, id)
		if p, ok := idx[id]; ok {
			if p.Country != "" {
				sel.Countries[p.Country] = true
			}
			if p.CustomerType != "" {
				sel.Profiles[p.CustomerType] = true
			}
		}
	}
	return sel
}

// Cluster palette, one color per cluster id modulo its length.
var clusterPalette = []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6", "#1abc9c"}

type bucket struct {
	x, y   []any
	text   []any
	custom []any
}

func (b *bucket) add(p Point) {
	b.x = append(b.x, p.X)
	b.y = append(b.y, p.Y)
	b.text = append(b.text, hover(p))
	b.custom = append(b.custom, []any{string(p.ID)})
}

func hover(p Point) string {
	return fmt.Sprintf("<b>Cluster RFM:</b> %d<br><b>Tipo de Cliente:</b> %s<br><b>ID:</b> %s<br>"+
		"<b>Total gastado:</b> $%.2f<br><b>Frecuencia:</b> %.0f compras<br><b>Productos únicos:</b> %.0f<br><b>País:</b> %s",
		p.Cluster, p.CustomerType, p.ID, p.TotalSpent, p.Frequency, p.UniqueProducts, p.Country)
}

// Spec builds the scatter: neighbor edges first, then per cluster the normal
// points, outliers, neighbors and the focused customer. Every marker trace
// carries the customer id in customdata.
func (r Result) Spec(focused string) chart.Spec {
	if r.IsEmpty() {
		return chart.Notice("No hay datos disponibles")
	}
	var traces []chart.Trace

	idx := r.Index()
	for _, e := range r.Edges {
		a, okA := idx[string(e.Source)]
		b, okB := idx[string(e.Target)]
		if !okA || !okB {
			continue
		}
		traces = append(traces, chart.Trace{
			"type":       "scatter",
			"mode":       "lines",
			"x":          []any{a.X, b.X},
			"y":          []any{a.Y, b.Y},
			"line":       map[string]any{"color": "rgba(150, 150, 150, 0.3)", "width": 1},
			"hoverinfo":  "skip",
			"showlegend": false,
		})
	}

	neighbors := make(map[string]bool, len(r.Neighbors))
	for _, n := range r.Neighbors {
		neighbors[string(n.ID)] = true
	}

	type group struct{ normal, outlier, neighbor, focused bucket }
	groups := map[int]*group{}
	types := map[int]map[string]int{}
	for _, p := range r.Embedding {
		g, ok := groups[p.Cluster]
		if !ok {
			g = &group{}
			groups[p.Cluster] = g
			types[p.Cluster] = map[string]int{}
		}
		types[p.Cluster][p.CustomerType]++
		id := string(p.ID)
		switch {
		case focused != "" && id == focused:
			g.focused.add(p)
		case neighbors[id]:
			g.neighbor.add(p)
		case p.Outlier:
			g.outlier.add(p)
		default:
			g.normal.add(p)
		}
	}

	clusters := make([]int, 0, len(groups))
	for c := range groups {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	for _, c := range clusters {
		g := groups[c]
		name := clusterName(c, types[c])
		color := clusterPalette[((c%len(clusterPalette))+len(clusterPalette))%len(clusterPalette)]
		traces = appendMarkers(traces, g.normal, name, map[string]any{
			"size": 8, "color": color, "symbol": "circle",
			"line": map[string]any{"width": 0.5, "color": "white"},
		})
		traces = appendMarkers(traces, g.outlier, name+" (Atípicos)", map[string]any{
			"size": 10, "color": color, "symbol": "diamond",
			"line": map[string]any{"width": 1, "color": "black"},
		})
		traces = appendMarkers(traces, g.neighbor, "Vecinos - "+name, map[string]any{
			"size": 12, "color": color, "symbol": "circle",
			"line": map[string]any{"width": 2, "color": "yellow"},
		})
		traces = appendMarkers(traces, g.focused, "Cliente Seleccionado", map[string]any{
			"size": 16, "color": "red", "symbol": "star",
			"line": map[string]any{"width": 2, "color": "darkred"},
		})
	}

	xTitle, yTitle, title := r.titles()
	return chart.Spec{
		Data: traces,
		Layout: map[string]any{
			"title":     map[string]any{"text": title, "x": 0.5, "xanchor": "center"},
			"xaxis":     map[string]any{"title": xTitle, "showgrid": true, "zeroline": false},
			"yaxis":     map[string]any{"title": yTitle, "showgrid": true, "zeroline": false},
			"dragmode":  "lasso",
			"hovermode": "closest",
		},
	}
}

func appendMarkers(traces []chart.Trace, b bucket, name string, marker map[string]any) []chart.Trace {
	if len(b.x) == 0 {
		return traces
	}
	return append(traces, chart.Trace{
		"type":          "scatter",
		"mode":          "markers",
		"name":          name,
		"x":             b.x,
		"y":             b.y,
		"text":          b.text,
		"customdata":    b.custom,
		"hovertemplate": "%{text}<extra></extra>",
		"marker":        marker,
	})
}

func clusterName(c int, counts map[string]int) string {
	best, total := "", 0
	for t, n := range counts {
		total += n
		if n > counts[best] || (n == counts[best] && t < best) {
			best = t
		}
	}
	if total == 0 {
		return fmt.Sprintf("Cluster %d", c)
	}
	return fmt.Sprintf("Cluster %d: %s (%.0f%%)", c, best, float64(counts[best])*100/float64(total))
}

func (r Result) titles() (x, y, title string) {
	if r.AxisInfo != nil && !r.AxisInfo.UsePCA && r.AxisInfo.XAxisName != nil && r.AxisInfo.YAxisName != nil {
		x, y = *r.AxisInfo.XAxisName, *r.AxisInfo.YAxisName
		return x, y, fmt.Sprintf("Gráfico de Similitud de Clientes (Análisis RFM: %s vs %s)", x, y)
	}
	if v := r.Variance; v != nil && v.PC1 != nil && v.PC2 != nil {
		x = axisTitle(v.PC1Names, "Dimensión 1", *v.PC1)
		y = axisTitle(v.PC2Names, "Dimensión 2", *v.PC2)
		return x, y, fmt.Sprintf("Gráfico de Similitud de Clientes - Análisis RFM (%d clientes)", len(r.Embedding))
	}
	return "Dimensión 1", "Dimensión 2", "Gráfico de Similitud de Clientes - Análisis RFM"
}

func axisTitle(names []string, fallback string, variance float64) string {
	if len(names) > 0 {
		fallback = names[0]
	}
	return fmt.Sprintf("%s (%.1f%%)", fallback, variance)
}
