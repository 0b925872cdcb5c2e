package chart

// Highlight palette. Clicked and lasso highlights use different colors so
// they stay distinguishable; a label that is both gets its own color.
const (
	BaseColor    = "#6c757d"
	DimColor     = "#d3d3d3"
	ClickedColor = "#0d6efd"
	LassoColor   = "#FF5722"
	BothColor    = "#6f42c1"
	OutlineColor = "#ffffff"
)

// ProfileColors are the bar colors of the known customer profiles.
var ProfileColors = map[string]string{
	"Minorista Estándar": "#9b59b6",
	"Mayorista Estándar": "#28a745",
	"Minorista Lujo":     "#ffc107",
	"Mayorista Lujo":     "#00bcd4",
}

// ProfileColor returns the bar color of a profile.
func ProfileColor(profile string) string {
	if c, ok := ProfileColors[profile]; ok {
		return c
	}
	return BaseColor
}

// Level is how strongly a label is selected.
type Level int

// Selection levels.
const (
	None Level = iota
	Clicked
	Lassoed
	Both
)

// LevelOf combines the click and lasso selections for one label.
func LevelOf(label, clicked string, lasso map[string]bool) Level {
	c := clicked != "" && label == clicked
	l := lasso[label]
	switch {
	case c && l:
		return Both
	case c:
		return Clicked
	case l:
		return Lassoed
	default:
		return None
	}
}

func (l Level) outline() (string, float64) {
	switch l {
	case Clicked:
		return ClickedColor, 3
	case Lassoed:
		return LassoColor, 3
	case Both:
		return BothColor, 4
	default:
		return OutlineColor, 0.5
	}
}

// MapHighlight outlines the clicked country and the lasso countries on a
// choropleth whose trace 0 lists locations. Fill is left untouched.
func MapHighlight(locations []string, clicked string, lasso map[string]bool) Restyle {
	colors := make([]any, len(locations))
	widths := make([]any, len(locations))
	for i, loc := range locations {
		c, w := LevelOf(loc, clicked, lasso).outline()
		colors[i], widths[i] = c, w
	}
	return Restyle{Trace: 0, Attrs: map[string]any{
		"marker.line.color": colors,
		"marker.line.width": widths,
	}}
}

// ProfileHighlight recolors the profile bars. With no selection every bar
// keeps its profile color; otherwise unselected bars are dimmed and
// selected ones get an outline in their level color.
func ProfileHighlight(labels []string, clicked string, lasso map[string]bool) Restyle {
	active := false
	for _, l := range labels {
		if LevelOf(l, clicked, lasso) != None {
			active = true
			break
		}
	}
	fill := make([]any, len(labels))
	colors := make([]any, len(labels))
	widths := make([]any, len(labels))
	for i, label := range labels {
		lvl := LevelOf(label, clicked, lasso)
		fill[i] = ProfileColor(label)
		colors[i], widths[i] = OutlineColor, 2.0
		if !active {
			continue
		}
		if lvl == None {
			fill[i] = DimColor
			continue
		}
		c, w := lvl.outline()
		colors[i], widths[i] = c, w+1
	}
	return Restyle{Trace: 0, Attrs: map[string]any{
		"marker.color":      fill,
		"marker.line.color": colors,
		"marker.line.width": widths,
	}}
}
