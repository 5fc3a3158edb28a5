package charts

// Color is a fill/border pair.
type Color struct {
	Fill   string `json:"fill"`
	Border string `json:"border"`
}

var palette = [...]Color{
	{Fill: "#3B82F6", Border: "#2563EB"},
	{Fill: "#10B981", Border: "#059669"},
	{Fill: "#F59E0B", Border: "#D97706"},
	{Fill: "#EF4444", Border: "#DC2626"},
	{Fill: "#8B5CF6", Border: "#7C3AED"},
	{Fill: "#06B6D4", Border: "#0891B2"},
	{Fill: "#F472B6", Border: "#BE185D"},
	{Fill: "#FBBF24", Border: "#B45309"},
	{Fill: "#34D399", Border: "#059669"},
	{Fill: "#60A5FA", Border: "#2563EB"},
}

// PaletteSize is the number of distinct colors before ColorFor wraps.
const PaletteSize = len(palette)

// ColorFor returns the palette entry for a category position, wrapping
// around the palette.
func ColorFor(index int) Color {
	return palette[((index%PaletteSize)+PaletteSize)%PaletteSize]
}

func colorsFor(count int) []Color {
	colors := make([]Color, count)
	for i := range colors {
		colors[i] = ColorFor(i)
	}
	return colors
}
