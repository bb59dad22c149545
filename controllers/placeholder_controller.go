package controllers

import (
	"bytes"
	"net/http"
	"strconv"
	"text/template"

	"github.com/gin-gonic/gin"
)

const (
	defaultPlaceholderWidth  = 400
	defaultPlaceholderHeight = 300
	maxPlaceholderSide       = 4000
)

type placeholderTheme struct {
	Label      string
	Background string
	Foreground string
}

var featureThemes = map[string]placeholderTheme{
	"1": {"Reflexiones Diarias", "#f0f9ff", "#0369a1"},
	"2": {"Actividades Prácticas", "#f0fdf4", "#16a34a"},
	"3": {"Rutinas Espirituales", "#fefce8", "#ca8a04"},
	"4": {"Formato PDF", "#fdf2f8", "#be185d"},
}

var placeholderSVG = template.Must(template.New("placeholder").Parse(`<svg width="{{.W}}" height="{{.H}}" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{.W}} {{.H}}">
  <defs>
    <pattern id="grid" width="40" height="40" patternUnits="userSpaceOnUse">
      <path d="M 40 0 L 0 0 0 40" fill="none" stroke="{{.Foreground}}" stroke-width="1" opacity="0.1"/>
    </pattern>
  </defs>
  <rect width="100%" height="100%" fill="{{.Background}}"/>
  <rect width="100%" height="100%" fill="url(#grid)"/>
  <circle cx="{{.CX}}" cy="{{.CY}}" r="30" fill="{{.Foreground}}" opacity="0.1"/>
  <text x="50%" y="50%" text-anchor="middle" dy="0.3em" font-family="system-ui, sans-serif" font-size="18" font-weight="500" fill="{{.Foreground}}">{{.Label}}</text>
  <text x="50%" y="50%" text-anchor="middle" dy="1.8em" font-family="system-ui, sans-serif" font-size="12" fill="{{.Foreground}}" opacity="0.7">{{.W}} × {{.H}}</text>
</svg>
`))

type PlaceholderController struct{}

func NewPlaceholderController() *PlaceholderController {
	return &PlaceholderController{}
}

// Image handles GET /api/placeholder/:width/:height?id=
func (pc *PlaceholderController) Image(c *gin.Context) {
	w := parseSide(c.Param("width"), defaultPlaceholderWidth)
	h := parseSide(c.Param("height"), defaultPlaceholderHeight)
	theme := themeFor(w, h, c.Query("id"))

	var buf bytes.Buffer
	err := placeholderSVG.Execute(&buf, map[string]any{
		"Label":      theme.Label,
		"Background": theme.Background,
		"Foreground": theme.Foreground,
		"W":          w,
		"H":          h,
		"CX":         w / 2,
		"CY":         h / 2,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func parseSide(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxPlaceholderSide {
		return maxPlaceholderSide
	}
	return n
}

// themeFor picks the landing page artwork for the known slot sizes.
func themeFor(w, h int, id string) placeholderTheme {
	switch {
	case w == 414 && h == 536:
		return placeholderTheme{"Journal Cover", "#fff7ed", "#ea580c"}
	case w == 598 && h == 218:
		return placeholderTheme{"Product Footer", "#fef2f2", "#dc2626"}
	case w == 500 && h == 300:
		if t, ok := featureThemes[id]; ok {
			return t
		}
		return placeholderTheme{"Feature Image", "#f0fdf4", "#16a34a"}
	case w == 1200 || w == 1080:
		return placeholderTheme{"Testimonials", "#f3f4f6", "#374151"}
	}
	return placeholderTheme{strconv.Itoa(w) + " × " + strconv.Itoa(h), "#f8f9fa", "#6c757d"}
}
