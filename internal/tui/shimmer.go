package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// ShimmerState animates a highlight sweeping across a line of text.
// It is advanced one frame per animation tick.
type ShimmerState struct {
	Center     float64 // current center position, in runes
	WidthRatio float64 // highlight width relative to the text
	Step       float64 // runes advanced per frame
	TrueColor  bool
}

// NewShimmerState creates a shimmer using the terminal's color support
func NewShimmerState() *ShimmerState {
	return &ShimmerState{
		WidthRatio: 0.25,
		Step:       1,
		TrueColor:  os.Getenv("COLORTERM") == "truecolor",
	}
}

// Advance moves the highlight forward, wrapping past the end of a text of length n
func (s *ShimmerState) Advance(n int) {
	if n <= 0 {
		return
	}
	s.Center += s.Step
	// Allow shimmer to travel beyond the text (start before, end after)
	margin := float64(n) * s.WidthRatio
	if s.Center > float64(n)+margin {
		s.Center = -margin
	}
}

// Render colors text with the highlight at the current position
func (s *ShimmerState) Render(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	if !s.TrueColor {
		return s.renderFallback(runes)
	}

	// Base color: #B1B8C7, highlight: #EAE6FF
	baseR, baseG, baseB := 177.0, 184.0, 199.0
	hiR, hiG, hiB := 234.0, 230.0, 255.0

	sigma := math.Max(1, s.WidthRatio*float64(len(runes))/2)

	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.Center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		fmt.Fprintf(&b, "\033[38;2;%d;%d;%dm%c",
			int(baseR*(1-w)+hiR*w), int(baseG*(1-w)+hiG*w), int(baseB*(1-w)+hiB*w), r)
	}
	b.WriteString("\033[0m")
	return b.String()
}

// renderFallback highlights a few runes around the center using 256 colors
func (s *ShimmerState) renderFallback(runes []rune) string {
	width := max(1, int(s.WidthRatio*float64(len(runes))))
	start := int(s.Center) - width/2
	end := start + width

	var b strings.Builder
	for i, r := range runes {
		if i >= start && i < end {
			fmt.Fprintf(&b, "\033[38;5;147m%c", r) // Light purple
		} else {
			fmt.Fprintf(&b, "\033[38;5;250m%c", r) // Light grey
		}
	}
	b.WriteString("\033[0m")
	return b.String()
}
