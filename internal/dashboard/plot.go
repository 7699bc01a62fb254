package dashboard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fastestcars/internal/store"
)

const (
	plotWidth   = 900
	plotHeight  = 500
	plotMargin  = 60
	plotTicks   = 6
	unknownType = "Unknown"
)

// palette is matplotlib's tab10, engine types beyond ten colors wrap around.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type point struct {
	X, Y  float64
	Color string
	Title string
}

type tick struct {
	Pos   float64
	Label string
}

type legendEntry struct {
	Label string
	Color string
	Y     float64
}

type scatter struct {
	Width, Height float64
	Left, Right   float64
	Top, Bottom   float64
	Points        []point
	XTicks        []tick
	YTicks        []tick
	Legend        []legendEntry
}

type axis struct {
	min, max float64
}

func newAxis(values []float64) axis {
	a := axis{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range values {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	if a.min == a.max {
		a.min -= 1
		a.max += 1
	}
	pad := (a.max - a.min) * 0.05
	a.min -= pad
	a.max += pad
	return a
}

// scale maps v onto the [from, to] pixel range.
func (a axis) scale(v, from, to float64) float64 {
	return from + (v-a.min)/(a.max-a.min)*(to-from)
}

func (a axis) ticks(from, to float64) []tick {
	out := make([]tick, plotTicks)
	for i := range out {
		v := a.min + (a.max-a.min)*float64(i)/float64(plotTicks-1)
		out[i] = tick{
			Pos:   a.scale(v, from, to),
			Label: fmt.Sprintf("%.0f", v),
		}
	}
	return out
}

func formatOptional[T any](v *T) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(*v)
}

func engineType(row store.Row) string {
	if row.EngineType == nil || strings.TrimSpace(*row.EngineType) == "" {
		return unknownType
	}
	return *row.EngineType
}

// buildScatter plots top speed against year, one color per engine type. Rows
// missing either coordinate are left out, nil is returned when nothing can be
// plotted.
func buildScatter(rows []store.Row) *scatter {
	var plotted []store.Row
	for _, row := range rows {
		if row.Year != nil && row.TopSpeedKmh != nil {
			plotted = append(plotted, row)
		}
	}
	if len(plotted) == 0 {
		return nil
	}

	years := make([]float64, len(plotted))
	speeds := make([]float64, len(plotted))
	typeSet := map[string]struct{}{}
	for i, row := range plotted {
		years[i] = float64(*row.Year)
		speeds[i] = float64(*row.TopSpeedKmh)
		typeSet[engineType(row)] = struct{}{}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	colors := map[string]string{}
	for i, t := range types {
		colors[t] = palette[i%len(palette)]
	}

	s := &scatter{
		Width:  plotWidth,
		Height: plotHeight,
		Left:   plotMargin,
		Right:  plotWidth - plotMargin*2.5,
		Top:    plotMargin / 2,
		Bottom: plotHeight - plotMargin,
	}
	xAxis := newAxis(years)
	yAxis := newAxis(speeds)
	s.XTicks = xAxis.ticks(s.Left, s.Right)
	s.YTicks = yAxis.ticks(s.Bottom, s.Top)

	for i, row := range plotted {
		s.Points = append(s.Points, point{
			X:     xAxis.scale(years[i], s.Left, s.Right),
			Y:     yAxis.scale(speeds[i], s.Bottom, s.Top),
			Color: colors[engineType(row)],
			Title: fmt.Sprintf(
				"%s\nYear: %d\nTop speed: %d km/h\nHorsepower: %s\nDisplacement: %s L\nEngine: %s",
				formatOptional(row.MakeModel),
				*row.Year,
				*row.TopSpeedKmh,
				formatOptional(row.Horsepower),
				formatOptional(row.EngineDisplacementL),
				engineType(row),
			),
		})
	}
	for i, t := range types {
		s.Legend = append(s.Legend, legendEntry{
			Label: t,
			Color: colors[t],
			Y:     s.Top + 10 + float64(i)*20,
		})
	}
	return s
}
