package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fintrack/internal/analytics"
)

const (
	chartWidth  = 800
	chartHeight = 400
)

// ErrNoData is returned when a chart would have nothing to draw.
var ErrNoData = errors.New("no data to chart")

// MonthlyChart renders monthly spending as a PNG bar chart.
func MonthlyChart(w io.Writer, points []analytics.MonthlyPoint) error {
	var (
		bars    []chart.Value
		nonZero bool
	)
	for _, p := range points {
		v := p.Spending.Units()
		nonZero = nonZero || v != 0
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %d", p.Month, p.Year),
			Value: v,
		})
	}
	if !nonZero {
		return ErrNoData
	}

	bc := chart.BarChart{
		Title: "Monthly spending",
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		Bars:     bars,
	}
	bc.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, ok := v.(float64); ok {
			return fmt.Sprintf("%.2f", vf)
		}
		return ""
	}

	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render monthly chart: %w", err)
	}
	return nil
}

// CategoryChart renders the category breakdown as a PNG pie chart using each
// category's palette colour.
func CategoryChart(w io.Writer, slices []analytics.CategorySlice) error {
	var values []chart.Value
	for _, c := range slices {
		if c.Value.Cents <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: c.Name,
			Value: c.Value.Units(),
			Style: chart.Style{
				FillColor:   hexColor(c.Color),
				StrokeColor: drawing.ColorWhite,
			},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	pie := chart.PieChart{
		Title:  "Spending by category",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
