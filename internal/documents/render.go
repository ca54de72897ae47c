package documents

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
)

var ErrEmptyText = errors.New("text must not be empty")

// RenderPDF lays text out on A4 pages. Core fonts only cover cp1252, so
// other characters are translated or dropped.
func RenderPDF(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("levo export", true)
	pdf.SetCreator("levo", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.MultiCell(0, 6, tr(text), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTXT returns text with a trailing newline.
func RenderTXT(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return []byte(text), nil
}

// Bar is one labelled value of a bar chart.
type Bar struct {
	Label string
	Value float64
}

// SampleBars is the fixed data plotted by the graph endpoint.
var SampleBars = []Bar{
	{Label: "Mon", Value: 12},
	{Label: "Tue", Value: 19},
	{Label: "Wed", Value: 7},
	{Label: "Thu", Value: 15},
	{Label: "Fri", Value: 22},
}

// RenderGraph draws bars as an 800x480 PNG.
func RenderGraph(title string, bars []Bar) ([]byte, error) {
	if len(bars) == 0 {
		return nil, errors.New("graph needs at least one bar")
	}
	values := make([]chart.Value, 0, len(bars))
	for _, b := range bars {
		values = append(values, chart.Value{Label: b.Label, Value: b.Value})
	}
	graph := chart.BarChart{
		Title:      title,
		Width:      800,
		Height:     480,
		BarWidth:   80,
		BarSpacing: 40,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Bars:       values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render graph: %w", err)
	}
	return buf.Bytes(), nil
}
