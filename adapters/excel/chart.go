package excel

import (
	"fmt"

	"scorecard/domain/sfa"
	"scorecard/internal"
	"scorecard/internal/errors"

	"github.com/xuri/excelize/v2"
)

// woeSheetName is the sheet holding the plotted WOE table
const woeSheetName = "WOE"

// ChartOptions controls the WOE bar chart
type ChartOptions struct {
	XLabel         string // defaults to the feature name
	YLabel         string
	LabelRotation  int     // tick-label rotation in degrees, -90..90
	FontSize       float64 // tick-label font size
	Width          uint
	Height         uint
	SortCategories bool // plot in natural category order instead of first appearance
}

// DefaultChartOptions returns an 8x4 inch chart with unrotated 8pt labels
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		YLabel:   "WOE",
		FontSize: 8,
		Width:    640,
		Height:   320,
	}
}

// ChartRenderer draws WOE tables as column charts
type ChartRenderer struct {
	logger *internal.Logger
}

// NewChartRenderer creates a renderer
func NewChartRenderer(logger *internal.Logger) *ChartRenderer {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &ChartRenderer{logger: logger.WithComponent("ChartRenderer")}
}

// ChartTitle is the title drawn above a feature's WOE chart
func ChartTitle(feature string) string {
	return fmt.Sprintf("Weight of Evidence (WOE) for %s", feature)
}

// RenderWOE writes the WOE table and a column chart of its WOE values to a
// new workbook at path. Undefined WOE values are written as NaN text and
// plotted as gaps.
func (r *ChartRenderer) RenderWOE(path string, table *sfa.WOETable, opts ChartOptions) error {
	if table == nil || len(table.Rows) == 0 {
		return errors.InvalidInput("WOE table has no rows")
	}
	if opts.LabelRotation < -90 || opts.LabelRotation > 90 {
		return errors.InvalidInput(fmt.Sprintf("label rotation %d is outside -90..90", opts.LabelRotation))
	}
	if opts.SortCategories {
		table = table.SortedByCategory()
	}
	if opts.XLabel == "" {
		opts.XLabel = table.Feature
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), woeSheetName); err != nil {
		return errors.ExportError(woeSheetName, err)
	}
	data := WOESheet(table)
	if err := writeTable(f, woeSheetName, data); err != nil {
		return errors.ExportError(woeSheetName, err)
	}

	last := len(data.Rows) + 1
	tickFont := excelize.Font{Size: opts.FontSize}
	chart := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$H$1", woeSheetName),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", woeSheetName, last),
			Values:     fmt.Sprintf("%s!$H$2:$H$%d", woeSheetName, last),
		}},
		Title:  []excelize.RichTextRun{{Text: ChartTitle(table.Feature)}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis: excelize.ChartAxis{
			Title:     []excelize.RichTextRun{{Text: opts.XLabel}},
			Font:      tickFont,
			Alignment: excelize.Alignment{TextRotation: opts.LabelRotation},
		},
		YAxis: excelize.ChartAxis{
			Title:          []excelize.RichTextRun{{Text: opts.YLabel}},
			Font:           tickFont,
			MajorGridLines: true,
		},
		Dimension:    excelize.ChartDimension{Width: opts.Width, Height: opts.Height},
		ShowBlanksAs: "gap",
	}
	if err := f.AddChart(woeSheetName, "K2", chart); err != nil {
		return errors.ExportError(woeSheetName, err)
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}

	r.logger.Debug("rendered WOE chart for %s to %s", table.Feature, path)
	return nil
}
