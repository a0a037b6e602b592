package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

const (
	ChartWidth  = 800
	ChartHeight = 400

	chartTitle      = "Interações por Dia"
	chartColor      = "#8884d8"
	chartFillAlpha  = 77 // 30% opacity
	chartYTicks     = 4
	chartMaxXLabels = 8

	chartSingleDaySpan = 8 // a lone day covers 1/8 of the plot width
	chartMarkerRadius  = 4

	marginLeft   = 50.0
	marginRight  = 30.0
	marginTop    = 50.0
	marginBottom = 50.0
)

// WriteActivityChart draws messages per day as a PNG area chart
func (e *Exporter) WriteActivityChart(w io.Writer, result *models.AnalysisResult) error {
	activity := e.DailyActivity(messagesOf(result), 0)

	dc := gg.NewContext(ChartWidth, ChartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawStringAnchored(chartTitle, ChartWidth/2, marginTop/2, 0.5, 0.5)

	if len(activity) == 0 {
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.DrawStringAnchored("Sem mensagens", ChartWidth/2, ChartHeight/2, 0.5, 0.5)
		return encodeChart(dc, w)
	}

	plotWidth := ChartWidth - marginLeft - marginRight
	plotHeight := ChartHeight - marginTop - marginBottom
	baseY := marginTop + plotHeight

	maxCount := 0
	for _, day := range activity {
		maxCount = max(maxCount, day.Count)
	}
	yMax := float64(chartYTicks * int(math.Ceil(float64(maxCount)/chartYTicks)))

	// Dashed horizontal grid with y labels
	dc.SetLineWidth(1)
	for i := 0; i <= chartYTicks; i++ {
		value := yMax * float64(i) / chartYTicks
		y := baseY - plotHeight*float64(i)/chartYTicks

		dc.SetDash(3, 3)
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.DrawLine(marginLeft, y, marginLeft+plotWidth, y)
		dc.Stroke()

		dc.SetDash()
		dc.SetRGB(0.4, 0.4, 0.4)
		dc.DrawStringAnchored(strconv.Itoa(int(value)), marginLeft-8, y, 1, 0.5)
	}

	xs := make([]float64, len(activity))
	ys := make([]float64, len(activity))
	for i, day := range activity {
		if len(activity) == 1 {
			xs[i] = marginLeft + plotWidth/2
		} else {
			xs[i] = marginLeft + plotWidth*float64(i)/float64(len(activity)-1)
		}
		ys[i] = baseY - plotHeight*float64(day.Count)/yMax
	}

	// A lone day is drawn as a narrow band so its area does not collapse
	areaXs, areaYs := xs, ys
	if len(activity) == 1 {
		half := plotWidth / chartSingleDaySpan / 2
		areaXs = []float64{xs[0] - half, xs[0] + half}
		areaYs = []float64{ys[0], ys[0]}
	}

	// Filled area under the curve
	dc.MoveTo(areaXs[0], baseY)
	for i := range areaXs {
		dc.LineTo(areaXs[i], areaYs[i])
	}
	dc.LineTo(areaXs[len(areaXs)-1], baseY)
	dc.ClosePath()
	dc.SetRGBA255(0x88, 0x84, 0xd8, chartFillAlpha)
	dc.Fill()

	// Curve
	dc.NewSubPath()
	dc.MoveTo(areaXs[0], areaYs[0])
	for i := 1; i < len(areaXs); i++ {
		dc.LineTo(areaXs[i], areaYs[i])
	}
	dc.SetHexColor(chartColor)
	dc.SetLineWidth(2)
	dc.Stroke()

	if len(activity) == 1 {
		dc.DrawCircle(xs[0], ys[0], chartMarkerRadius)
		dc.SetHexColor(chartColor)
		dc.Fill()
	}

	// Axis
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, baseY, marginLeft+plotWidth, baseY)
	dc.Stroke()

	// X labels, always keeping the first and the last day
	step := int(math.Ceil(float64(len(activity)) / chartMaxXLabels))
	for i, day := range activity {
		if i%step != 0 && i != len(activity)-1 {
			continue
		}
		dc.DrawStringAnchored(day.Date, xs[i], baseY+18, 0.5, 0.5)
	}

	return encodeChart(dc, w)
}

func encodeChart(dc *gg.Context, w io.Writer) error {
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode chart: %w", err)
	}
	return nil
}
