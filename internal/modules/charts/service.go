// Package charts renders portfolio visualizations as PNG images.
package charts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vicanso/go-charts/v2"

	"github.com/koshlabs/kosh/internal/modules/analytics"
	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// Service renders charts from portfolio and price data.
type Service struct {
	portfolioSvc *portfolio.Service
	analyticsSvc *analytics.Service
	priceRepo    *history.PriceRepository
	log          zerolog.Logger
}

// NewService creates a new charts service.
func NewService(
	portfolioSvc *portfolio.Service,
	analyticsSvc *analytics.Service,
	priceRepo *history.PriceRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolioSvc: portfolioSvc,
		analyticsSvc: analyticsSvc,
		priceRepo:    priceRepo,
		log:          log.With().Str("service", "charts").Logger(),
	}
}

// ParseDateRange converts a range label to a day count.
// Supported: 1M, 3M, 6M, 1Y, 5Y, all.
func ParseDateRange(rangeStr string) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(rangeStr)) {
	case "", "1Y":
		return 365, nil
	case "1M":
		return 30, nil
	case "3M":
		return 91, nil
	case "6M":
		return 182, nil
	case "5Y":
		return 5 * 365, nil
	case "ALL":
		return 36500, nil
	default:
		return 0, fmt.Errorf("unknown date range: %s", rangeStr)
	}
}

// AllocationChart renders the current weights as a pie chart.
func (s *Service) AllocationChart() ([]byte, error) {
	summary, err := s.portfolioSvc.GetSummary()
	if err != nil {
		return nil, err
	}
	if len(summary.Positions) == 0 {
		return nil, fmt.Errorf("portfolio has no valued positions")
	}

	// Deterministic slice order: largest weight first
	type slice struct {
		label string
		value float64
	}
	slices := make([]slice, 0, len(summary.Weights))
	for symbol, weight := range summary.Weights {
		slices = append(slices, slice{label: symbol, value: weight * 100})
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].value > slices[j].value })

	labels := make([]string, len(slices))
	values := make([]float64, len(slices))
	for i, sl := range slices {
		labels[i] = sl.label
		values[i] = sl.value
	}

	painter, err := charts.PieRender(values,
		charts.TitleTextOptionFunc("Allocation"),
		charts.LegendLabelsOptionFunc(labels),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render allocation chart: %w", err)
	}

	return painter.Bytes()
}

// ValueChart renders the simulated portfolio value curve over a date range.
func (s *Service) ValueChart(rangeStr string) ([]byte, error) {
	days, err := ParseDateRange(rangeStr)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyticsSvc.AnalyzePortfolio(days)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(analysis.ValueSeries))
	values := make([]float64, len(analysis.ValueSeries))
	for i, point := range analysis.ValueSeries {
		labels[i] = point.Date
		values[i] = point.Value
	}

	return s.lineChart("Portfolio Value", labels, [][]float64{values}, []string{"Value"})
}

// smaWindow is the moving average window overlaid on price charts.
const smaWindow = 20

// PriceChart renders one symbol's close prices over a date range, with a
// moving average overlay when the history is long enough to fill the window.
func (s *Service) PriceChart(symbol, rangeStr string) ([]byte, error) {
	days, err := ParseDateRange(rangeStr)
	if err != nil {
		return nil, err
	}

	prices, err := s.priceRepo.GetRecentPrices(symbol, days)
	if err != nil {
		return nil, err
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("not enough price history for %s", symbol)
	}

	labels := make([]string, len(prices))
	values := make([]float64, len(prices))
	for i, p := range prices {
		labels[i] = p.Date
		values[i] = p.Close
	}

	if len(prices) > smaWindow+1 {
		ind, err := analytics.ComputeIndicators(labels, values, smaWindow)
		if err == nil {
			return s.lineChart(symbol, ind.Dates,
				[][]float64{ind.Close, ind.SMA},
				[]string{"Close", fmt.Sprintf("SMA%d", smaWindow)})
		}
	}

	return s.lineChart(symbol, labels, [][]float64{values}, []string{"Close"})
}

// lineChart renders padded line series over a shared date axis.
func (s *Service) lineChart(title string, labels []string, series [][]float64, legend []string) ([]byte, error) {
	yMin, yMax := series[0][0], series[0][0]
	for _, values := range series {
		for _, v := range values {
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	pad := (yMax - yMin) * 0.05
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	painter, err := charts.LineRender(series,
		charts.TitleTextOptionFunc(title),
		charts.LegendLabelsOptionFunc(legend),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render line chart: %w", err)
	}

	return painter.Bytes()
}
