// Package forecast projects future values of an engagement series.
//
// Two estimators are provided: a trailing moving average and a
// least-squares linear trend. Both are pure functions over a numeric
// series ordered oldest to newest.
package forecast

import "fmt"

// MovingAverage returns the mean of the last window values of the
// series. A window larger than the series averages the whole series.
func MovingAverage(series []float64, window int) (float64, error) {
	if len(series) == 0 {
		return 0, ErrEmptySeries
	}
	if window <= 0 {
		return 0, fmt.Errorf("window %d: %w", window, ErrInvalidWindow)
	}
	if window > len(series) {
		window = len(series)
	}

	var sum float64
	for _, v := range series[len(series)-window:] {
		sum += v
	}
	return sum / float64(window), nil
}

// Trend fits a least-squares line over the series indexed 0..n-1 and
// returns its slope and intercept. At least two points are required.
func Trend(series []float64) (slope, intercept float64, err error) {
	n := len(series)
	if n < 2 {
		return 0, 0, fmt.Errorf("%d points: %w", n, ErrInsufficientData)
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, fmt.Errorf("degenerate series: %w", ErrInsufficientData)
	}

	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept, nil
}

// Project extends the fitted trend line for the given number of future
// periods and returns the projected values in order.
func Project(series []float64, periods int) ([]float64, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("periods %d: %w", periods, ErrInvalidWindow)
	}

	slope, intercept, err := Trend(series)
	if err != nil {
		return nil, fmt.Errorf("fitting trend: %w", err)
	}

	out := make([]float64, periods)
	for i := range out {
		x := float64(len(series) + i)
		out[i] = intercept + slope*x
	}
	return out, nil
}
