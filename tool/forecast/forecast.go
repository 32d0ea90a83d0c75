// Package forecast provides a time-series forecasting tool with linear trend
// and moving-average methods.
package forecast

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/tool"
)

// Name is the registry name of the tool.
const Name = "forecast"

// Supported methods.
const (
	MethodLinear        = "linear"
	MethodMovingAverage = "moving_average"
)

// ErrTooFewPoints is returned for series shorter than two observations.
var ErrTooFewPoints = errors.New("forecast needs at least 2 observations")

// Args is the argument shape of the tool.
type Args struct {
	Series  []float64 `json:"series" description:"Observed values, oldest first"`
	Horizon *int      `json:"horizon" description:"Number of future steps"`
	Method  string    `json:"method,omitempty" description:"Forecasting method" enum:"linear,moving_average"`
}

// Tool is the forecast plugin.
type Tool struct{}

var _ tool.Registrable = Tool{}

// New creates the plugin.
func New() Tool { return Tool{} }

// Register implements tool.Registrable.
func (Tool) Register(reg *tool.Registry) error {
	return reg.Register(tool.Descriptor{
		Name:        Name,
		Description: "Forecast future values of a numeric time series.",
		Requires:    []string{tool.DepConfig},
		Parameters:  util.CreateSchema(Args{}),
		Invoke:      invoke,
	})
}

func invoke(cc *tool.CallContext, args map[string]any) (any, error) {
	cfg, err := tool.Dep[*config.Config](cc.Deps(), tool.DepConfig)
	if err != nil {
		return nil, err
	}

	series, err := util.ToFloatSlice(args["series"])
	if err != nil {
		return nil, tool.NewToolError(Name, err.Error(), tool.CodeValidation)
	}

	horizon, err := util.ToInt(args["horizon"], cfg.Forecast.Horizon)
	if err != nil || horizon <= 0 {
		return nil, tool.NewToolError(Name, fmt.Sprintf("invalid horizon %v", args["horizon"]), tool.CodeValidation)
	}

	method, _ := args["method"].(string)
	if method == "" {
		method = cfg.Forecast.Method
	}

	var out []float64
	switch method {
	case MethodLinear:
		out, err = Linear(series, horizon)
	case MethodMovingAverage:
		out, err = MovingAverage(series, horizon, cfg.Forecast.Window)
	default:
		return nil, tool.NewToolError(Name, fmt.Sprintf("unknown method %q", method), tool.CodeValidation)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{"forecast": out, "method": method, "horizon": horizon}, nil
}

// Linear fits an ordinary least-squares trend and extrapolates it.
func Linear(series []float64, horizon int) ([]float64, error) {
	n := len(series)
	if n < 2 {
		return nil, ErrTooFewPoints
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
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	out := make([]float64, horizon)
	for i := range out {
		out[i] = intercept + slope*float64(n+i)
	}

	return out, nil
}

// MovingAverage forecasts each step as the mean of the previous window values,
// feeding forecasts back in. window <= 0 or larger than the series uses the
// whole series.
func MovingAverage(series []float64, horizon, window int) ([]float64, error) {
	n := len(series)
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if window <= 0 || window > n {
		window = n
	}

	hist := append(make([]float64, 0, n+horizon), series...)
	for i := 0; i < horizon; i++ {
		var sum float64
		for _, v := range hist[len(hist)-window:] {
			sum += v
		}
		hist = append(hist, sum/float64(window))
	}

	return hist[n:], nil
}
