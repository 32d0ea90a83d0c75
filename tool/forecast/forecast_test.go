package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/tool"
)

func resolve(t *testing.T) *tool.Handle {
	t.Helper()

	reg := tool.NewRegistry(map[string]any{tool.DepConfig: config.Default()})
	require.NoError(t, New().Register(reg))

	h, err := reg.Resolve(Name)
	require.NoError(t, err)
	return h
}

func TestLinear(t *testing.T) {
	out, err := Linear([]float64{1, 2, 3, 4}, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 6, 7}, out, 1e-9)

	_, err = Linear([]float64{1}, 3)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestMovingAverage(t *testing.T) {
	out, err := MovingAverage([]float64{2, 4, 6}, 2, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 5.5}, out, 1e-9)

	out, err = MovingAverage([]float64{1, 3}, 1, 10)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2}, out, 1e-9)

	_, err = MovingAverage(nil, 1, 1)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestForecastTool(t *testing.T) {
	h := resolve(t)

	out, err := h.Call(context.Background(), map[string]any{
		"series":  []any{10.0, 20.0, 30.0},
		"horizon": float64(2),
	})
	require.NoError(t, err)

	res := out.(map[string]any)
	assert.Equal(t, MethodLinear, res["method"])
	assert.InDeltaSlice(t, []float64{40, 50}, res["forecast"], 1e-9)

	out, err = h.Call(context.Background(), map[string]any{
		"series": []float64{1, 1, 4},
		"method": MethodMovingAverage,
	})
	require.NoError(t, err)
	res = out.(map[string]any)
	assert.Len(t, res["forecast"], config.Default().Forecast.Horizon)
}

func TestForecastTool_Errors(t *testing.T) {
	h := resolve(t)

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"missing series", map[string]any{}, tool.CodeValidation},
		{"bad method", map[string]any{"series": []float64{1, 2}, "method": "arima"}, tool.CodeValidation},
		{"bad horizon", map[string]any{"series": []float64{1, 2}, "horizon": float64(0)}, tool.CodeValidation},
		{"non numeric", map[string]any{"series": []any{"a", "b"}}, tool.CodeValidation},
		{"one point", map[string]any{"series": []float64{1}}, tool.CodeExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Call(context.Background(), tt.args)
			var tErr *tool.ToolError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, tt.code, tErr.Code)
		})
	}
}
