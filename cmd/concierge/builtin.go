package main

import (
	"context"
	"time"

	"concierge/internal/capability"
)

// builtinCapabilities are the small set of capabilities the CLI ships
// with. Real deployments register their own providers; these exist so
// the engine can be exercised without a remote catalog.
func builtinCapabilities() []capability.Capability {
	return []capability.Capability{
		&capability.Func{
			Desc: capability.Descriptor{
				Name:        "current_time",
				Description: "Get the current date and time, optionally in a named IANA timezone",
				Category:    capability.CategoryGeneral,
				Schema: capability.Schema{
					Properties: map[string]capability.Property{
						"timezone": {Type: "string", Description: "IANA timezone name, e.g. Europe/Paris"},
					},
				},
			},
			Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
				loc := time.Local
				if tz, ok := params["timezone"].(string); ok && tz != "" {
					l, err := time.LoadLocation(tz)
					if err != nil {
						return capability.Fail("unknown timezone %q", tz), nil
					}
					loc = l
				}
				now := time.Now().In(loc)
				return capability.OK(map[string]any{
					"iso":      now.Format(time.RFC3339),
					"weekday":  now.Weekday().String(),
					"timezone": loc.String(),
				}), nil
			},
		},
		&capability.Func{
			Desc: capability.Descriptor{
				Name:        "remember_note",
				Description: "Store a short note for the duration of this run",
				Category:    capability.CategoryRecords,
				Schema: capability.Schema{
					Properties: map[string]capability.Property{
						"text": {Type: "string", Description: "The note text"},
					},
					Required: []string{"text"},
				},
			},
			Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
				text, _ := params["text"].(string)
				return capability.OKMessage("noted: %s", text), nil
			},
		},
		&capability.Func{
			Desc: capability.Descriptor{
				Name:        "calculate",
				Description: "Evaluate a basic arithmetic operation on two numbers",
				Category:    capability.CategoryGeneral,
				Schema: capability.Schema{
					Properties: map[string]capability.Property{
						"op": {Type: "string", Enum: []any{"add", "sub", "mul", "div"}},
						"a":  {Type: "number"},
						"b":  {Type: "number"},
					},
					Required: []string{"op", "a", "b"},
				},
			},
			Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
				a, aok := toFloat(params["a"])
				b, bok := toFloat(params["b"])
				if !aok || !bok {
					return capability.Fail("a and b must be numbers"), nil
				}
				op, _ := params["op"].(string)
				switch op {
				case "add":
					return capability.OK(a + b), nil
				case "sub":
					return capability.OK(a - b), nil
				case "mul":
					return capability.OK(a * b), nil
				case "div":
					if b == 0 {
						return capability.Fail("division by zero"), nil
					}
					return capability.OK(a / b), nil
				default:
					return capability.Fail("unknown op %q", op), nil
				}
			},
		},
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
