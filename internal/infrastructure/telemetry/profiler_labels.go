package telemetry

import (
	"context"

	"github.com/grafana/pyroscope-go"
)

// pprof label keys
const (
	LabelController = "controller"
	LabelRoute      = "route"
	LabelMethod     = "method"
	LabelRole       = "role"
	LabelOperation  = "operation"
)

// MaxLabelValueLength caps label values to bound profile cardinality
const MaxLabelValueLength = 128

// Tagged runs fn under pprof labels given as alternating keys and values.
// Pairs with an empty value are skipped, a trailing key without a value is
// ignored. Label values must stay low-cardinality: routes, not IDs.
func Tagged(ctx context.Context, fn func(context.Context), kv ...string) {
	pairs := labelPairs(kv)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

func labelPairs(kv []string) []string {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		value := kv[i+1]
		if value == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, kv[i], value)
	}
	return pairs
}
