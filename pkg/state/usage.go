package state

import (
	"context"
	"sort"
	"strings"
)

const usagePrefix = "usage:"

// Usage counts accepted command executions.
type Usage struct {
	kv KV
}

// NewUsage creates usage statistics over kv.
func NewUsage(kv KV) *Usage {
	return &Usage{kv: kv}
}

// IncrUsage bumps the counter of command.
func (u *Usage) IncrUsage(ctx context.Context, command string) (int64, error) {
	return u.kv.Incr(ctx, usagePrefix+command, 1)
}

// Count is the usage total of one command.
type Count struct {
	Command string
	Total   int64
}

// Counts returns every counter, most used first.
func (u *Usage) Counts(ctx context.Context) ([]Count, error) {
	keys, err := u.kv.Keys(ctx, usagePrefix)
	if err != nil {
		return nil, err
	}

	counts := make([]Count, 0, len(keys))
	for _, key := range keys {
		v, ok, err := u.kv.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		n, err := toInt64(v)
		if err != nil {
			continue
		}
		counts = append(counts, Count{Command: strings.TrimPrefix(key, usagePrefix), Total: n})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Total != counts[j].Total {
			return counts[i].Total > counts[j].Total
		}
		return counts[i].Command < counts[j].Command
	})
	return counts, nil
}
