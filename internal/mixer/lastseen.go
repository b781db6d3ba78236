package mixer

import (
	"context"
	"sync"

	"github.com/vk/datamixer/internal/dataset"
)

// LastSeen is a model.ChannelSource that lists the channels of the most
// recently observed bundle.
type LastSeen struct {
	mu       sync.RWMutex
	channels map[dataset.Dim][]string
}

// Observe records the channels of b.
func (l *LastSeen) Observe(b *dataset.Bundle) {
	channels := b.Channels()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = channels
}

// Channels implements model.ChannelSource.
func (l *LastSeen) Channels(context.Context) (map[dataset.Dim][]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[dataset.Dim][]string, len(l.channels))
	for dim, names := range l.channels {
		out[dim] = append([]string(nil), names...)
	}
	return out, nil
}
