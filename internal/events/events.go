// Package events carries simulation and bridge notifications to observers
// over one typed channel.
package events

import (
	"sync/atomic"
	"time"
)

type Kind string

const (
	ZoneChanged      Kind = "zone_changed"
	Collision        Kind = "collision"
	EpisodeEnd       Kind = "episode_end"
	ConfigRejected   Kind = "config_rejected"
	ConnectionStatus Kind = "connection_status"
	TrainingStatus   Kind = "training_status"
	Restart          Kind = "restart"
	Checkpoint       Kind = "checkpoint"
)

// Event is a flat record; only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	At   time.Time

	Episode uint64
	Step    int

	From string
	To   string

	Reason string
	Reward float64
	Detail map[string]any
}

// Bus is a bounded fan-in channel. Publishing never blocks the tick path;
// events are dropped when the consumer falls behind.
type Bus struct {
	ch      chan Event
	dropped atomic.Uint64
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	return &Bus{ch: make(chan Event, capacity)}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case b.ch <- e:
	default:
		b.dropped.Add(1)
	}
}

// C is the single receive side shared by all consumers.
func (b *Bus) C() <-chan Event { return b.ch }

func (b *Bus) Dropped() uint64 { return b.dropped.Load() }
