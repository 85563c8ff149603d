// Package notify implements observers that deliver accumulator events to
// off-line collaborators: the process log, a NATS subject, and Prometheus.
package notify

import (
	"encoding/hex"
	"log"

	"github.com/Bren2010/notetree/tree/accumulator"
	"github.com/Bren2010/notetree/tree/incremental"
)

// Message is the JSON form of an accumulator event.
type Message struct {
	Kind   string   `json:"kind"`
	Levels int      `json:"levels"`
	Index  uint64   `json:"index"`
	Root   string   `json:"root"`
	Leaf   string   `json:"leaf,omitempty"`
	Path   []string `json:"path,omitempty"`
}

func encodeHash(h incremental.Hash) string { return hex.EncodeToString(h[:]) }

// NewMessage converts an event into its JSON form.
func NewMessage(ev *accumulator.Event) *Message {
	msg := &Message{
		Kind:   ev.Kind.String(),
		Levels: ev.Levels,
		Index:  ev.Index,
		Root:   encodeHash(ev.Root),
	}
	if ev.Kind == accumulator.Appended {
		msg.Leaf = encodeHash(ev.Leaf)
		msg.Path = make([]string, len(ev.Path))
		for i, h := range ev.Path {
			msg.Path[i] = encodeHash(h)
		}
	}
	return msg
}

// Multi fans each event out to several observers, in order.
type Multi []accumulator.Observer

func (m Multi) Notify(ev *accumulator.Event) {
	for _, o := range m {
		o.Notify(ev)
	}
}

// Logger writes a line to the standard logger for every event.
type Logger struct{}

func (Logger) Notify(ev *accumulator.Event) {
	switch ev.Kind {
	case accumulator.Created:
		log.Printf("Created tree: levels=%v, root=%v", ev.Levels, ev.Root)
	case accumulator.Appended:
		log.Printf("Appended leaf: index=%v, leaf=%v, root=%v", ev.Index, ev.Leaf, ev.Root)
	}
}
