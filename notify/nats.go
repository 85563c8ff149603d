package notify

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/Bren2010/notetree/tree/accumulator"
)

// Publisher is the subset of *nats.Conn used to deliver events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every event as JSON to `<subject>.<kind>`, so that indexers
// can rebuild the tree and its authentication paths by replaying them.
type NATS struct {
	pub     Publisher
	subject string
}

func NewNATS(pub Publisher, subject string) *NATS {
	return &NATS{pub: pub, subject: subject}
}

// DialNATS connects to the NATS server at `url` and returns an observer that
// publishes to it, along with the underlying connection.
func DialNATS(url, subject string) (*NATS, *nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("notetree"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, err
	}
	return NewNATS(conn, subject), conn, nil
}

func (n *NATS) Notify(ev *accumulator.Event) {
	data, err := json.Marshal(NewMessage(ev))
	if err != nil {
		log.Printf("Failed to encode event: %v", err)
		return
	}
	if err := n.pub.Publish(n.subject+"."+ev.Kind.String(), data); err != nil {
		log.Printf("Failed to publish event for index %v: %v", ev.Index, err)
	}
}
