package notify

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Bren2010/notetree/crypto/suites"
	"github.com/Bren2010/notetree/db/memory"
	"github.com/Bren2010/notetree/tree/accumulator"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (fp *fakePublisher) Publish(subject string, data []byte) error {
	if fp.err != nil {
		return fp.err
	}
	fp.msgs = append(fp.msgs, published{subject, data})
	return nil
}

func TestNATS(t *testing.T) {
	pub := &fakePublisher{}
	acc, err := accumulator.Open(suites.NTSha256{}, 3, memory.NewAccumulatorStore(), NewNATS(pub, "notetree"))
	if err != nil {
		t.Fatal(err)
	}
	leaf := make([]byte, 32)
	leaf[0] = 7
	if _, err := acc.Append(leaf); err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("unexpected number of messages: %v", len(pub.msgs))
	} else if pub.msgs[0].subject != "notetree.created" || pub.msgs[1].subject != "notetree.appended" {
		t.Fatalf("unexpected subjects: %v, %v", pub.msgs[0].subject, pub.msgs[1].subject)
	}

	var created, appended Message
	if err := json.Unmarshal(pub.msgs[0].data, &created); err != nil {
		t.Fatal(err)
	} else if err := json.Unmarshal(pub.msgs[1].data, &appended); err != nil {
		t.Fatal(err)
	}
	if created.Kind != "created" || created.Levels != 3 || created.Leaf != "" || created.Path != nil {
		t.Fatalf("unexpected creation message: %+v", created)
	}
	root := acc.Root()
	if appended.Index != 0 || appended.Root != encodeHash(root) || len(appended.Path) != 3 {
		t.Fatalf("unexpected append message: %+v", appended)
	} else if appended.Leaf != "07"+strings.Repeat("0", 62) {
		t.Fatalf("unexpected leaf in message: %v", appended.Leaf)
	}

	// Delivery failures must not fail the append.
	pub.err = errors.New("connection closed")
	if _, err := acc.Append(leaf); err != nil {
		t.Fatal(err)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, 8)
	rec := 0
	acc, err := accumulator.Open(suites.NTSha256{}, 3, memory.NewAccumulatorStore(),
		Multi{m, accumulator.ObserverFunc(func(*accumulator.Event) { rec++ })})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := acc.Append(make([]byte, 32)); err != nil {
			t.Fatal(err)
		}
	}

	if got := testutil.ToFloat64(m.size); got != 3 {
		t.Fatalf("unexpected size: %v", got)
	} else if got := testutil.ToFloat64(m.remaining); got != 5 {
		t.Fatalf("unexpected remaining capacity: %v", got)
	} else if got := testutil.ToFloat64(m.appends); got != 3 {
		t.Fatalf("unexpected append count: %v", got)
	} else if rec != 4 {
		t.Fatalf("second observer saw %v events", rec)
	}
}
