package events

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFeed_Publish(t *testing.T) {
	f := NewFeed(10)
	f.Publish("Created", 3, map[string]string{"owner": "alice"})

	if f.Count() != 1 {
		t.Errorf("Count() = %d, want 1", f.Count())
	}

	recent := f.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("Recent(1) len = %d, want 1", len(recent))
	}
	rec := recent[0]
	if rec.Kind != "Created" || rec.Height != 3 || rec.Seq != 1 {
		t.Errorf("record = %+v", rec)
	}
	if rec.ID == "" {
		t.Error("ID should be assigned")
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if !strings.Contains(rec.String(), `"owner":"alice"`) {
		t.Errorf("String() = %s", rec.String())
	}
}

func TestFeed_Overflow(t *testing.T) {
	f := NewFeed(3)
	for i := 0; i < 5; i++ {
		f.Publish("PriceSet", uint64(i), i)
	}

	if f.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (capped)", f.Count())
	}

	recent := f.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("Recent(10) len = %d, want 3", len(recent))
	}
	for i, want := range []uint64{5, 4, 3} {
		if recent[i].Seq != want {
			t.Errorf("recent[%d].Seq = %d, want %d", i, recent[i].Seq, want)
		}
	}
}

func TestFeed_RecentByKind(t *testing.T) {
	f := NewFeed(10)
	f.Publish("Created", 1, nil)
	f.Publish("Bred", 1, nil)
	f.Publish("Created", 2, nil)

	created := f.RecentByKind("Created", 5)
	if len(created) != 2 {
		t.Fatalf("RecentByKind len = %d, want 2", len(created))
	}
	if created[0].Height != 2 {
		t.Errorf("newest first: got height %d", created[0].Height)
	}
	if got := f.Recent(0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}
}

func TestFeed_Subscribe(t *testing.T) {
	f := NewFeed(10)

	var all, bred int32
	cancel := f.Subscribe(func(Record) { atomic.AddInt32(&all, 1) })
	cancelBred := f.SubscribeFiltered(
		func(r Record) bool { return r.Kind == "Bred" },
		func(Record) { atomic.AddInt32(&bred, 1) },
	)
	if f.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d, want 2", f.Subscribers())
	}

	f.Publish("Created", 1, nil)
	f.Publish("Bred", 1, nil)

	cancel()
	f.Publish("Bred", 2, nil)
	cancelBred()

	if got := atomic.LoadInt32(&all); got != 2 {
		t.Errorf("all handler calls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&bred); got != 2 {
		t.Errorf("filtered handler calls = %d, want 2", got)
	}
	if f.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", f.Subscribers())
	}
}

func TestFeed_ConcurrentPublish(t *testing.T) {
	f := NewFeed(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				f.Publish("Transferred", 1, nil)
			}
		}()
	}
	wg.Wait()

	if f.Count() != 500 {
		t.Errorf("Count() = %d, want 500", f.Count())
	}
	if top := f.Recent(1)[0].Seq; top != 500 {
		t.Errorf("newest Seq = %d, want 500", top)
	}
}
