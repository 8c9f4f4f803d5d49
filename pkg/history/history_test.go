package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/antispoof/pkg/antispoof"
	"github.com/haivivi/antispoof/pkg/history"
)

func newBadgerStore(t *testing.T) history.Store {
	t.Helper()
	s, err := history.NewBadger(history.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newMemoryStore(t *testing.T) history.Store {
	return history.NewMemory()
}

var stores = []struct {
	name string
	new  func(*testing.T) history.Store
}{
	{"badger", newBadgerStore},
	{"memory", newMemoryStore},
}

func sampleRecord(name string) *history.Record {
	return &history.Record{
		Filename: name,
		Channels: 2,
		Duration: 4.2,
		Results: []antispoof.ChannelResult{
			antispoof.NewChannelResult(0, antispoof.Logits{1, 3}),
			antispoof.NewChannelResult(1, antispoof.Logits{2, 2}),
		},
	}
}

func TestPutGet(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			ctx := context.Background()
			s := st.new(t)

			r := sampleRecord("call.wav")
			if err := s.Put(ctx, r); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if !history.ValidID(r.ID) {
				t.Fatalf("Put assigned invalid ID %q", r.ID)
			}
			if r.CreatedAt.IsZero() {
				t.Fatal("Put did not set CreatedAt")
			}

			got, err := s.Get(ctx, r.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Filename != "call.wav" || got.Channels != 2 || got.Duration != 4.2 {
				t.Errorf("Get = %+v", got)
			}
			if !got.CreatedAt.Equal(r.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
			}
			if len(got.Results) != 2 {
				t.Fatalf("len(Results) = %d, want 2", len(got.Results))
			}
			if got.Results[0] != r.Results[0] || got.Results[1] != r.Results[1] {
				t.Errorf("Results = %+v, want %+v", got.Results, r.Results)
			}
			if got.Results[1].Label != antispoof.LabelFake {
				t.Errorf("tie label = %s, want FAKE", got.Results[1].Label)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			_, err := st.new(t).Get(context.Background(), history.NewID())
			if !errors.Is(err, history.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			ctx := context.Background()
			s := st.new(t)

			var ids []string
			for _, name := range []string{"a.wav", "b.wav", "c.wav", "d.wav"} {
				r := sampleRecord(name)
				if err := s.Put(ctx, r); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, r.ID)
				time.Sleep(2 * time.Millisecond)
			}

			got, err := s.List(ctx, 3)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 {
				t.Fatalf("len = %d, want 3", len(got))
			}
			for i, want := range []string{ids[3], ids[2], ids[1]} {
				if got[i].ID != want {
					t.Errorf("List[%d] = %s (%s), want %s", i, got[i].ID, got[i].Filename, want)
				}
			}

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 {
				t.Errorf("default limit returned %d, want 4", len(all))
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			ctx := context.Background()
			s := st.new(t)

			r := sampleRecord("x.wav")
			if err := s.Put(ctx, r); err != nil {
				t.Fatal(err)
			}
			if err := s.Delete(ctx, r.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Get(ctx, r.ID); !errors.Is(err, history.ErrNotFound) {
				t.Errorf("after Delete err = %v, want ErrNotFound", err)
			}
			if err := s.Delete(ctx, r.ID); err != nil {
				t.Errorf("second Delete = %v, want nil", err)
			}
		})
	}
}

func TestPutKeepsExplicitID(t *testing.T) {
	s := history.NewMemory()
	id := history.NewID()
	r := &history.Record{ID: id, Filename: "y.wav"}
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if r.ID != id {
		t.Errorf("ID changed to %s", r.ID)
	}
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := history.NewBadger(history.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	r := sampleRecord("persist.wav")
	if err := s.Put(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = history.NewBadger(history.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "persist.wav" {
		t.Errorf("Filename = %q", got.Filename)
	}
}

func TestNewBadgerRequiresDir(t *testing.T) {
	if _, err := history.NewBadger(history.BadgerOptions{}); err == nil {
		t.Error("expected error without Dir")
	}
}
