// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bcem/threadintel/internal/lock"
	"github.com/bcem/threadintel/internal/models"
	"github.com/bcem/threadintel/internal/pipeline"
	"github.com/bcem/threadintel/internal/queue"
)

type fakeProcessor struct {
	mu       sync.Mutex
	fail     map[int64]error
	seen     []int64
	onRun    func(id int64)
	fallback bool
}

func (f *fakeProcessor) Process(_ context.Context, id int64) (*pipeline.Outcome, error) {
	f.mu.Lock()
	f.seen = append(f.seen, id)
	err := f.fail[id]
	hook := f.onRun
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	return &pipeline.Outcome{
		ThreadID: id,
		Result:   models.StructuredResult{Action: models.ActionNeedToKnow},
		Summary:  models.ThreadSummary{ID: id * 10, ThreadID: id, Action: models.ActionNeedToKnow},
		Fallback: f.fallback,
	}, nil
}

type fakeLister struct {
	ids       []int64
	err       error
	label     string
	limit     int
	callCount int
}

func (f *fakeLister) ListThreadsNeedingSummary(_ context.Context, label string, limit int) ([]int64, error) {
	f.callCount++
	f.label, f.limit = label, limit
	return f.ids, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.SummaryEvent
	err    error
}

func (f *fakePublisher) PublishThreadSummary(_ context.Context, ev queue.SummaryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func TestRunner_SelectsByLabel(t *testing.T) {
	lister := &fakeLister{ids: []int64{1, 2, 3}}
	proc := &fakeProcessor{fail: map[int64]error{2: errors.New("model down")}}
	pub := &fakePublisher{}
	r := NewRunner(RunnerConfig{Processor: proc, Threads: lister, Publisher: pub})

	res, err := r.Run(context.Background(), Request{Label: "CATEGORY_PERSONAL", Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if lister.label != "CATEGORY_PERSONAL" || lister.limit != 20 {
		t.Errorf("lister called with %q, %d", lister.label, lister.limit)
	}
	if res.Processed != 2 || res.Failed != 1 || res.Skipped != 0 || len(res.Threads) != 3 {
		t.Errorf("result = %+v", res)
	}
	if res.Threads[1].Status != StatusFailed || res.Threads[1].Error != "model down" {
		t.Errorf("thread 2 = %+v", res.Threads[1])
	}
	if res.Threads[2].SummaryID != 30 || res.Threads[2].Action != models.ActionNeedToKnow {
		t.Errorf("thread 3 = %+v", res.Threads[2])
	}
	if len(pub.events) != 2 || pub.events[0].SummaryID != 10 || pub.events[1].ThreadID != 3 {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestRunner_ExplicitThreads(t *testing.T) {
	lister := &fakeLister{ids: []int64{99}}
	proc := &fakeProcessor{}
	r := NewRunner(RunnerConfig{Processor: proc, Threads: lister})

	res, err := r.Run(context.Background(), Request{ThreadIDs: []int64{5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if lister.callCount != 0 {
		t.Error("lister consulted despite explicit ids")
	}
	if res.Processed != 2 || len(proc.seen) != 2 || proc.seen[0] != 5 {
		t.Errorf("result = %+v, seen = %v", res, proc.seen)
	}
}

func TestRunner_SelectionError(t *testing.T) {
	r := NewRunner(RunnerConfig{Processor: &fakeProcessor{}, Threads: &fakeLister{err: errors.New("db gone")}})
	if _, err := r.Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected selection error")
	}
}

func TestRunner_SkipsLockedThread(t *testing.T) {
	locker := lock.NewKeyedMutex()
	release, ok, err := locker.TryAcquire(context.Background(), "thread:7")
	if err != nil || !ok {
		t.Fatal("could not take lock")
	}
	defer release()

	proc := &fakeProcessor{}
	r := NewRunner(RunnerConfig{Processor: proc, Threads: &fakeLister{}, Locker: locker})
	res, err := r.Run(context.Background(), Request{ThreadIDs: []int64{7, 8}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Processed != 1 || res.Threads[0].Status != StatusSkipped {
		t.Errorf("result = %+v", res)
	}
	if len(proc.seen) != 1 || proc.seen[0] != 8 {
		t.Errorf("processed %v, want [8]", proc.seen)
	}
}

func TestRunner_PublishFailureKeepsProcessed(t *testing.T) {
	r := NewRunner(RunnerConfig{
		Processor: &fakeProcessor{},
		Threads:   &fakeLister{},
		Publisher: &fakePublisher{err: errors.New("redis down")},
	})
	res, err := r.Run(context.Background(), Request{ThreadIDs: []int64{1}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &fakeProcessor{onRun: func(int64) { cancel() }}
	r := NewRunner(RunnerConfig{Processor: proc, Threads: &fakeLister{}})

	res, err := r.Run(ctx, Request{ThreadIDs: []int64{1, 2, 3}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if res == nil || res.Processed != 1 || len(proc.seen) != 1 {
		t.Errorf("result = %+v, seen = %v", res, proc.seen)
	}
}

func TestPoller_RunsUntilCancelled(t *testing.T) {
	lister := &fakeLister{}
	var mu sync.Mutex
	calls := 0
	proc := &fakeProcessor{onRun: func(int64) {
		mu.Lock()
		calls++
		mu.Unlock()
	}}
	r := NewRunner(RunnerConfig{Processor: proc, Threads: lister})
	p := NewPoller(r, 10*time.Millisecond, Request{ThreadIDs: []int64{1}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("poller ran %d times, want at least 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
