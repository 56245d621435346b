package timer

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestFake_RunsInDueOrder(t *testing.T) {
	f := NewFake()
	var got []string
	f.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	f.AfterFunc(time.Second, func() { got = append(got, "a") })
	f.AfterFunc(2*time.Second, func() { got = append(got, "c") })

	f.Advance(1500 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 1.5s got %v, want [a]", got)
	}
	f.Advance(time.Second)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFake_ChainedCallbacks(t *testing.T) {
	f := NewFake()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			f.AfterFunc(time.Second, tick)
		}
	}
	f.AfterFunc(time.Second, tick)

	f.Advance(10 * time.Second)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if f.Pending() != 0 {
		t.Errorf("pending = %d, want 0", f.Pending())
	}
}

func TestFake_Stop(t *testing.T) {
	f := NewFake()
	fired := false
	s := f.AfterFunc(time.Second, func() { fired = true })

	if !s.Stop() {
		t.Error("first Stop should report true")
	}
	if s.Stop() {
		t.Error("second Stop should report false")
	}
	f.Advance(time.Minute)
	if fired {
		t.Error("stopped callback fired")
	}
}

func TestFake_NowAdvances(t *testing.T) {
	f := NewFake()
	start := f.Now()
	f.Advance(90 * time.Second)
	if got := f.Now().Sub(start); got != 90*time.Second {
		t.Errorf("elapsed = %v", got)
	}
}

func TestClockScheduler_MockClock(t *testing.T) {
	mock := clock.NewMock()
	s := NewWithClock(mock)

	fired := make(chan struct{}, 1)
	s.AfterFunc(time.Second, func() { fired <- struct{}{} })

	mock.Add(time.Second)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire after mock clock advanced")
	}
	if !s.Now().Equal(mock.Now()) {
		t.Error("Now should follow the underlying clock")
	}
}

func TestClockScheduler_Stop(t *testing.T) {
	mock := clock.NewMock()
	s := NewWithClock(mock)

	fired := make(chan struct{}, 1)
	st := s.AfterFunc(time.Second, func() { fired <- struct{}{} })
	st.Stop()
	mock.Add(2 * time.Second)

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(20 * time.Millisecond):
	}
}
