package call

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/aicruiter/internal/providers/assistant"
	"github.com/yoockh/aicruiter/internal/providers/media"
	"github.com/yoockh/aicruiter/internal/utils"
)

type fakeAssistant struct {
	events chan assistant.Event

	mu       sync.Mutex
	starts   []assistant.StartRequest
	stops    int
	startErr error
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{events: make(chan assistant.Event)}
}

func (f *fakeAssistant) Start(_ context.Context, req assistant.StartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	return f.startErr
}

func (f *fakeAssistant) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeAssistant) Events() <-chan assistant.Event { return f.events }
func (f *fakeAssistant) Close() error                   { return nil }

func (f *fakeAssistant) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeAssistant) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeMic struct {
	err   error
	gate  chan error // when set, Acquire waits for a value
	calls atomic.Int32
	asked chan struct{}
}

func (m *fakeMic) Acquire(ctx context.Context) error {
	m.calls.Add(1)
	if m.asked != nil {
		m.asked <- struct{}{}
	}
	if m.gate != nil {
		select {
		case err := <-m.gate:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) armed() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTicker(nil), c.tickers...)
}

type harness struct {
	t     *testing.T
	ctrl  *Controller
	rem   *fakeAssistant
	mic   *fakeMic
	clock *fakeClock

	mu      sync.Mutex
	updates []Update

	cancel context.CancelFunc
	exited chan struct{}
}

func newHarness(t *testing.T, mic *fakeMic) *harness {
	t.Helper()
	if mic == nil {
		mic = &fakeMic{}
	}
	h := &harness{t: t, rem: newFakeAssistant(), mic: mic, clock: &fakeClock{}, exited: make(chan struct{})}

	ctrl, err := NewController(Options{
		Assistant:  h.rem,
		Microphone: h.mic,
		Clock:      h.clock,
		OnChange: func(u Update) {
			h.mu.Lock()
			h.updates = append(h.updates, u)
			h.mu.Unlock()
		},
	})
	require.NoError(t, err)
	h.ctrl = ctrl

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.exited)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(h.shutdown)
	return h
}

func (h *harness) shutdown() {
	h.cancel()
	<-h.exited
}

func (h *harness) send(ev assistant.Event) {
	h.t.Helper()
	select {
	case h.rem.events <- ev:
	case <-time.After(time.Second):
		h.t.Fatalf("controller did not take event %s", ev.Type)
	}
}

func (h *harness) tick() {
	h.t.Helper()
	ts := h.clock.armed()
	require.NotEmpty(h.t, ts, "no ticker armed")
	select {
	case ts[len(ts)-1].ch <- time.Now():
	case <-time.After(time.Second):
		h.t.Fatal("controller is not listening to the ticker")
	}
}

func (h *harness) endings() []Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Update
	for _, u := range h.updates {
		if u.Reason != "" {
			out = append(out, u)
		}
	}
	return out
}

func interview(duration string) Config {
	return Config{
		UserName: "Dana",
		InterviewData: InterviewData{
			JobPosition:  "Backend Engineer",
			Duration:     duration,
			QuestionList: []Question{{Question: "Tell me about yourself", Type: "general"}},
		},
	}
}

func (h *harness) startActive(duration string) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Start(context.Background(), interview(duration)))
	h.send(assistant.Event{Type: assistant.EventSessionStarted})
	require.Equal(h.t, StatusActive, h.ctrl.Snapshot().Status)
}

func TestController_StartSubmitsRequestButWaitsForConfirmation(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.ctrl.Start(context.Background(), interview("5 Min")))

	st := h.ctrl.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.True(t, st.Pending)
	assert.Equal(t, 300, st.TotalSeconds)
	assert.Equal(t, 300, st.RemainingSeconds)
	assert.Empty(t, h.clock.armed(), "countdown must wait for the remote confirmation")

	require.Eventually(t, func() bool { return h.rem.startCount() == 1 }, time.Second, 5*time.Millisecond)
	h.rem.mu.Lock()
	req := h.rem.starts[0]
	h.rem.mu.Unlock()
	assert.Equal(t, "Hi Dana, welcome to your Backend Engineer interview.", req.FirstMessage)
	assert.Equal(t, "AI Recruiter", req.Name)
	require.Len(t, req.Model.Messages, 1)
	assert.Contains(t, req.Model.Messages[0].Content, "Questions: Tell me about yourself")

	h.send(assistant.Event{Type: assistant.EventSessionStarted})
	st = h.ctrl.Snapshot()
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, SpeakerAssistant, st.Speaker)
	assert.False(t, st.Pending)
	assert.Len(t, h.clock.armed(), 1)
}

func TestController_TurnTaking(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")

	h.send(assistant.Event{Type: assistant.EventAssistantSpeakingEnded})
	assert.Equal(t, SpeakerCandidate, h.ctrl.Snapshot().Speaker)

	h.send(assistant.Event{Type: assistant.EventAssistantSpeakingStarted})
	assert.Equal(t, SpeakerAssistant, h.ctrl.Snapshot().Speaker)
}

func TestController_EventsBeforeStartAreIgnored(t *testing.T) {
	h := newHarness(t, nil)

	h.send(assistant.Event{Type: assistant.EventAssistantSpeakingStarted})
	h.send(assistant.Event{Type: assistant.EventAssistantSpeakingEnded})
	h.send(assistant.Event{Type: assistant.EventSessionEnded})

	assert.Equal(t, Idle(), h.ctrl.Snapshot())
	h.mu.Lock()
	assert.Empty(t, h.updates)
	h.mu.Unlock()
}

func TestController_CountdownTimesOutExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("1 Min")

	for want := 59; want >= 1; want-- {
		h.tick()
		st := h.ctrl.Snapshot()
		require.Equal(t, StatusActive, st.Status)
		require.Equal(t, want, st.RemainingSeconds)
	}
	assert.True(t, h.ctrl.Snapshot().IsWarning())

	h.tick()
	assert.Equal(t, terminal(60), h.ctrl.Snapshot())
	assert.True(t, h.clock.armed()[0].stopped.Load())
	require.Eventually(t, func() bool { return h.rem.stopCount() == 1 }, time.Second, 5*time.Millisecond)

	// a late remote hang-up converges on the same state
	h.send(assistant.Event{Type: assistant.EventSessionEnded})
	assert.Equal(t, terminal(60), h.ctrl.Snapshot())

	ends := h.endings()
	require.Len(t, ends, 1)
	assert.Equal(t, EndTimeout, ends[0].Reason)
}

func TestController_PermissionDenied(t *testing.T) {
	h := newHarness(t, &fakeMic{err: errors.New("NotAllowedError")})

	err := h.ctrl.Start(context.Background(), interview("5 Min"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, utils.IsCode(err, utils.CodePermissionDenied))

	assert.Equal(t, Idle(), h.ctrl.Snapshot())
	assert.Never(t, func() bool { return h.rem.startCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	// the candidate can try again once they allow the microphone
	h.mic.err = nil
	require.NoError(t, h.ctrl.Start(context.Background(), interview("5 Min")))
	assert.True(t, h.ctrl.Snapshot().Pending)
}

func TestController_RemoteErrorEndsCall(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")
	h.tick()

	h.send(assistant.Event{Type: assistant.EventSessionError, Err: errors.New("network")})

	assert.Equal(t, terminal(300), h.ctrl.Snapshot())
	assert.True(t, h.clock.armed()[0].stopped.Load())

	ends := h.endings()
	require.Len(t, ends, 1)
	assert.Equal(t, EndRemoteError, ends[0].Reason)
	assert.ErrorIs(t, ends[0].Err, ErrRemoteSession)
	assert.True(t, utils.IsCode(ends[0].Err, utils.CodeRemoteSession))
}

func TestController_RemoteStartFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.rem.startErr = errors.New("dial refused")

	require.NoError(t, h.ctrl.Start(context.Background(), interview("5 Min")))

	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Status == StatusEnded
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, terminal(300), h.ctrl.Snapshot())
	assert.Empty(t, h.clock.armed())

	ends := h.endings()
	require.Len(t, ends, 1)
	assert.Equal(t, EndRemoteError, ends[0].Reason)
}

func TestController_StopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")

	h.ctrl.Stop()
	first := h.ctrl.Snapshot()
	h.ctrl.Stop()
	h.ctrl.Stop()

	assert.Equal(t, terminal(300), first)
	assert.Equal(t, first, h.ctrl.Snapshot())
	assert.True(t, h.clock.armed()[0].stopped.Load())

	ends := h.endings()
	require.Len(t, ends, 1)
	assert.Equal(t, EndStopped, ends[0].Reason)
	require.Eventually(t, func() bool { return h.rem.stopCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return h.rem.stopCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestController_StopBeforeAnyCall(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.Stop()
	st := h.ctrl.Snapshot()
	assert.Equal(t, StatusEnded, st.Status)
	assert.Equal(t, SpeakerNone, st.Speaker)
	assert.Equal(t, 0, st.RemainingSeconds)
	assert.Never(t, func() bool { return h.rem.stopCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestController_StartWhileActiveIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")
	h.tick()
	before := h.ctrl.Snapshot()

	require.NoError(t, h.ctrl.Start(context.Background(), interview("30 Min")))

	assert.Equal(t, before, h.ctrl.Snapshot())
	assert.Equal(t, int32(1), h.mic.calls.Load())
	assert.Never(t, func() bool { return h.rem.startCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestController_NewCallAfterEnded(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")
	h.ctrl.Stop()

	require.NoError(t, h.ctrl.Start(context.Background(), interview("10 Min")))
	st := h.ctrl.Snapshot()
	assert.Equal(t, Begin(600), st)

	h.send(assistant.Event{Type: assistant.EventSessionStarted})
	assert.Equal(t, StatusActive, h.ctrl.Snapshot().Status)
	assert.Len(t, h.clock.armed(), 2)
}

func TestController_StrayConfirmationIsHungUp(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Stop()
	h.mu.Lock()
	h.updates = nil
	h.mu.Unlock()

	h.send(assistant.Event{Type: assistant.EventSessionStarted})

	assert.Equal(t, StatusEnded, h.ctrl.Snapshot().Status)
	assert.Empty(t, h.clock.armed())
	require.Eventually(t, func() bool { return h.rem.stopCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestController_StopWhileAwaitingMicrophone(t *testing.T) {
	mic := &fakeMic{gate: make(chan error), asked: make(chan struct{}, 1)}
	h := newHarness(t, mic)

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Start(context.Background(), interview("5 Min")) }()

	<-mic.asked
	h.ctrl.Stop()

	// the abandoned prompt no longer holds the caller
	var err error
	select {
	case err = <-errc:
	case <-time.After(time.Second):
		t.Fatal("Start still blocked on the microphone after Stop")
	}
	assert.ErrorIs(t, err, ErrStartCancelled)
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
	assert.Equal(t, StatusEnded, h.ctrl.Snapshot().Status)
	assert.Never(t, func() bool { return h.rem.startCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestController_StartAfterAbandonedPromptAsksAgain(t *testing.T) {
	asked := make(chan struct{}, 2)
	gate := media.NewGate(func() error {
		asked <- struct{}{}
		return nil
	})

	h := &harness{t: t, rem: newFakeAssistant(), clock: &fakeClock{}, exited: make(chan struct{})}
	ctrl, err := NewController(Options{Assistant: h.rem, Microphone: gate, Clock: h.clock})
	require.NoError(t, err)
	h.ctrl = ctrl
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.exited)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(h.shutdown)

	first := make(chan error, 1)
	go func() { first <- ctrl.Start(context.Background(), interview("5 Min")) }()
	<-asked
	ctrl.Stop()
	assert.ErrorIs(t, <-first, ErrStartCancelled)

	second := make(chan error, 1)
	go func() { second <- ctrl.Start(context.Background(), interview("5 Min")) }()
	select {
	case <-asked:
	case err := <-second:
		t.Fatalf("second start was not prompted: %v", err)
	case <-time.After(time.Second):
		t.Fatal("second start never asked for the microphone")
	}

	require.Eventually(t, func() bool { return gate.Resolve(true) }, time.Second, time.Millisecond)
	require.NoError(t, <-second)
	assert.True(t, ctrl.Snapshot().Pending)
	require.Eventually(t, func() bool { return h.rem.startCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestController_ShutdownHangsUpLiveCall(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")

	h.shutdown()

	assert.Equal(t, terminal(300), h.ctrl.Snapshot())
	assert.Equal(t, 1, h.rem.stopCount())
	assert.ErrorIs(t, h.ctrl.Start(context.Background(), interview("5 Min")), ErrNotRunning)
}

func TestController_ClosedEventStreamEndsCall(t *testing.T) {
	h := newHarness(t, nil)
	h.startActive("5 Min")

	close(h.rem.events)

	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Status == StatusEnded
	}, time.Second, 5*time.Millisecond)
	ends := h.endings()
	require.Len(t, ends, 1)
	assert.Equal(t, EndRemoteError, ends[0].Reason)
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	_, err := NewController(Options{Microphone: &fakeMic{}})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = NewController(Options{Assistant: newFakeAssistant()})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
