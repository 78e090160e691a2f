package call

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/aicruiter/internal/providers/assistant"
	"github.com/yoockh/aicruiter/internal/utils"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrRemoteSession    = errors.New("remote assistant session failed")
	ErrStartCancelled   = errors.New("start cancelled")
	ErrNotRunning       = errors.New("call controller is not running")
)

// Microphone asks the candidate's device for audio input. It may block until the user answers.
type Microphone interface {
	Acquire(ctx context.Context) error
}

// Update is handed to Options.OnChange after every state change.
type Update struct {
	State State
	Prev  State

	// Reason and Err are set on the transition into StatusEnded.
	Reason EndReason
	Err    error
}

type Options struct {
	Assistant  assistant.Provider
	Microphone Microphone
	Clock      Clock
	Model      ModelSettings
	Logger     *logrus.Entry

	// OnChange runs on the controller goroutine and must not block.
	OnChange func(Update)

	StopTimeout time.Duration
}

// Controller owns one interview call at a time. All state lives on the Run goroutine;
// user commands, remote events and countdown ticks are serialized through its select loop.
type Controller struct {
	assistant   assistant.Provider
	mic         Microphone
	clock       Clock
	model       ModelSettings
	log         *logrus.Entry
	onChange    func(Update)
	stopTimeout time.Duration

	inbox   chan any
	remote  chan func()
	done    chan struct{}
	running atomic.Bool

	// owned by the Run goroutine
	state     State
	ticker    Ticker
	acquiring bool
	cancelMic context.CancelFunc
	seq       uint64
}

type startMsg struct {
	ctx   context.Context
	cfg   Config
	reply chan error
}

type stopMsg struct{ reply chan struct{} }

type snapshotMsg struct{ reply chan State }

type micResultMsg struct {
	seq   uint64
	cfg   Config
	err   error
	reply chan error
}

type remoteFailedMsg struct {
	seq uint64
	err error
}

func NewController(opts Options) (*Controller, error) {
	const op = "call.NewController"

	if opts.Assistant == nil || opts.Microphone == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "assistant and microphone are required", nil)
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.New())
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}

	return &Controller{
		assistant:   opts.Assistant,
		mic:         opts.Microphone,
		clock:       opts.Clock,
		model:       opts.Model,
		log:         opts.Logger,
		onChange:    opts.OnChange,
		stopTimeout: opts.StopTimeout,
		inbox:       make(chan any),
		remote:      make(chan func(), 8),
		done:        make(chan struct{}),
		state:       Idle(),
	}, nil
}

// Run processes inputs until ctx is cancelled. A live call is stopped on the way out.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("call controller already running")
	}

	remoteDone := make(chan struct{})
	go func() {
		defer close(remoteDone)
		for op := range c.remote {
			op()
		}
	}()
	defer func() {
		close(c.done)
		close(c.remote)
		<-remoteDone
	}()

	events := c.assistant.Events()
	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case msg := <-c.inbox:
			c.handle(ctx, msg)

		case ev, ok := <-events:
			if !ok {
				events = nil
				ev = assistant.Event{Type: assistant.EventSessionError, Err: errors.New("assistant event stream closed")}
			}
			c.onEvent(ev)

		case <-tick:
			next, eff := Tick(c.state)
			c.commit(next, eff, EndTimeout, nil)
		}
	}
}

// Start requests the microphone and submits the session-start request. It returns once the
// request is submitted; the call becomes active only on the remote confirmation. Calling it
// while a call is live is a no-op.
func (c *Controller) Start(ctx context.Context, cfg Config) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- startMsg{ctx: ctx, cfg: cfg, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}
}

// Stop ends the call locally and asks the remote side to hang up without waiting for it.
func (c *Controller) Stop() {
	reply := make(chan struct{})
	select {
	case c.inbox <- stopMsg{reply: reply}:
	case <-c.done:
		return
	}
	select {
	case <-reply:
	case <-c.done:
	}
}

func (c *Controller) Snapshot() State {
	reply := make(chan State, 1)
	select {
	case c.inbox <- snapshotMsg{reply: reply}:
		return <-reply
	case <-c.done:
		return c.state
	}
}

func (c *Controller) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case startMsg:
		c.onStart(m)
	case stopMsg:
		c.onStop()
		close(m.reply)
	case snapshotMsg:
		m.reply <- c.state
	case micResultMsg:
		c.onMicResult(ctx, m)
	case remoteFailedMsg:
		if m.seq != c.seq {
			return
		}
		c.log.WithError(m.err).Warn("assistant start failed")
		next, eff := Apply(c.state, assistant.Event{Type: assistant.EventSessionError, Err: m.err})
		c.commit(next, eff, EndRemoteError, remoteErr(m.err))
	}
}

func (c *Controller) onStart(m startMsg) {
	if c.state.Live() || c.acquiring {
		c.log.Debug("start ignored, call already live")
		m.reply <- nil
		return
	}

	c.acquiring = true
	c.seq++
	seq := c.seq
	micCtx, cancel := context.WithCancel(m.ctx)
	c.cancelMic = cancel
	go func() {
		err := c.mic.Acquire(micCtx)
		c.post(micResultMsg{seq: seq, cfg: m.cfg, err: err, reply: m.reply})
	}()
}

func (c *Controller) onMicResult(ctx context.Context, m micResultMsg) {
	const op = "Controller.Start"

	if m.seq != c.seq {
		m.reply <- utils.E(utils.CodeConflict, op, "start cancelled", ErrStartCancelled)
		return
	}
	c.abandonMic()

	if errors.Is(m.err, context.Canceled) || errors.Is(m.err, context.DeadlineExceeded) {
		m.reply <- utils.E(utils.CodeConflict, op, "start cancelled", errors.Join(ErrStartCancelled, m.err))
		return
	}
	if m.err != nil {
		c.log.WithError(m.err).Info("microphone not granted")
		m.reply <- utils.E(utils.CodePermissionDenied, op, "microphone permission denied", errors.Join(ErrPermissionDenied, m.err))
		return
	}

	total := ParseDurationLabel(m.cfg.InterviewData.Duration)
	c.commit(Begin(total), Effects{}, "", nil)

	req := BuildStartRequest(m.cfg, c.model)
	seq := c.seq
	c.enqueue(func() {
		if err := c.assistant.Start(ctx, req); err != nil {
			go c.post(remoteFailedMsg{seq: seq, err: err})
		}
	})

	c.log.WithFields(logrus.Fields{
		"job_position":  m.cfg.InterviewData.JobPosition,
		"questions":     len(m.cfg.InterviewData.QuestionList),
		"total_seconds": total,
	}).Info("call start requested")
	m.reply <- nil
}

func (c *Controller) onStop() {
	c.seq++
	c.abandonMic()
	next, eff := Stop(c.state)
	c.commit(next, eff, EndStopped, nil)
}

func (c *Controller) onEvent(ev assistant.Event) {
	var cause error
	if ev.Type == assistant.EventSessionError {
		cause = remoteErr(ev.Err)
		if c.state.Live() {
			c.log.WithError(ev.Err).Warn("assistant reported an error")
		}
	}
	next, eff := Apply(c.state, ev)
	c.commit(next, eff, reasonFor(ev.Type), cause)
}

func remoteErr(err error) error {
	return utils.E(utils.CodeRemoteSession, "Controller.Run", "remote session failed", errors.Join(ErrRemoteSession, err))
}

func (c *Controller) shutdown() {
	if !c.state.Live() && !c.acquiring {
		c.disarm()
		return
	}
	c.seq++
	c.abandonMic()
	next, eff := Stop(c.state)
	c.commit(next, eff, EndStopped, nil)
}

// abandonMic releases an outstanding microphone request, if any.
func (c *Controller) abandonMic() {
	c.acquiring = false
	if c.cancelMic != nil {
		c.cancelMic()
		c.cancelMic = nil
	}
}

func (c *Controller) commit(next State, eff Effects, reason EndReason, cause error) {
	if eff.CancelTimer {
		c.disarm()
	}
	if eff.ArmTimer {
		c.arm()
	}
	if eff.StopRemote {
		c.stopRemote()
	}

	if next == c.state {
		return
	}
	u := Update{State: next, Prev: c.state}
	c.state = next

	if next.Status == StatusEnded && u.Prev.Status != StatusEnded {
		u.Reason = reason
		u.Err = cause
		c.log.WithFields(logrus.Fields{
			"reason":            reason,
			"remaining_seconds": u.Prev.RemainingSeconds,
		}).Info("call ended")
	}
	if next.Status == StatusActive && u.Prev.Status != StatusActive {
		c.log.WithField("total_seconds", next.TotalSeconds).Info("call active")
	}

	if c.onChange != nil {
		c.onChange(u)
	}
}

func (c *Controller) arm() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.ticker = c.clock.NewTicker(time.Second)
}

func (c *Controller) disarm() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
}

func (c *Controller) stopRemote() {
	c.enqueue(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
		defer cancel()
		if err := c.assistant.Stop(ctx); err != nil {
			c.log.WithError(err).Warn("assistant stop failed")
		}
	})
}

// enqueue keeps remote start/stop calls in submission order off the loop goroutine.
func (c *Controller) enqueue(op func()) {
	c.remote <- op
}

func (c *Controller) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}
