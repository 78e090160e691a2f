package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/aicruiter/internal/call"
	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/providers/assistant"
	"github.com/yoockh/aicruiter/internal/providers/media"
	"github.com/yoockh/aicruiter/internal/services"
	"github.com/yoockh/aicruiter/internal/utils"
	"github.com/yoockh/aicruiter/internal/workers"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
	publishTimeout = 3 * time.Second
)

// CallPublisher receives the room's state changes. It may be nil.
type CallPublisher interface {
	PublishStatus(ctx context.Context, callID string, payload []byte) error
	PublishLifecycle(ctx context.Context, ev workers.LifecycleEvent) error
}

type WSHandler struct {
	interviews   services.InterviewService
	newAssistant func() assistant.Provider
	publisher    CallPublisher
	model        call.ModelSettings
	log          *logrus.Logger
	upgrader     websocket.Upgrader
}

func NewWSHandler(interviews services.InterviewService, newAssistant func() assistant.Provider, pub CallPublisher, model call.ModelSettings, l *logrus.Logger) *WSHandler {
	return &WSHandler{
		interviews:   interviews,
		newAssistant: newAssistant,
		publisher:    pub,
		model:        model,
		log:          l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type     string `json:"type"` // join|start|stop|mic_permission
	UserName string `json:"user_name"`
	Granted  bool   `json:"granted"`
}

type wsStateMsg struct {
	Type             string       `json:"type"`
	CallID           string       `json:"call_id,omitempty"`
	Status           call.Status  `json:"status"`
	Speaker          call.Speaker `json:"speaker"`
	TotalSeconds     int          `json:"total_seconds"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Warning          bool         `json:"warning"`
	Caption          string       `json:"caption"`
	Reason           string       `json:"reason,omitempty"`
}

type wsErrorMsg struct {
	Type    string     `json:"type"`
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func stateMsg(s call.State, callID string, reason call.EndReason) wsStateMsg {
	return wsStateMsg{
		Type:             "state",
		CallID:           callID,
		Status:           s.Status,
		Speaker:          s.Speaker,
		TotalSeconds:     s.TotalSeconds,
		RemainingSeconds: s.RemainingSeconds,
		Warning:          s.IsWarning(),
		Caption:          s.Caption(),
		Reason:           string(reason),
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

func (w *wsConn) writeError(code utils.Code, msg string) error {
	return w.writeJSON(wsErrorMsg{Type: "error", Code: code, Message: msg})
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// InterviewWS runs one interview room: a candidate, a call controller, and the remote
// assistant session behind it.
func (h *WSHandler) InterviewWS(c *gin.Context) {
	const op = "WSHandler.InterviewWS"

	iv, err := h.interviews.Get(c.Request.Context(), c.Param("interview_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	questions, err := iv.Questions()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "corrupt question list", err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	log := h.log.WithField("interview_id", iv.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := h.newAssistant()
	defer remote.Close()

	gate := media.NewGate(func() error {
		return wc.writeJSON(gin.H{"type": "mic_permission_request"})
	})

	r := &room{
		interview: iv,
		questions: questions,
		conn:      wc,
		publisher: h.publisher,
		log:       log,
		updates:   make(chan call.Update, 256),
	}

	ctrl, err := call.NewController(call.Options{
		Assistant:  remote,
		Microphone: gate,
		Model:      h.model,
		Logger:     log,
		OnChange:   r.onChange,
	})
	if err != nil {
		_ = wc.writeError(utils.CodeInternal, "call controller unavailable")
		return
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := ctrl.Run(ctx); err != nil {
			log.WithError(err).Error("call controller stopped")
		}
	}()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		r.writeLoop()
	}()

	_ = wc.writeJSON(stateMsg(call.Idle(), "", ""))

	// closing the socket hangs up the call
	defer func() {
		cancel()
		<-runDone
		close(r.updates)
		<-writeDone
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeError(utils.CodeInvalidArgument, "invalid json")
			continue
		}

		switch msg.Type {
		case "join":
			r.setUserName(strings.TrimSpace(msg.UserName))

		case "start":
			cfg := r.config()
			go func() {
				if err := ctrl.Start(ctx, cfg); err != nil && ctx.Err() == nil {
					r.reportStartError(err)
				}
			}()

		case "stop":
			ctrl.Stop()

		case "mic_permission":
			if !gate.Resolve(msg.Granted) {
				_ = wc.writeError(utils.CodeConflict, "no microphone request pending")
			}

		default:
			_ = wc.writeError(utils.CodeInvalidArgument, "unknown message type")
		}
	}
}

// room is the per-connection glue between the controller's updates and the outside world.
type room struct {
	interview *models.Interview
	questions []models.InterviewQuestion
	conn      *wsConn
	publisher CallPublisher
	log       *logrus.Entry
	updates   chan call.Update

	mu       sync.Mutex
	userName string

	// owned by writeLoop
	callID    string
	announced bool
}

func (r *room) setUserName(name string) {
	r.mu.Lock()
	r.userName = name
	r.mu.Unlock()
}

func (r *room) name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userName
}

func (r *room) config() call.Config {
	qs := make([]call.Question, 0, len(r.questions))
	for _, q := range r.questions {
		qs = append(qs, call.Question{Question: q.Question, Type: q.Type})
	}
	return call.Config{
		UserName: r.name(),
		InterviewData: call.InterviewData{
			JobPosition:  r.interview.JobPosition,
			Duration:     r.interview.Duration,
			QuestionList: qs,
		},
	}
}

func (r *room) onChange(u call.Update) {
	select {
	case r.updates <- u:
	default:
		r.log.WithField("status", u.State.Status).Warn("room update dropped, writer is behind")
	}
}

func (r *room) reportStartError(err error) {
	switch {
	case utils.IsCode(err, utils.CodePermissionDenied):
		_ = r.conn.writeError(utils.CodePermissionDenied, "microphone permission denied")
	case utils.IsCode(err, utils.CodeConflict):
		// stopped while the microphone prompt was open
	default:
		r.log.WithError(err).Warn("call start failed")
		_ = r.conn.writeError(utils.CodeRemoteSession, "could not start the interview call")
	}
}

func (r *room) writeLoop() {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case u, ok := <-r.updates:
			if !ok {
				return
			}
			r.apply(u)
		case <-ping.C:
			_ = r.conn.ping()
		}
	}
}

func (r *room) apply(u call.Update) {
	if !u.Prev.Live() && u.State.Live() {
		r.callID = uuid.NewString()
		r.announced = false
	}

	frame := stateMsg(u.State, r.callID, u.Reason)
	_ = r.conn.writeJSON(frame)

	if r.callID == "" {
		return
	}
	log := r.log.WithField("call_id", r.callID)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if r.publisher != nil {
		if b, err := json.Marshal(frame); err == nil {
			if err := r.publisher.PublishStatus(ctx, r.callID, b); err != nil {
				log.WithError(err).Warn("status publish failed")
			}
		}
	}

	switch {
	case u.State.Status == call.StatusActive && u.Prev.Status != call.StatusActive:
		r.announced = true
		r.lifecycle(ctx, log, workers.LifecycleEvent{
			Type:         workers.LifecycleActive,
			CallID:       r.callID,
			InterviewID:  r.interview.ID,
			UserName:     r.name(),
			TotalSeconds: u.State.TotalSeconds,
			At:           time.Now().UTC(),
		})

	case u.State.Status == call.StatusEnded && u.Prev.Status != call.StatusEnded:
		if r.announced {
			ev := workers.LifecycleEvent{
				Type:        workers.LifecycleEnded,
				CallID:      r.callID,
				InterviewID: r.interview.ID,
				At:          time.Now().UTC(),
				Reason:      string(u.Reason),
			}
			if u.Err != nil {
				ev.Error = u.Err.Error()
			}
			r.lifecycle(ctx, log, ev)
		}
		r.callID = ""
		r.announced = false
	}
}

func (r *room) lifecycle(ctx context.Context, log *logrus.Entry, ev workers.LifecycleEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishLifecycle(ctx, ev); err != nil {
		log.WithError(err).Warn("lifecycle publish failed")
	}
}
