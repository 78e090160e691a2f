package call

import "github.com/yoockh/aicruiter/internal/providers/assistant"

type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

type Speaker string

const (
	SpeakerNone      Speaker = "none"
	SpeakerAssistant Speaker = "assistant"
	SpeakerCandidate Speaker = "candidate"
)

// WarningSeconds is the remaining time under which the countdown is flagged.
const WarningSeconds = 60

// State is the UI-facing view of one call. Speaker is SpeakerNone unless Status is active,
// and 0 <= RemainingSeconds <= TotalSeconds.
type State struct {
	Status           Status  `json:"status"`
	Speaker          Speaker `json:"speaker"`
	TotalSeconds     int     `json:"total_seconds"`
	RemainingSeconds int     `json:"remaining_seconds"`

	// Pending is set between submitting the start request and the remote confirmation.
	Pending bool `json:"pending"`
}

// Effects are the side effects a transition asks the controller to perform.
type Effects struct {
	ArmTimer    bool
	CancelTimer bool
	StopRemote  bool
}

type EndReason string

const (
	EndStopped     EndReason = "stopped"
	EndTimeout     EndReason = "timeout"
	EndRemoteEnded EndReason = "remote_ended"
	EndRemoteError EndReason = "remote_error"
)

func Idle() State {
	return State{Status: StatusIdle, Speaker: SpeakerNone}
}

// Begin is the state right after a start request was accepted.
func Begin(totalSeconds int) State {
	return State{
		Status:           StatusIdle,
		Speaker:          SpeakerNone,
		TotalSeconds:     totalSeconds,
		RemainingSeconds: totalSeconds,
		Pending:          true,
	}
}

func (s State) IsWarning() bool {
	return s.Status == StatusActive && s.RemainingSeconds > 0 && s.RemainingSeconds <= WarningSeconds
}

// Live reports whether a session is running or being established.
func (s State) Live() bool {
	return s.Status == StatusActive || s.Pending
}

func (s State) Caption() string {
	switch {
	case s.Pending:
		return "Connecting..."
	case s.Status == StatusActive && s.Speaker == SpeakerAssistant:
		return "AI is speaking..."
	case s.Status == StatusActive && s.Speaker == SpeakerCandidate:
		return "Listening to you..."
	case s.Status == StatusEnded:
		return "Interview ended"
	case s.Status == StatusIdle:
		return "Click the mic to start"
	default:
		return ""
	}
}

func ended(s State) State {
	return State{
		Status:           StatusEnded,
		Speaker:          SpeakerNone,
		TotalSeconds:     s.TotalSeconds,
		RemainingSeconds: 0,
	}
}

// Apply folds one remote event into the state.
func Apply(s State, ev assistant.Event) (State, Effects) {
	switch ev.Type {
	case assistant.EventSessionStarted:
		if s.Status == StatusActive {
			return s, Effects{}
		}
		if !s.Pending {
			// confirmation for a call nobody is waiting on any more
			return s, Effects{StopRemote: true}
		}
		s.Status = StatusActive
		s.Speaker = SpeakerAssistant
		s.Pending = false
		return s, Effects{ArmTimer: true}

	case assistant.EventAssistantSpeakingStarted:
		if s.Status != StatusActive {
			return s, Effects{}
		}
		s.Speaker = SpeakerAssistant
		return s, Effects{}

	case assistant.EventAssistantSpeakingEnded:
		if s.Status != StatusActive {
			return s, Effects{}
		}
		s.Speaker = SpeakerCandidate
		return s, Effects{}

	case assistant.EventSessionEnded, assistant.EventSessionError:
		if !s.Live() {
			return s, Effects{}
		}
		return ended(s), Effects{CancelTimer: true}
	}
	return s, Effects{}
}

// Tick advances the countdown by one second.
func Tick(s State) (State, Effects) {
	if s.Status != StatusActive {
		return s, Effects{}
	}
	if s.RemainingSeconds <= 1 {
		return ended(s), Effects{CancelTimer: true, StopRemote: true}
	}
	s.RemainingSeconds--
	return s, Effects{}
}

// Stop ends the session unconditionally. The remote side is only told to hang up
// while a session is running or being established.
func Stop(s State) (State, Effects) {
	return ended(s), Effects{CancelTimer: true, StopRemote: s.Live()}
}

func reasonFor(ev assistant.EventType) EndReason {
	if ev == assistant.EventSessionError {
		return EndRemoteError
	}
	return EndRemoteEnded
}
