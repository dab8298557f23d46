package domain

import (
	"encoding/json"
	"fmt"
)

// Action kind names as they travel on the wire (REST bodies, WS frames).
const (
	KindStartGame       = "start-game"
	KindPauseGame       = "pause-game"
	KindResumeGame      = "resume-game"
	KindEndGame         = "end-game"
	KindStartRound      = "start-round"
	KindEndRound        = "end-round"
	KindPresentQuestion = "present-question"
	KindAdvanceQuestion = "advance-question"
	KindSkipQuestion    = "skip-question"
	KindSubmitAnswer    = "submit-answer"
	KindLockAnswers     = "lock-answers"
	KindRevealAnswers   = "reveal-answers"
	KindAddPlayer       = "add-player"
	KindRemovePlayer    = "remove-player"
	KindFormTeam        = "form-team"
)

// DecodeAction builds the action variant named by kind from its JSON body.
// Unknown kinds fail with ErrUnknownAction so transports can reject them
// before dispatch.
func DecodeAction(kind string, data []byte) (Action, error) {
	switch kind {
	case KindStartGame:
		var a StartGame
		return a, json.Unmarshal(data, &a)
	case KindPauseGame:
		var a PauseGame
		return a, json.Unmarshal(data, &a)
	case KindResumeGame:
		var a ResumeGame
		return a, json.Unmarshal(data, &a)
	case KindEndGame:
		var a EndGame
		return a, json.Unmarshal(data, &a)
	case KindStartRound:
		var a StartRound
		return a, json.Unmarshal(data, &a)
	case KindEndRound:
		var a EndRound
		return a, json.Unmarshal(data, &a)
	case KindPresentQuestion:
		var a PresentQuestion
		return a, json.Unmarshal(data, &a)
	case KindAdvanceQuestion:
		var a AdvanceQuestion
		return a, json.Unmarshal(data, &a)
	case KindSkipQuestion:
		var a SkipQuestion
		return a, json.Unmarshal(data, &a)
	case KindSubmitAnswer:
		var a SubmitAnswer
		return a, json.Unmarshal(data, &a)
	case KindLockAnswers:
		var a LockAnswers
		return a, json.Unmarshal(data, &a)
	case KindRevealAnswers:
		var a RevealAnswers
		return a, json.Unmarshal(data, &a)
	case KindAddPlayer:
		var a AddPlayer
		return a, json.Unmarshal(data, &a)
	case KindRemovePlayer:
		var a RemovePlayer
		return a, json.Unmarshal(data, &a)
	case KindFormTeam:
		var a FormTeam
		return a, json.Unmarshal(data, &a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

// WithBase returns a copy of the action with its routing fields replaced.
// Transports use it to stamp the addressed game id and a server-side
// timestamp onto decoded wire actions.
func WithBase(action Action, base ActionBase) Action {
	switch a := action.(type) {
	case StartGame:
		a.ActionBase = base
		return a
	case PauseGame:
		a.ActionBase = base
		return a
	case ResumeGame:
		a.ActionBase = base
		return a
	case EndGame:
		a.ActionBase = base
		return a
	case StartRound:
		a.ActionBase = base
		return a
	case EndRound:
		a.ActionBase = base
		return a
	case PresentQuestion:
		a.ActionBase = base
		return a
	case AdvanceQuestion:
		a.ActionBase = base
		return a
	case SkipQuestion:
		a.ActionBase = base
		return a
	case SubmitAnswer:
		a.ActionBase = base
		return a
	case LockAnswers:
		a.ActionBase = base
		return a
	case RevealAnswers:
		a.ActionBase = base
		return a
	case AddPlayer:
		a.ActionBase = base
		return a
	case RemovePlayer:
		a.ActionBase = base
		return a
	case FormTeam:
		a.ActionBase = base
		return a
	default:
		return action
	}
}
