// Package intake implements the slot-filling dialogue engine: turn by turn
// it merges extracted fields into session state, manages the active intent,
// computes what is still missing, and decides when to place the call.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lc46377/AutoCallerBot/internal/session"
)

// ErrDispatchFailed marks failures talking to the telephony provider. These
// are surfaced to the caller; the session stays ready so the turn can be
// retried.
var ErrDispatchFailed = errors.New("call dispatch failed")

// ErrMissingIdentifier is returned when neither a session id nor a call id
// was supplied to EndCall.
var ErrMissingIdentifier = errors.New("session_id or call_id required")

// Extractor is the field-extraction oracle. It never fails from the
// engine's point of view: internal errors degrade to an empty or heuristic
// map inside the implementation.
type Extractor interface {
	Extract(ctx context.Context, text string) map[string]any
}

// Dialer places and terminates outbound calls.
type Dialer interface {
	PlaceCall(ctx context.Context, toNumber string, vars map[string]any) (string, error)
	EndCall(ctx context.Context, callID string) error
}

// Options carries the engine's defaults. DefaultTargetNumber guarantees
// target resolution never fails.
type Options struct {
	UserName            string
	DefaultUserPhone    string
	DefaultTargetNumber string
	Vendors             map[string]string
}

// Engine drives the intake conversation. Concurrent requests on the same
// session id serialize on a per-session mutex; sessions never share state.
type Engine struct {
	store     session.Store
	extractor Extractor
	dialer    Dialer
	opts      Options

	locks sync.Map // session id -> *sync.Mutex
}

func NewEngine(store session.Store, extractor Extractor, dialer Dialer, opts Options) *Engine {
	return &Engine{store: store, extractor: extractor, dialer: dialer, opts: opts}
}

// StartInput begins a session with optional structured prefills and an
// optional first utterance.
type StartInput struct {
	Utterance string
	Prefill   map[string]any
}

// TurnResult is the outcome of a start or reply turn: either a consolidated
// question with the fields it asks for, or a placed call.
type TurnResult struct {
	SessionID  string
	Done       bool
	NextFields []string
	Question   string
	Message    string
	CallID     string
}

func (e *Engine) lock(id string) func() {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start creates a session, runs the prefill and first extraction passes,
// and either dials immediately or returns the first consolidated question.
// Prefills use fill-only merge; the extraction pass overwrites.
func (e *Engine) Start(ctx context.Context, in StartInput) (*TurnResult, error) {
	sess := session.New(uuid.NewString())
	d := Fields(sess.Fields)

	Merge(d, in.Prefill, false)
	if in.Utterance != "" {
		Merge(d, e.extractor.Extract(ctx, in.Utterance), true)
	}
	ApplyLegacyGoal(d)
	if !d.Has("user_phone") && e.opts.DefaultUserPhone != "" {
		d["user_phone"] = e.opts.DefaultUserPhone
	}

	missing := MissingFields(d, CurrentIntent(d))
	if len(missing) == 0 {
		callID, err := e.dial(ctx, sess)
		if err != nil {
			// Keep the ready session so the client can retry the dial.
			if cerr := e.store.Create(ctx, sess); cerr != nil {
				return nil, cerr
			}
			return &TurnResult{SessionID: sess.ID}, err
		}
		if err := e.store.Create(ctx, sess); err != nil {
			return nil, err
		}
		return &TurnResult{
			SessionID:  sess.ID,
			Done:       true,
			NextFields: []string{},
			Question:   "Calling the company now.",
			CallID:     callID,
		}, nil
	}

	for _, f := range missing {
		sess.AskCounts[f]++
	}
	if err := e.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID:  sess.ID,
		NextFields: missing,
		Question:   ComposeQuestion(missing, d),
	}, nil
}

// Reply consumes one user answer: extract, merge with overwrite, apply the
// intent freeze and prune rules, then either ask again or dial.
func (e *Engine) Reply(ctx context.Context, sessionID, answer string) (*TurnResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	d := Fields(sess.Fields)

	extracted := e.extractor.Extract(ctx, answer)
	zap.L().Debug("extracted fields from answer",
		zap.String("session_id", sessionID),
		zap.Any("fields", extracted))

	prev := CurrentIntent(d)
	Merge(d, extracted, true)

	// A held specific intent never downgrades to the catch-all.
	if prev.Specific() && CurrentIntent(d) == IntentGenericQuery {
		d["intent"] = string(prev)
	}
	// A genuine mid-flow switch drops fields the new intent does not know.
	if cur := CurrentIntent(d); cur != "" && prev != "" && cur != prev {
		PruneForIntent(d, cur)
	}
	ApplyLegacyGoal(d)

	missingAll := MissingFields(d, CurrentIntent(d))
	missing := make([]string, 0, len(missingAll))
	for _, f := range missingAll {
		if !Suppressed(f, sess.AskCounts) {
			missing = append(missing, f)
		}
	}

	if len(missing) > 0 {
		for _, f := range missing {
			sess.AskCounts[f]++
		}
		if err := e.store.Put(ctx, sess); err != nil {
			return nil, err
		}
		return &TurnResult{
			SessionID:  sessionID,
			NextFields: missing,
			Question:   ComposeQuestion(missing, d),
		}, nil
	}

	// Persist the merged, unpruned state first: a failed dispatch must leave
	// the session ready so a retry rebuilds identical call variables.
	if err := e.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	callID, err := e.dial(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return &TurnResult{
		SessionID: sessionID,
		Done:      true,
		Message:   "Calling the company now.",
		CallID:    callID,
	}, nil
}

// dial resolves the target number, builds call variables from the full
// field set, places the call, and on success replaces the session fields
// with the pruned essential subset.
func (e *Engine) dial(ctx context.Context, sess *session.Session) (string, error) {
	d := Fields(sess.Fields)

	to := ResolveTargetNumber(d, e.opts.Vendors, e.opts.DefaultTargetNumber)
	if !d.Has("target_number") {
		d["target_number"] = to
	}

	vars := BuildCallVars(d, e.opts.UserName, e.opts.DefaultUserPhone)
	// Round-tripped through call metadata so the completion webhook can find
	// its way back to this session.
	vars["session_id"] = sess.ID

	callID, err := e.dialer.PlaceCall(ctx, to, vars)
	if err != nil {
		zap.L().Error("failed to place outbound call",
			zap.String("session_id", sess.ID),
			zap.String("to", to),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	sess.Fields = EssentialFields(d)
	sess.CallID = callID
	zap.L().Info("outbound call placed",
		zap.String("session_id", sess.ID),
		zap.String("call_id", callID),
		zap.String("to", to))
	return callID, nil
}

// Reset clears fields, ask counters, the active call id, and the outbox.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	unlock := e.lock(sessionID)
	defer unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.Reset()
	return e.store.Put(ctx, sess)
}

// EndCall terminates an active call. At least one identifier is required;
// a session id alone resolves through the session's active call. On success
// the session's call reference is cleared.
func (e *Engine) EndCall(ctx context.Context, sessionID, callID string) (string, error) {
	if sessionID == "" && callID == "" {
		return "", ErrMissingIdentifier
	}
	if callID == "" {
		sess, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if sess.CallID == "" {
			return "", fmt.Errorf("%w: session has no active call", session.ErrNotFound)
		}
		callID = sess.CallID
	}

	if err := e.dialer.EndCall(ctx, callID); err != nil {
		return callID, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	if sessionID != "" {
		unlock := e.lock(sessionID)
		defer unlock()
		if sess, err := e.store.Get(ctx, sessionID); err == nil && sess.CallID == callID {
			sess.CallID = ""
			if err := e.store.Put(ctx, sess); err != nil {
				zap.L().Warn("failed to clear call id after hangup",
					zap.String("session_id", sessionID), zap.Error(err))
			}
		}
	}
	return callID, nil
}

// PollEvents drains and returns the session's outbox. The drain is atomic:
// a poll never observes a partial drain, and events appended afterwards are
// kept for the next poll.
func (e *Engine) PollEvents(ctx context.Context, sessionID string) ([]session.Event, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events := sess.Outbox
	if len(events) == 0 {
		return []session.Event{}, nil
	}
	sess.Outbox = nil
	if err := e.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return events, nil
}

// HandleCallEnded processes a call-completion notification. The session is
// matched by the round-tripped session id or by the active call id; on a
// match a summary event and a status event land in the outbox and the call
// reference clears. No match is a no-op and reports false.
func (e *Engine) HandleCallEnded(ctx context.Context, sessionID, callID string, summary map[string]any) bool {
	sess, err := e.resolveSession(ctx, sessionID, callID)
	if err != nil {
		return false
	}

	unlock := e.lock(sess.ID)
	defer unlock()
	sess, err = e.store.Get(ctx, sess.ID)
	if err != nil {
		return false
	}

	now := time.Now().UTC()
	if summary != nil {
		sess.Outbox = append(sess.Outbox, session.Event{
			Type:      "call-summary",
			Payload:   summary,
			CreatedAt: now,
		})
	}
	status := map[string]any{"status": "ended"}
	if callID != "" {
		status["call_id"] = callID
	} else if sess.CallID != "" {
		status["call_id"] = sess.CallID
	}
	sess.Outbox = append(sess.Outbox, session.Event{
		Type:      "call-status",
		Payload:   status,
		CreatedAt: now,
	})
	sess.CallID = ""

	if err := e.store.Put(ctx, sess); err != nil {
		zap.L().Error("failed to record call completion",
			zap.String("session_id", sess.ID), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) resolveSession(ctx context.Context, sessionID, callID string) (*session.Session, error) {
	if sessionID != "" {
		if s, err := e.store.Get(ctx, sessionID); err == nil {
			return s, nil
		}
	}
	return e.store.FindByCallID(ctx, callID)
}
