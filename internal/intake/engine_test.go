package intake

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lc46377/AutoCallerBot/internal/session"
)

// scriptedExtractor returns one canned map per call, then empty maps.
type scriptedExtractor struct {
	results []map[string]any
	calls   int
}

func (s *scriptedExtractor) Extract(ctx context.Context, text string) map[string]any {
	defer func() { s.calls++ }()
	if s.calls < len(s.results) {
		return s.results[s.calls]
	}
	return map[string]any{}
}

type fakeDialer struct {
	placed   int
	lastTo   string
	lastVars map[string]any
	callID   string
	placeErr error

	ended  []string
	endErr error
}

func (f *fakeDialer) PlaceCall(ctx context.Context, to string, vars map[string]any) (string, error) {
	f.placed++
	f.lastTo = to
	f.lastVars = vars
	if f.placeErr != nil {
		return "", f.placeErr
	}
	if f.callID == "" {
		return "call-1", nil
	}
	return f.callID, nil
}

func (f *fakeDialer) EndCall(ctx context.Context, callID string) error {
	f.ended = append(f.ended, callID)
	return f.endErr
}

func testOptions() Options {
	return Options{
		UserName:            "Sam",
		DefaultUserPhone:    "+16674190027",
		DefaultTargetNumber: "+16674190027",
		Vendors:             map[string]string{"walmart": "+16675550100"},
	}
}

func TestStartImmediateDial(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{{
		"intent":           string(IntentRetailReturn),
		"vendor_name":      "Walmart",
		"order_id":         "112-556",
		"date_of_purchase": "2025-08-12",
		"bill_amount":      249.0,
		"item":             "AirPods",
		"reason":           "left earbud dead",
		"user_phone":       "+14155550134",
	}}}
	dl := &fakeDialer{}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	res, err := eng.Start(context.Background(), StartInput{Utterance: "return my AirPods to Walmart"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !res.Done || res.CallID != "call-1" {
		t.Errorf("expected an immediate dial: %+v", res)
	}
	if len(res.NextFields) != 0 {
		t.Errorf("nothing should be missing: %v", res.NextFields)
	}
	if dl.placed != 1 || dl.lastTo != "+16675550100" {
		t.Errorf("dial target wrong: placed=%d to=%s", dl.placed, dl.lastTo)
	}
	if dl.lastVars["order_id"] != "112-556" || dl.lastVars["session_id"] != res.SessionID {
		t.Errorf("call vars incomplete: %v", dl.lastVars)
	}

	// The stored session keeps only the post-dial essentials.
	sess, err := store.Get(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.CallID != "call-1" {
		t.Errorf("call id not recorded: %v", sess.CallID)
	}
	if _, ok := sess.Fields["order_id"]; ok {
		t.Error("transient field kept after dial")
	}
	if sess.Fields["vendor_name"] != "Walmart" {
		t.Errorf("essential field lost: %v", sess.Fields)
	}
}

func TestStartAsksForMissingFields(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{{
		"intent":     string(IntentHotelBooking),
		"hotel_name": "Hilton Midtown",
		"city":       "New York",
		"stay_start": "2025-10-03",
		"stay_end":   "2025-10-06",
		"nights":     3,
	}}}
	dl := &fakeDialer{}
	opts := testOptions()
	opts.DefaultUserPhone = ""
	eng := NewEngine(session.NewMemoryStore(), ex, dl, opts)

	res, err := eng.Start(context.Background(), StartInput{Utterance: "book me the Hilton in New York"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []string{"ask_price", "ask_discounts", "user_phone"}
	if !reflect.DeepEqual(res.NextFields, want) {
		t.Errorf("next fields: got %v want %v", res.NextFields, want)
	}
	if res.Question == "" || res.Done {
		t.Errorf("expected a consolidated question: %+v", res)
	}
	if dl.placed != 0 {
		t.Error("dialed with fields still missing")
	}
}

func TestStartPrefillIsFillOnly(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{{
		"intent":      string(IntentGenericQuery),
		"vendor_name": "Target",
	}}}
	dl := &fakeDialer{}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	res, err := eng.Start(context.Background(), StartInput{
		Utterance: "ask Target something",
		Prefill:   map[string]any{"question": "do you price match"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Prefill filled question, extraction supplied the rest, default phone
	// closed the gap, so the call goes out straight away.
	if !res.Done {
		t.Fatalf("expected immediate dial: %+v", res)
	}
	if dl.lastVars["question"] != "do you price match" {
		t.Errorf("prefilled question missing from call vars: %v", dl.lastVars)
	}
	if dl.lastVars["user_phone"] != "+16674190027" {
		t.Errorf("default user phone not applied: %v", dl.lastVars["user_phone"])
	}
}

func TestReplyFillsAndDials(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{
			"intent":      string(IntentRetailReturn),
			"vendor_name": "Walmart",
			"item":        "AirPods",
			"user_phone":  "+14155550134",
		},
		{
			"order_id":         "112-556",
			"date_of_purchase": "2025-08-12",
			"bill_amount":      249.0,
			"reason":           "left earbud dead",
		},
	}}
	dl := &fakeDialer{}
	eng := NewEngine(session.NewMemoryStore(), ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "return my AirPods"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if start.Done {
		t.Fatalf("start should have asked first: %+v", start)
	}

	res, err := eng.Reply(context.Background(), start.SessionID, "order 112-556 from Aug 12, $249, dead earbud")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !res.Done || res.CallID == "" {
		t.Errorf("expected the reply to dial: %+v", res)
	}
	if dl.lastVars["reason"] != "left earbud dead" {
		t.Errorf("merged field missing from call vars: %v", dl.lastVars)
	}
}

func TestReplyIntentNeverDowngrades(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{"intent": string(IntentRetailReturn), "vendor_name": "Walmart"},
		{"intent": string(IntentGenericQuery), "order_id": "112-556"},
	}}
	dl := &fakeDialer{}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "return something"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Reply(context.Background(), start.SessionID, "order 112-556"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	sess, _ := store.Get(context.Background(), start.SessionID)
	if sess.Fields["intent"] != string(IntentRetailReturn) {
		t.Errorf("specific intent downgraded to catch-all: %v", sess.Fields["intent"])
	}
	if sess.Fields["order_id"] != "112-556" {
		t.Errorf("field from downgrading turn lost: %v", sess.Fields)
	}
}

func TestReplyIntentSwitchPrunes(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{
			"intent":      string(IntentRetailReturn),
			"vendor_name": "Walmart",
			"order_id":    "112-556",
			"item":        "AirPods",
		},
		{
			"intent":       string(IntentServiceBooking),
			"vendor_name":  "Supercuts",
			"service_type": "haircut",
		},
	}}
	dl := &fakeDialer{}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "return my AirPods"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := eng.Reply(context.Background(), start.SessionID, "actually book me a haircut at Supercuts")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	sess, _ := store.Get(context.Background(), start.SessionID)
	if _, ok := sess.Fields["order_id"]; ok {
		t.Error("retail field survived switch to service_booking")
	}
	if sess.Fields["intent"] != string(IntentServiceBooking) {
		t.Errorf("intent not switched: %v", sess.Fields["intent"])
	}
	for _, f := range res.NextFields {
		if f == "order_id" || f == "item" {
			t.Errorf("asked for a field the new intent does not use: %v", res.NextFields)
		}
	}
}

func TestReplySuppressionAfterCap(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{"intent": string(IntentGenericQuery), "vendor_name": "Walmart"},
	}}
	dl := &fakeDialer{}
	eng := NewEngine(session.NewMemoryStore(), ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "call Walmart for me"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reflect.DeepEqual(start.NextFields, []string{"question"}) {
		t.Fatalf("start should ask for the question: %v", start.NextFields)
	}

	// First unhelpful reply: still under the cap, asked again.
	res, err := eng.Reply(context.Background(), start.SessionID, "hmm")
	if err != nil {
		t.Fatalf("Reply 1: %v", err)
	}
	if res.Done || !reflect.DeepEqual(res.NextFields, []string{"question"}) {
		t.Fatalf("second ask expected: %+v", res)
	}

	// Second unhelpful reply: cap reached, the field drops out and the call
	// proceeds without it.
	res, err = eng.Reply(context.Background(), start.SessionID, "hmm again")
	if err != nil {
		t.Fatalf("Reply 2: %v", err)
	}
	if !res.Done {
		t.Fatalf("suppressed field should not block the dial: %+v", res)
	}
	if dl.lastVars["question"] != nil {
		t.Errorf("unanswered field should ride as nil: %v", dl.lastVars["question"])
	}
}

func TestReplyDispatchFailureIsRetryable(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{
			"intent":      string(IntentGenericQuery),
			"vendor_name": "Walmart",
		},
		{"question": "store hours"},
		{},
	}}
	dl := &fakeDialer{placeErr: errors.New("provider down")}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "call Walmart"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = eng.Reply(context.Background(), start.SessionID, "ask about store hours")
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected dispatch failure, got %v", err)
	}

	// Session state survived the failure, so the same turn can be retried
	// and rebuilds the same call variables.
	dl.placeErr = nil
	res, err := eng.Reply(context.Background(), start.SessionID, "try again")
	if err != nil {
		t.Fatalf("retry Reply: %v", err)
	}
	if !res.Done {
		t.Fatalf("retry should dial: %+v", res)
	}
	if dl.lastVars["question"] != "store hours" {
		t.Errorf("retry lost merged fields: %v", dl.lastVars)
	}
}

func TestReplyUnknownSession(t *testing.T) {
	eng := NewEngine(session.NewMemoryStore(), &scriptedExtractor{}, &fakeDialer{}, testOptions())
	_, err := eng.Reply(context.Background(), "nope", "hello")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReset(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{
		{"intent": string(IntentGenericQuery), "vendor_name": "Walmart"},
	}}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, &fakeDialer{}, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "call Walmart"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Reset(context.Background(), start.SessionID); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	sess, _ := store.Get(context.Background(), start.SessionID)
	if len(sess.Fields) != 0 || len(sess.AskCounts) != 0 || sess.CallID != "" || len(sess.Outbox) != 0 {
		t.Errorf("reset left state behind: %+v", sess)
	}
}

func TestEndCall(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{{
		"intent":      string(IntentGenericQuery),
		"vendor_name": "Walmart",
		"question":    "store hours",
		"user_phone":  "+14155550134",
	}}}
	dl := &fakeDialer{callID: "call-42"}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "call Walmart"})
	if err != nil || !start.Done {
		t.Fatalf("Start: %v %+v", err, start)
	}

	callID, err := eng.EndCall(context.Background(), start.SessionID, "")
	if err != nil {
		t.Fatalf("EndCall: %v", err)
	}
	if callID != "call-42" || !reflect.DeepEqual(dl.ended, []string{"call-42"}) {
		t.Errorf("wrong call terminated: %v %v", callID, dl.ended)
	}
	sess, _ := store.Get(context.Background(), start.SessionID)
	if sess.CallID != "" {
		t.Error("call reference not cleared after hangup")
	}

	// A second attempt by session id has nothing left to end.
	if _, err := eng.EndCall(context.Background(), start.SessionID, ""); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a session with no active call, got %v", err)
	}
}

func TestEndCallRequiresIdentifier(t *testing.T) {
	eng := NewEngine(session.NewMemoryStore(), &scriptedExtractor{}, &fakeDialer{}, testOptions())
	if _, err := eng.EndCall(context.Background(), "", ""); !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestEndCallDialerFailure(t *testing.T) {
	dl := &fakeDialer{endErr: errors.New("hangup refused")}
	eng := NewEngine(session.NewMemoryStore(), &scriptedExtractor{}, dl, testOptions())
	if _, err := eng.EndCall(context.Background(), "", "call-9"); !errors.Is(err, ErrDispatchFailed) {
		t.Errorf("expected ErrDispatchFailed, got %v", err)
	}
}

func TestHandleCallEndedAndPoll(t *testing.T) {
	ex := &scriptedExtractor{results: []map[string]any{{
		"intent":      string(IntentGenericQuery),
		"vendor_name": "Walmart",
		"question":    "store hours",
		"user_phone":  "+14155550134",
	}}}
	dl := &fakeDialer{callID: "call-77"}
	store := session.NewMemoryStore()
	eng := NewEngine(store, ex, dl, testOptions())

	start, err := eng.Start(context.Background(), StartInput{Utterance: "call Walmart"})
	if err != nil || !start.Done {
		t.Fatalf("Start: %v %+v", err, start)
	}

	// Correlation by call id alone, the way a webhook without session
	// metadata arrives.
	ok := eng.HandleCallEnded(context.Background(), "", "call-77", map[string]any{"summary": "they open at 9"})
	if !ok {
		t.Fatal("call completion did not match the session")
	}

	events, err := eng.PollEvents(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected summary and status events, got %d", len(events))
	}
	if events[0].Type != "call-summary" || events[1].Type != "call-status" {
		t.Errorf("event types: %v %v", events[0].Type, events[1].Type)
	}
	if events[0].Payload["summary"] != "they open at 9" {
		t.Errorf("summary payload: %v", events[0].Payload)
	}

	// The drain is destructive.
	events, err = eng.PollEvents(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("second PollEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("second poll should be empty, got %v", events)
	}

	sess, _ := store.Get(context.Background(), start.SessionID)
	if sess.CallID != "" {
		t.Error("call reference not cleared after completion")
	}
}

func TestHandleCallEndedUnknownIsNoop(t *testing.T) {
	eng := NewEngine(session.NewMemoryStore(), &scriptedExtractor{}, &fakeDialer{}, testOptions())
	if eng.HandleCallEnded(context.Background(), "ghost", "call-0", nil) {
		t.Error("unmatched completion should report false")
	}
}
