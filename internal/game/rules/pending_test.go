package rules

import "testing"

func TestPendingQueueDecrementsAndRemoves(t *testing.T) {
	q := NewPendingQueue()

	var discarded []string
	id := q.Enqueue(PendingAction{
		PlayerID:    "Bob",
		Description: "discard 2 card(s) down to 3",
		Remaining:   2,
		Public:      true,
		Respond: func(card string) bool {
			discarded = append(discarded, card)
			return true
		},
	})
	if id == "" {
		t.Fatalf("expected an action id")
	}
	if q.Len() != 1 {
		t.Fatalf("expected one pending action, got %d", q.Len())
	}

	res, ok := q.Resolve("Bob", "estate", true)
	if !ok || !res.Accepted {
		t.Fatalf("expected first response to be accepted")
	}
	if res.Remaining != 1 || res.Done {
		t.Fatalf("expected one response left, got %+v", res)
	}

	res, ok = q.Resolve("Bob", "copper", true)
	if !ok || !res.Done || res.Remaining != 0 {
		t.Fatalf("expected second response to finish the action, got %+v", res)
	}
	if !q.Empty() {
		t.Fatalf("expected queue to be empty")
	}
	if len(discarded) != 2 || discarded[0] != "estate" || discarded[1] != "copper" {
		t.Fatalf("unexpected responses %v", discarded)
	}
}

func TestPendingQueueIgnoresOtherPlayersAndChannels(t *testing.T) {
	q := NewPendingQueue()
	q.Enqueue(PendingAction{PlayerID: "Bob", Remaining: 1, Public: true})

	if _, ok := q.Resolve("Alice", "estate", true); ok {
		t.Fatalf("Alice owes nothing")
	}
	if _, ok := q.Resolve("Bob", "estate", false); ok {
		t.Fatalf("a direct message cannot satisfy a public action")
	}
	if !q.Waiting("Bob", true) || q.Waiting("Bob", false) {
		t.Fatalf("unexpected waiting state")
	}
	if q.Len() != 1 {
		t.Fatalf("queue should be untouched")
	}
}

func TestPendingQueueRejectedResponseKeepsCount(t *testing.T) {
	q := NewPendingQueue()
	q.Enqueue(PendingAction{
		PlayerID:  "Bob",
		Remaining: 1,
		Public:    true,
		Respond:   func(card string) bool { return card == "estate" },
	})

	res, ok := q.Resolve("Bob", "gold", true)
	if !ok {
		t.Fatalf("expected a match")
	}
	if res.Accepted || res.Remaining != 1 {
		t.Fatalf("expected rejected response, got %+v", res)
	}
	if q.Len() != 1 {
		t.Fatalf("expected action to remain")
	}
}

func TestPendingQueueAccumulatesPerPlayer(t *testing.T) {
	q := NewPendingQueue()
	first := q.Enqueue(PendingAction{PlayerID: "Bob", Remaining: 1, Public: true, Description: "first"})
	second := q.Enqueue(PendingAction{PlayerID: "Bob", Remaining: 2, Public: true, Description: "second"})
	q.Enqueue(PendingAction{PlayerID: "Carol", Remaining: 1, Public: false})
	q.Enqueue(PendingAction{PlayerID: "Dave", Remaining: 0})

	if q.Len() != 3 {
		t.Fatalf("expected zero-count action to be ignored, got %d", q.Len())
	}
	if len(q.ForPlayer("Bob")) != 2 {
		t.Fatalf("expected two actions for Bob")
	}

	res, _ := q.Resolve("Bob", "copper", true)
	if res.ActionID != first || !res.Done {
		t.Fatalf("expected the oldest action to resolve first, got %+v", res)
	}
	res, _ = q.Resolve("Bob", "copper", true)
	if res.ActionID != second || res.Remaining != 1 {
		t.Fatalf("expected second action to be decremented, got %+v", res)
	}

	list := q.List()
	if len(list) != 2 || list[0].ID != second || list[1].PlayerID != "Carol" {
		t.Fatalf("unexpected queue order %+v", list)
	}
}
