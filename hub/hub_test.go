package hub

import (
	"errors"
	"testing"

	"github.com/inputbridge/kmf"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	h := New(4)
	chA, _ := h.Subscribe("a")
	chB, _ := h.Subscribe("b")

	if err := h.Publish(ServerMessage{Kind: MsgAction, Action: kmf.MouseMove{DX: 1}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-chA:
		if msg.Kind != MsgAction {
			t.Errorf("a: got kind %v", msg.Kind)
		}
	default:
		t.Error("a: expected a message")
	}
	select {
	case msg := <-chB:
		if msg.Kind != MsgAction {
			t.Errorf("b: got kind %v", msg.Kind)
		}
	default:
		t.Error("b: expected a message")
	}
}

func TestPublishFileWithNoSubscribersIsNoClients(t *testing.T) {
	h := New(4)
	err := h.Publish(ServerMessage{Kind: MsgFile, FilePath: "x.txt"})
	if !errors.Is(err, kmf.ErrNoClients) {
		t.Fatalf("got %v, want ErrNoClients", err)
	}
}

func TestPublishActionWithNoSubscribersIsNotAnError(t *testing.T) {
	h := New(4)
	if err := h.Publish(ServerMessage{Kind: MsgAction}); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestPublishAfterQuitReturnsHubClosed(t *testing.T) {
	h := New(4)
	h.Subscribe("a")
	if err := h.Publish(ServerMessage{Kind: MsgQuit}); err != nil {
		t.Fatalf("Publish(Quit): %v", err)
	}
	if err := h.Publish(ServerMessage{Kind: MsgAction}); !errors.Is(err, kmf.ErrHubClosed) {
		t.Fatalf("got %v, want ErrHubClosed", err)
	}
}

// A slow subscriber whose channel fills up must be dropped without
// affecting delivery to any other subscriber — the fan-out isolation
// invariant.
func TestSlowSubscriberIsIsolatedFromOthers(t *testing.T) {
	h := New(1)
	slow, slowStop := h.Subscribe("slow")
	fast, _ := h.Subscribe("fast")

	// Fill the slow subscriber's one-deep buffer without draining it.
	if err := h.Publish(ServerMessage{Kind: MsgAction}); err != nil {
		t.Fatalf("Publish 1: %v", err)
	}
	<-fast // drain fast so its buffer has room for the next publish

	// This publish finds slow's channel full and must drop it, while
	// fast still receives the message.
	if err := h.Publish(ServerMessage{Kind: MsgAction}); err != nil {
		t.Fatalf("Publish 2: %v", err)
	}

	select {
	case _, ok := <-fast:
		if !ok {
			t.Error("fast: channel unexpectedly closed")
		}
	default:
		t.Error("fast: expected to receive the second message")
	}

	// The slow subscriber's channel should now be closed (dropped). Its
	// one buffered message from the first publish is still readable
	// before the close is observed, matching normal Go channel-close
	// semantics.
	<-slow // the buffered message from the first publish
	_, stillOpen := <-slow
	if stillOpen {
		t.Error("slow: expected channel closed after being dropped")
	}

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (only fast remains)", h.Len())
	}

	h.Stop("slow") // must be a safe no-op even though slow was already dropped
	_ = slowStop
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New(4)
	h.Subscribe("a")
	h.Unsubscribe("a")
	h.Unsubscribe("a") // must not panic or error
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestStopFiresNotifierExactlyOnce(t *testing.T) {
	h := New(4)
	_, stop := h.Subscribe("a")
	h.Stop("a")
	select {
	case <-stop:
	default:
		t.Fatal("expected stop channel to be closed")
	}
	h.Stop("a") // already removed; must be a no-op, not a double-close panic
}
