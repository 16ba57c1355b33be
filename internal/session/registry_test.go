package session_test

import (
	"testing"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
)

type fakeHandler struct{ frames [][]byte }

func (f *fakeHandler) Push(frame []byte) { f.frames = append(f.frames, frame) }

func TestAddAndBind(t *testing.T) {
	reg := session.NewRegistry()
	h := &fakeHandler{}

	s := reg.Add(h)
	if s.Username != "" || s.ChatName != "" || s.PrevChatName != "" {
		t.Errorf("fresh session must be empty, got %+v", s)
	}
	if s.Handler != session.Handler(h) {
		t.Error("session not bound to its handler")
	}

	bound := reg.Bind(h, "alice")
	if bound != s {
		t.Error("Bind returned a different session")
	}
	if s.Username != "alice" {
		t.Errorf("username = %q after bind, want alice", s.Username)
	}
	if reg.Len() != 1 {
		t.Errorf("Bind must mutate in place, registry has %d sessions", reg.Len())
	}
}

func TestFindAndByHandler(t *testing.T) {
	reg := session.NewRegistry()
	h1, h2 := &fakeHandler{}, &fakeHandler{}
	s1 := reg.Add(h1)
	reg.Add(h2)
	reg.Bind(h1, "alice")

	if got := reg.Find("alice"); got != s1 {
		t.Error("Find(alice) did not return alice's session")
	}
	if got := reg.Find("bob"); got != nil {
		t.Errorf("Find(bob) = %+v, want nil", got)
	}
	if got := reg.Find(""); got != nil {
		t.Error("Find(\"\") must not match anonymous sessions")
	}
	if got := reg.ByHandler(h2); got == nil || got.Username != "" {
		t.Error("ByHandler(h2) should return the anonymous session")
	}
}

// TestFindAll covers a username bound on several connections at once.
func TestFindAll(t *testing.T) {
	reg := session.NewRegistry()
	h1, h2, h3 := &fakeHandler{}, &fakeHandler{}, &fakeHandler{}
	s1 := reg.Add(h1)
	reg.Add(h2)
	s3 := reg.Add(h3)
	reg.Bind(h1, "bob")
	reg.Bind(h2, "alice")
	reg.Bind(h3, "bob")

	all := reg.FindAll("bob")
	if len(all) != 2 || all[0] != s1 || all[1] != s3 {
		t.Errorf("FindAll(bob) = %v, want both of bob's sessions in order", all)
	}
	if got := reg.FindAll(""); got != nil {
		t.Error("FindAll(\"\") must not match anonymous sessions")
	}
}

// TestRegistrationOrder pins the iteration order the router depends on.
func TestRegistrationOrder(t *testing.T) {
	reg := session.NewRegistry()
	handlers := []*fakeHandler{{}, {}, {}}
	for _, h := range handlers {
		reg.Add(h)
	}

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d sessions, want 3", len(all))
	}
	for i, s := range all {
		if s.Handler != session.Handler(handlers[i]) {
			t.Errorf("session %d out of registration order", i)
		}
	}
}

func TestRemove(t *testing.T) {
	reg := session.NewRegistry()
	h1, h2 := &fakeHandler{}, &fakeHandler{}
	reg.Add(h1)
	reg.Add(h2)
	reg.Bind(h1, "alice")

	removed := reg.Remove(h1)
	if removed == nil || removed.Username != "alice" {
		t.Fatalf("Remove returned %+v, want alice's session", removed)
	}
	if reg.Len() != 1 {
		t.Errorf("registry has %d sessions after remove, want 1", reg.Len())
	}
	if reg.Find("alice") != nil {
		t.Error("removed session still findable")
	}
	if reg.Remove(h1) != nil {
		t.Error("second Remove of the same handler should return nil")
	}
}

func TestEnterAndLeaveRoom(t *testing.T) {
	s := &session.Session{Username: "alice"}

	s.EnterRoom("general")
	if s.ChatName != "general" || s.PrevChatName != "" {
		t.Errorf("after enter: %+v", s)
	}

	s.EnterRoom("random")
	if s.ChatName != "random" || s.PrevChatName != "general" {
		t.Errorf("after switching rooms: %+v", s)
	}

	s.LeaveRoom()
	if s.ChatName != "" || s.PrevChatName != "random" {
		t.Errorf("after leave: %+v", s)
	}
}
