package story

import "testing"

func sampleStory() *Story {
	s := New(Setup{Setting: "a ship", Vibe: "tense", Protagonist: "a stowaway"})
	s.AppendMessage(NewUserMessage("I open the door"))
	s.AppendMessage(NewModelMessage(Segment{
		Content: "A draft hits your face",
		Choices: []string{"Step through", "Close it", "Listen"},
	}))
	return s
}

func TestEditMessageKeepsLengthAndIdentity(t *testing.T) {
	s := sampleStory()
	target := s.Messages[0]

	if !s.EditMessage(target.ID, "I kick the door open") {
		t.Fatal("expected edit to succeed")
	}

	if len(s.Messages) != 2 {
		t.Fatalf("ledger length changed: got %d want 2", len(s.Messages))
	}
	if s.Messages[0].ID != target.ID {
		t.Fatalf("message id changed: got %s want %s", s.Messages[0].ID, target.ID)
	}
	if s.Messages[0].Text != "I kick the door open" {
		t.Fatalf("unexpected text: %q", s.Messages[0].Text)
	}
	if s.Messages[1].Text != "A draft hits your face" {
		t.Fatalf("untargeted message mutated: %q", s.Messages[1].Text)
	}
}

func TestEditMessageUnknownIDIsNoop(t *testing.T) {
	s := sampleStory()
	before := append([]Message(nil), s.Messages...)

	if s.EditMessage("missing", "whatever") {
		t.Fatal("expected edit of unknown id to report false")
	}

	if len(s.Messages) != len(before) {
		t.Fatalf("ledger length changed: got %d want %d", len(s.Messages), len(before))
	}
	for i := range before {
		if s.Messages[i].ID != before[i].ID || s.Messages[i].Text != before[i].Text {
			t.Fatalf("ledger mutated at index %d", i)
		}
	}
}

func TestFindMessage(t *testing.T) {
	s := sampleStory()

	idx, ok := s.FindMessage(s.Messages[1].ID)
	if !ok || idx != 1 {
		t.Fatalf("FindMessage = (%d, %v), want (1, true)", idx, ok)
	}

	if _, ok := s.FindMessage("missing"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestReplaceMessagesTruncates(t *testing.T) {
	s := sampleStory()
	prefix := append([]Message(nil), s.Messages[:1]...)

	s.ReplaceMessages(prefix)

	if len(s.Messages) != 1 {
		t.Fatalf("expected 1 message after truncation, got %d", len(s.Messages))
	}
	if s.Messages[0].Role != RoleUser {
		t.Fatalf("unexpected surviving role: %s", s.Messages[0].Role)
	}
}
