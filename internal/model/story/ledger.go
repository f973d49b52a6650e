package story

// Ledger operations. The message history is append-only by default; edits
// replace a single message's text in place and rewinds truncate the suffix
// irreversibly. Message ids stay stable across edits.

// AppendMessage adds a message to the end of the ledger.
func (s *Story) AppendMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// ReplaceMessages swaps the whole ledger. Used for both edit-in-place and
// rewind-truncate; callers pass the full new sequence.
func (s *Story) ReplaceMessages(msgs []Message) {
	s.Messages = msgs
}

// FindMessage returns the index of the message with the given id.
func (s *Story) FindMessage(id string) (int, bool) {
	for i, m := range s.Messages {
		if m.ID == id {
			return i, true
		}
	}
	return 0, false
}

// EditMessage replaces the text of the identified message, keeping its id and
// choices untouched. Unknown ids are a no-op.
func (s *Story) EditMessage(id, text string) bool {
	idx, ok := s.FindMessage(id)
	if !ok {
		return false
	}
	s.Messages[idx].Text = text
	return true
}

// NewUserMessage wraps free text as a user turn.
func NewUserMessage(text string) Message {
	return Message{ID: newID(), Role: RoleUser, Text: text}
}

// NewModelMessage folds a generation segment into a model turn.
func NewModelMessage(seg Segment) Message {
	return Message{ID: newID(), Role: RoleModel, Text: seg.Content, Choices: seg.Choices}
}
