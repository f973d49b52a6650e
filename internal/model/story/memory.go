package story

import "github.com/google/uuid"

// DefaultMemoryText seeds a freshly added memory until the user edits it.
const DefaultMemoryText = "New memory detail..."

// AddMemory appends a new active memory with placeholder text.
func (s *Story) AddMemory() Memory {
	m := Memory{ID: newID(), Text: DefaultMemoryText, Active: true}
	s.Memory = append(s.Memory, m)
	return m
}

// UpdateMemory replaces the text of the identified memory; id and active flag
// are untouched. Unknown ids are a no-op.
func (s *Story) UpdateMemory(id, text string) bool {
	for i := range s.Memory {
		if s.Memory[i].ID == id {
			s.Memory[i].Text = text
			return true
		}
	}
	return false
}

// SetMemoryActive toggles whether the memory is injected into generation
// requests. Unknown ids are a no-op.
func (s *Story) SetMemoryActive(id string, active bool) bool {
	for i := range s.Memory {
		if s.Memory[i].ID == id {
			s.Memory[i].Active = active
			return true
		}
	}
	return false
}

// RemoveMemory deletes the identified memory if present.
func (s *Story) RemoveMemory(id string) bool {
	for i := range s.Memory {
		if s.Memory[i].ID == id {
			s.Memory = append(s.Memory[:i], s.Memory[i+1:]...)
			return true
		}
	}
	return false
}

// ActiveMemories returns the active subset in insertion order. This exact
// subset, in this exact order, is what the prompt compiler injects.
func (s *Story) ActiveMemories() []Memory {
	out := make([]Memory, 0, len(s.Memory))
	for _, m := range s.Memory {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

func newID() string {
	return uuid.NewString()
}
