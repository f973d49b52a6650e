package story

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message in the ledger.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Setup captures the narrative premise. Edits replace the whole object,
// never a single field.
type Setup struct {
	Setting     string `json:"setting"`
	Vibe        string `json:"vibe"`
	Protagonist string `json:"protagonist"`
}

// Message is one turn of the story ledger. Choices is present only on model
// messages and is meaningful only on the most recently appended one.
type Message struct {
	ID      string   `json:"id"`
	Role    Role     `json:"role"`
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// Memory is a user-pinned fact injected into every generation request while
// active. Insertion order is injection order.
type Memory struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// Segment is the normalized shape of one generation response. It is never
// persisted as-is; the orchestrator folds it into a model Message.
type Segment struct {
	Content string   `json:"content"`
	Choices []string `json:"choices"`
}

// Story is the aggregate root. It exclusively owns its messages and memory.
type Story struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Setup       Setup     `json:"setup"`
	Messages    []Message `json:"messages"`
	Memory      []Memory  `json:"memory"`
	CreatedAt   int64     `json:"createdAt"`
	LastUpdated int64     `json:"lastUpdated"`
}

// New builds a provisional story with an empty ledger. The title is derived
// from the first words of the setting.
func New(setup Setup) *Story {
	now := time.Now().UnixMilli()
	return &Story{
		ID:          uuid.NewString(),
		Title:       deriveTitle(setup.Setting),
		Setup:       setup,
		Messages:    []Message{},
		Memory:      []Memory{},
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Touch refreshes the last-updated stamp. Call it on every mutation that is
// meant to persist.
func (s *Story) Touch() {
	s.LastUpdated = time.Now().UnixMilli()
}

// Clone returns a deep copy so callers can hand out story snapshots without
// sharing the underlying slices.
func (s *Story) Clone() Story {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m
		if m.Choices != nil {
			out.Messages[i].Choices = append([]string(nil), m.Choices...)
		}
	}
	out.Memory = append([]Memory(nil), s.Memory...)
	return out
}

func deriveTitle(setting string) string {
	words := strings.Fields(setting)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ") + "..."
}
