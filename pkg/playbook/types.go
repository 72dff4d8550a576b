package playbook

import (
	"fmt"
	"time"
)

// Counter names a bullet tracks. Tag operations accept exactly these.
const (
	TagHelpful = "helpful"
	TagHarmful = "harmful"
	TagNeutral = "neutral"
)

// Bullet is a single piece of retained advice plus usage counters.
type Bullet struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"`
	Content   string    `json:"content"`
	Helpful   int       `json:"helpful"`
	Harmful   int       `json:"harmful"`
	Neutral   int       `json:"neutral"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// String formats the bullet the way Render projects it.
func (b *Bullet) String() string {
	return fmt.Sprintf("[%s] helpful=%d harmful=%d neutral=%d :: %s",
		b.ID, b.Helpful, b.Harmful, b.Neutral, b.Content)
}

// counter returns a pointer to the named counter field, or nil for
// anything outside the known set.
func (b *Bullet) counter(name string) *int {
	switch name {
	case TagHelpful:
		return &b.Helpful
	case TagHarmful:
		return &b.Harmful
	case TagNeutral:
		return &b.Neutral
	default:
		return nil
	}
}

// Stats aggregates knowledge-base growth for the curation prompt.
type Stats struct {
	Sections int `json:"sections"`
	Bullets  int `json:"bullets"`
	Helpful  int `json:"helpful"`
	Harmful  int `json:"harmful"`
	Neutral  int `json:"neutral"`
}

// String renders the stats as a compact single line.
func (s Stats) String() string {
	return fmt.Sprintf("sections=%d bullets=%d helpful=%d harmful=%d neutral=%d",
		s.Sections, s.Bullets, s.Helpful, s.Harmful, s.Neutral)
}

// Snapshot is the persisted form of a playbook: full-fidelity and
// round-trippable.
type Snapshot struct {
	Bullets  map[string]Bullet   `json:"bullets"`
	Sections map[string][]string `json:"sections"`
	NextID   int                 `json:"nextId"`
}
