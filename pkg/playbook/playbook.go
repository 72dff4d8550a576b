package playbook

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// Playbook is the knowledge store. It owns all bullets and the section
// index; mutation happens only through its operation set. A playbook
// assumes a single writer: the mutex guards against accidental in-process
// sharing, it does not make concurrent loops against one instance a
// supported mode.
type Playbook struct {
	mu           sync.Mutex
	bullets      map[string]*Bullet
	sections     map[string][]string
	sectionOrder []string
	nextID       int

	now func() time.Time
}

// New creates an empty playbook.
func New() *Playbook {
	return &Playbook{
		bullets:  make(map[string]*Bullet),
		sections: make(map[string][]string),
		nextID:   1,
		now:      time.Now,
	}
}

// AddOption customizes a single Add call.
type AddOption func(*addOptions)

type addOptions struct {
	id       string
	counters map[string]float64
}

// WithID adds the bullet under a fixed identity instead of minting one.
// Adding over an existing identity replaces that bullet.
func WithID(id string) AddOption {
	return func(o *addOptions) { o.id = id }
}

// WithCounters seeds the named counters. Names outside the known counter
// set are ignored.
func WithCounters(counters map[string]float64) AddOption {
	return func(o *addOptions) { o.counters = counters }
}

// Add registers a new bullet under the given section and returns a copy of
// it. When no identity is supplied one is minted from the section name's
// first word plus the identity counter. Add never fails.
func (p *Playbook) Add(section, content string, opts ...AddOption) Bullet {
	p.mu.Lock()
	defer p.mu.Unlock()

	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := o.id
	if id == "" {
		id = p.mintID(section)
	}

	// Re-adding an existing identity replaces the bullet, it never
	// duplicates it.
	if _, ok := p.bullets[id]; ok {
		p.removeLocked(id)
	}

	now := p.now()
	b := &Bullet{
		ID:        id,
		Section:   section,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for name, v := range o.counters {
		if c := b.counter(name); c != nil {
			*c = clampNonNegative(int(v))
		}
	}

	p.bullets[id] = b
	p.addMembership(section, id)

	return *b
}

// Update replaces a bullet's content and overwrites the named counters.
// An empty content leaves the existing content in place; counter names
// outside the known set are ignored. Unknown identities signal not-found
// without mutating anything.
func (p *Playbook) Update(id, content string, counters map[string]float64) (Bullet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bullets[id]
	if !ok {
		return Bullet{}, notFound(id)
	}

	if content != "" {
		b.Content = content
	}
	for name, v := range counters {
		if c := b.counter(name); c != nil {
			*c = clampNonNegative(int(v))
		}
	}
	b.UpdatedAt = p.now()

	return *b, nil
}

// Tag adjusts one usage counter by delta, which may be negative. Counters
// never go below zero. Tag names outside {helpful, harmful, neutral} are an
// invalid-tag error.
func (p *Playbook) Tag(id, tag string, delta int) (Bullet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bullets[id]
	if !ok {
		return Bullet{}, notFound(id)
	}

	c := b.counter(tag)
	if c == nil {
		return Bullet{}, errors.WithFields(
			errors.New(errors.InvalidInput, "invalid tag"),
			errors.Fields{"tag": tag, "id": id})
	}

	*c = clampNonNegative(*c + delta)
	b.UpdatedAt = p.now()

	return *b, nil
}

// Remove deletes a bullet and its section membership. Removing an unknown
// identity is a no-op.
func (p *Playbook) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

// Get returns a copy of the bullet with the given identity.
func (p *Playbook) Get(id string) (Bullet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bullets[id]
	if !ok {
		return Bullet{}, false
	}
	return *b, true
}

// Bullets returns copies of all bullets in section discovery order, then
// membership order within each section.
func (p *Playbook) Bullets() []Bullet {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Bullet, 0, len(p.bullets))
	for _, section := range p.sectionOrder {
		for _, id := range p.sections[section] {
			out = append(out, *p.bullets[id])
		}
	}
	return out
}

// Render produces the deterministic textual projection injected into
// prompts: one heading per section in discovery order, one line per
// bullet. An empty playbook renders as an empty string.
func (p *Playbook) Render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.bullets) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range p.sectionOrder {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s\n", section)
		for _, id := range p.sections[section] {
			sb.WriteString(p.bullets[id].String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Stats aggregates section, bullet, and counter totals.
func (p *Playbook) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Sections: len(p.sections),
		Bullets:  len(p.bullets),
	}
	for _, b := range p.bullets {
		s.Helpful += b.Helpful
		s.Harmful += b.Harmful
		s.Neutral += b.Neutral
	}
	return s
}

// Snapshot serializes the full store state.
func (p *Playbook) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Bullets:  make(map[string]Bullet, len(p.bullets)),
		Sections: make(map[string][]string, len(p.sections)),
		NextID:   p.nextID,
	}
	for id, b := range p.bullets {
		snap.Bullets[id] = *b
	}
	for name, ids := range p.sections {
		snap.Sections[name] = append([]string(nil), ids...)
	}
	return snap
}

// Restore fully replaces in-memory state with the snapshot. Section
// discovery order is rebuilt from the earliest creation time among each
// section's members (ties broken by name), which reconstructs the order
// the sections were first seen in for stores built through the operation
// surface.
func (p *Playbook) Restore(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bullets = make(map[string]*Bullet, len(snap.Bullets))
	for id, b := range snap.Bullets {
		bullet := b
		p.bullets[id] = &bullet
	}

	p.sections = make(map[string][]string, len(snap.Sections))
	for name, ids := range snap.Sections {
		p.sections[name] = append([]string(nil), ids...)
	}

	p.sectionOrder = make([]string, 0, len(p.sections))
	for name := range p.sections {
		p.sectionOrder = append(p.sectionOrder, name)
	}
	sort.Slice(p.sectionOrder, func(i, j int) bool {
		ti := p.earliestCreation(p.sectionOrder[i])
		tj := p.earliestCreation(p.sectionOrder[j])
		if ti.Equal(tj) {
			return p.sectionOrder[i] < p.sectionOrder[j]
		}
		return ti.Before(tj)
	})

	p.nextID = snap.NextID
	if p.nextID < 1 {
		p.nextID = 1
	}
}

func (p *Playbook) earliestCreation(section string) time.Time {
	var earliest time.Time
	for _, id := range p.sections[section] {
		b, ok := p.bullets[id]
		if !ok {
			continue
		}
		if earliest.IsZero() || b.CreatedAt.Before(earliest) {
			earliest = b.CreatedAt
		}
	}
	return earliest
}

// mintID builds a fresh identity from the section name's first
// whitespace-delimited token, lower-cased, plus the zero-padded sequence
// counter: "design strategies" yields ids like "design-00007".
func (p *Playbook) mintID(section string) string {
	token := "bullet"
	if fields := strings.Fields(section); len(fields) > 0 {
		token = strings.ToLower(fields[0])
	}

	for {
		id := fmt.Sprintf("%s-%05d", token, p.nextID)
		p.nextID++
		if _, taken := p.bullets[id]; !taken {
			return id
		}
	}
}

func (p *Playbook) addMembership(section, id string) {
	if _, ok := p.sections[section]; !ok {
		p.sectionOrder = append(p.sectionOrder, section)
	}
	p.sections[section] = append(p.sections[section], id)
}

func (p *Playbook) removeLocked(id string) {
	b, ok := p.bullets[id]
	if !ok {
		return
	}
	delete(p.bullets, id)

	members := p.sections[b.Section]
	for i, member := range members {
		if member == id {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}

	if len(members) == 0 {
		delete(p.sections, b.Section)
		for i, name := range p.sectionOrder {
			if name == b.Section {
				p.sectionOrder = append(p.sectionOrder[:i], p.sectionOrder[i+1:]...)
				break
			}
		}
	} else {
		p.sections[b.Section] = members
	}
}

func notFound(id string) error {
	return errors.WithFields(
		errors.New(errors.ResourceNotFound, "bullet not found"),
		errors.Fields{"id": id})
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
