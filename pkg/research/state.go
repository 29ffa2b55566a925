package research

import (
	"maps"
	"slices"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/techdata"
)

// LockedOpacity is the opacity of techs that cannot be researched yet.
const LockedOpacity = 0.45

// Status is the research status of a single tech.
type Status int

const (
	// Locked techs have at least one requirement that is not unlocked.
	Locked Status = iota
	// Available techs can be researched.
	Available
	// Researching techs are in progress.
	Researching
	// Unlocked techs are done.
	Unlocked
)

func (s Status) String() string {
	switch s {
	case Available:
		return "available"
	case Researching:
		return "researching"
	case Unlocked:
		return "unlocked"
	default:
		return "locked"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is the research progress of one save. Both sets are keyed by tech
// ID. The zero value is an empty state.
type State struct {
	Unlocked    map[string]bool `json:"unlocked" bson:"unlocked"`
	Researching map[string]bool `json:"researching" bson:"researching"`
}

// Default returns the starting state: every pinned tech unlocked, nothing
// in progress.
func Default(pinned map[string]int) State {
	s := State{
		Unlocked:    make(map[string]bool, len(pinned)),
		Researching: map[string]bool{},
	}
	for id := range pinned {
		s.Unlocked[id] = true
	}
	return s
}

// IsZero reports whether nothing has been unlocked or started. Stores seed
// such states with [Default].
func (s State) IsZero() bool {
	return len(s.Unlocked) == 0 && len(s.Researching) == 0
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		Unlocked:    cloneSet(s.Unlocked),
		Researching: cloneSet(s.Researching),
	}
}

func cloneSet(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return maps.Clone(m)
}

// IsUnlocked reports whether id is unlocked.
func (s State) IsUnlocked(id string) bool { return s.Unlocked[id] }

// IsResearching reports whether id is in progress.
func (s State) IsResearching(id string) bool { return s.Researching[id] }

// CanResearch reports whether every requirement of tech is unlocked.
func (s State) CanResearch(tech techdata.Tech) bool {
	for _, req := range tech.Requires {
		if !s.Unlocked[req] {
			return false
		}
	}
	return true
}

// Missing returns the requirements of tech that are not unlocked, in
// requirement order.
func (s State) Missing(tech techdata.Tech) []string {
	var missing []string
	for _, req := range tech.Requires {
		if !s.Unlocked[req] {
			missing = append(missing, req)
		}
	}
	return missing
}

// Status returns the research status of tech.
func (s State) Status(tech techdata.Tech) Status {
	switch {
	case s.Unlocked[tech.ID]:
		return Unlocked
	case s.Researching[tech.ID]:
		return Researching
	case s.CanResearch(tech):
		return Available
	default:
		return Locked
	}
}

// Opacity returns the opacity tech is drawn at: 1, or LockedOpacity when
// it cannot be researched.
func (s State) Opacity(tech techdata.Tech) float64 {
	if s.CanResearch(tech) {
		return 1
	}
	return LockedOpacity
}

// Available returns the techs of t that are neither unlocked nor in
// progress and can be researched, in declaration order.
func (s State) Available(t *techdata.Table) []string {
	var ids []string
	for _, tech := range t.Techs() {
		if s.Status(tech) == Available {
			ids = append(ids, tech.ID)
		}
	}
	return ids
}

// UnlockedIDs returns the unlocked IDs, sorted.
func (s State) UnlockedIDs() []string {
	return slices.Sorted(maps.Keys(s.Unlocked))
}

// ResearchingIDs returns the IDs in progress, sorted.
func (s State) ResearchingIDs() []string {
	return slices.Sorted(maps.Keys(s.Researching))
}

// StartResearch returns a copy of s with id in progress.
//
// Returns TECH_NOT_FOUND for IDs missing from t and TECH_LOCKED when a
// requirement is not unlocked. Starting an unlocked or in-progress tech is
// a no-op.
func (s State) StartResearch(t *techdata.Table, id string) (State, error) {
	tech, err := s.researchable(t, id)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	if !next.Unlocked[tech.ID] {
		next.Researching[tech.ID] = true
	}
	return next, nil
}

// Unlock returns a copy of s with id unlocked and no longer in progress.
// It fails like [State.StartResearch].
func (s State) Unlock(t *techdata.Table, id string) (State, error) {
	tech, err := s.researchable(t, id)
	if err != nil {
		return s, err
	}
	next := s.Clone()
	next.Unlocked[tech.ID] = true
	delete(next.Researching, tech.ID)
	return next, nil
}

func (s State) researchable(t *techdata.Table, id string) (techdata.Tech, error) {
	tech, ok := t.Lookup(id)
	if !ok {
		return techdata.Tech{}, errors.New(errors.ErrCodeTechNotFound, "tech %q not found", id)
	}
	if missing := s.Missing(tech); len(missing) > 0 {
		return techdata.Tech{}, errors.New(errors.ErrCodeTechLocked, "tech %q requires %v", id, missing)
	}
	return tech, nil
}

// Prune drops IDs that t does not define, e.g. after a table edit removed a
// tech. It returns the number of IDs dropped.
func (s State) Prune(t *techdata.Table) (State, int) {
	next := State{Unlocked: map[string]bool{}, Researching: map[string]bool{}}
	dropped := 0
	for id, on := range s.Unlocked {
		if on && t.Has(id) {
			next.Unlocked[id] = true
		} else {
			dropped++
		}
	}
	for id, on := range s.Researching {
		if on && t.Has(id) {
			next.Researching[id] = true
		} else {
			dropped++
		}
	}
	return next, dropped
}
