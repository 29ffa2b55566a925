package save

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/techtree/pkg/errors"
	"github.com/matzehuels/techtree/pkg/research"
)

const (
	// MaxSaves is the number of saves a store holds.
	MaxSaves = 3

	// DefaultName names saves created without one.
	DefaultName = "New Civilization"

	// FormatVersion is stamped on every save.
	FormatVersion = "1.0.0"

	idPrefix = "save_"
)

// Save is a persisted game save.
type Save struct {
	ID       string         `json:"id" bson:"_id"`
	Name     string         `json:"name" bson:"name"`
	Research research.State `json:"research" bson:"research"`
	Meta     Meta           `json:"meta" bson:"meta"`
}

// Meta holds save bookkeeping.
type Meta struct {
	Version      string    `json:"version" bson:"version"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
	LastPlayedAt time.Time `json:"last_played_at" bson:"last_played_at"`
}

// Store persists saves. Implementations are safe for concurrent use.
type Store interface {
	// Create stores a new save named name with an empty research state.
	// A blank name selects DefaultName.
	Create(ctx context.Context, name string) (*Save, error)

	// Load returns the save with the given ID and marks it as played,
	// seeding an empty research state first.
	Load(ctx context.Context, id string) (*Save, error)

	// List returns all saves, most recently played first. It does not
	// touch LastPlayedAt.
	List(ctx context.Context) ([]Save, error)

	// Delete removes a save.
	Delete(ctx context.Context, id string) error

	// UpdateResearch replaces the research state of a save.
	UpdateResearch(ctx context.Context, id string, state research.State) (*Save, error)

	// Close releases the store's resources.
	Close() error
}

// Options configures a store.
type Options struct {
	// Pinned lists the starting techs unlocked when a save is seeded.
	Pinned map[string]int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// NewID returns a fresh save ID.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// newSave builds a save ready to be inserted.
func newSave(name string, now time.Time) (*Save, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	} else if err := errors.ValidateSaveName(name); err != nil {
		return nil, err
	}
	return &Save{
		ID:   NewID(),
		Name: name,
		Research: research.State{
			Unlocked:    map[string]bool{},
			Researching: map[string]bool{},
		},
		Meta: Meta{
			Version:      FormatVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
			LastPlayedAt: now,
		},
	}, nil
}

// seed fills an empty research state with the default one. It reports
// whether s changed.
func (o Options) seed(s *Save) bool {
	if !s.Research.IsZero() {
		return false
	}
	s.Research = research.Default(o.Pinned)
	return true
}

func validateID(id string) error {
	return errors.ValidateID("save", id)
}

func errLimit() error {
	return errors.New(errors.ErrCodeSaveLimit, "save limit reached (%d saves)", MaxSaves)
}

func errNotFound(id string) error {
	return errors.New(errors.ErrCodeSaveNotFound, "save %q not found", id)
}
