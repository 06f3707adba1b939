// Package settings holds the user-tunable parameters of one session. The
// store is an explicit object handed to its readers; writers go through the
// setters, which return the new snapshot and notify subscribers.
package settings

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"seneclass/internal/llm"
)

type Direction string

const (
	Vertical   Direction = "vertical"
	Horizontal Direction = "horizontal"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 10
	MinRate       = 0.1
	MaxRate       = 10.0
)

type Settings struct {
	Direction  Direction
	Backend    llm.Backend
	SpeechRate float64
	Difficulty int
}

// Defaults mirrors the initial state of a fresh session.
func Defaults() Settings {
	return Settings{
		Direction:  Horizontal,
		Backend:    llm.BackendHostedChat,
		SpeechRate: 1,
		Difficulty: 5,
	}
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	if _, err := ParseDirection(string(s.Direction)); err != nil {
		return err
	}
	if _, err := llm.ParseBackend(string(s.Backend)); err != nil {
		return err
	}
	if err := checkRate(s.SpeechRate); err != nil {
		return err
	}
	return checkDifficulty(s.Difficulty)
}

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Vertical:
		return Vertical, nil
	case Horizontal:
		return Horizontal, nil
	default:
		return "", fmt.Errorf("unknown panel direction %q", s)
	}
}

func checkRate(r float64) error {
	if math.IsNaN(r) || r < MinRate || r > MaxRate {
		return fmt.Errorf("speech rate %.2f out of range [%.1f, %.0f]", r, MinRate, MaxRate)
	}
	return nil
}

func checkDifficulty(d int) error {
	if d < MinDifficulty || d > MaxDifficulty {
		return fmt.Errorf("difficulty %d out of range [%d, %d]", d, MinDifficulty, MaxDifficulty)
	}
	return nil
}

// Store is safe for concurrent use. Subscribers run synchronously after the
// write, outside the lock, in subscription order.
type Store struct {
	mu     sync.RWMutex
	cur    Settings
	subs   map[int]func(Settings)
	order  []int
	nextID int
}

// NewStore creates a store seeded with initial, which must be valid.
func NewStore(initial Settings) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{cur: initial, subs: make(map[int]func(Settings))}, nil
}

func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Subscribe registers fn for every change and returns its cancel func.
func (s *Store) Subscribe(fn func(Settings)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) SetDirection(d Direction) (Settings, error) {
	nd, err := ParseDirection(string(d))
	if err != nil {
		return s.Snapshot(), err
	}
	return s.update(func(cur *Settings) { cur.Direction = nd }), nil
}

func (s *Store) SetBackend(b llm.Backend) (Settings, error) {
	nb, err := llm.ParseBackend(string(b))
	if err != nil {
		return s.Snapshot(), err
	}
	return s.update(func(cur *Settings) { cur.Backend = nb }), nil
}

func (s *Store) SetSpeechRate(r float64) (Settings, error) {
	if err := checkRate(r); err != nil {
		return s.Snapshot(), err
	}
	return s.update(func(cur *Settings) { cur.SpeechRate = r }), nil
}

func (s *Store) SetDifficulty(d int) (Settings, error) {
	if err := checkDifficulty(d); err != nil {
		return s.Snapshot(), err
	}
	return s.update(func(cur *Settings) { cur.Difficulty = d }), nil
}

func (s *Store) update(apply func(*Settings)) Settings {
	s.mu.Lock()
	prev := s.cur
	apply(&s.cur)
	next := s.cur
	var fns []func(Settings)
	if next != prev {
		for _, id := range s.order {
			fns = append(fns, s.subs[id])
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	return next
}
