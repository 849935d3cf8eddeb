// Package variables provides the named, typed slots a graph reads and writes while it runs.
package variables

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
)

var (
	// ErrVariableNotFound indicates no slot is declared under the given name.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrTypeMismatch indicates a value cannot be stored in a slot of the declared type.
	ErrTypeMismatch = errors.New("variable type mismatch")

	// ErrDuplicateVariable indicates a slot name was declared twice.
	ErrDuplicateVariable = errors.New("variable already declared")

	// ErrUnknownType indicates an unsupported slot type.
	ErrUnknownType = errors.New("unknown variable type")
)

// Type is the declared type of a slot.
type Type string

const (
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeString Type = "string"
	TypeAny    Type = "any"
)

// Slot is a single variable. Start is fixed when the graph is authored.
type Slot struct {
	Name    string `json:"name"`
	Type    Type   `json:"type"`
	Start   any    `json:"start"`
	Current any    `json:"current"`
}

// Store holds the slots of one graph. It is shared by the main line and every
// branch chain, so access is synchronized.
type Store struct {
	mu     sync.RWMutex
	slots  map[string]*Slot
	logger *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		slots:  make(map[string]*Slot),
		logger: logger.With("module", "variables"),
	}
}

// Declare adds a slot whose current value starts at start.
func (s *Store) Declare(name string, typ Type, start any) error {
	if !typ.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	value, err := coerce(typ, start)
	if err != nil {
		return fmt.Errorf("start value of %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}

	s.slots[name] = &Slot{Name: name, Type: typ, Start: value, Current: value}

	return nil
}

// Get returns the current value of name.
func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[name]
	if !ok {
		s.logger.Warn("Variable lookup failed", "name", name)

		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}

	return slot.Current, nil
}

// Slot returns a copy of the slot declared as name.
func (s *Store) Slot(name string) (Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[name]
	if !ok {
		return Slot{}, false
	}

	return *slot, true
}

// Set stores value in name, widening it when a safe conversion exists. On
// failure the assignment is dropped and the error is reported.
func (s *Store) Set(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[name]
	if !ok {
		s.logger.Warn("Assignment to undeclared variable dropped", "name", name)

		return fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}

	coerced, err := coerce(slot.Type, value)
	if err != nil {
		s.logger.Warn("Assignment dropped", "name", name, "type", slot.Type, "value_type", fmt.Sprintf("%T", value))

		return fmt.Errorf("set %s: %w", name, err)
	}

	slot.Current = coerced

	return nil
}

// ResetAll restores every slot to its start value.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range s.slots {
		slot.Current = slot.Start
	}
}

// Snapshot returns the current value of every slot.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]any, len(s.slots))
	for name, slot := range s.slots {
		values[name] = slot.Current
	}

	return values
}

// Restore applies values produced by Snapshot. Unknown names and mismatched
// values are skipped and reported.
func (s *Store) Restore(values map[string]any) {
	for name, value := range values {
		err := s.Set(name, value)
		if err != nil {
			s.logger.Warn("Variable not restored", "name", name, "error", err)
		}
	}
}

// Names returns the declared slot names in lexical order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (t Type) valid() bool {
	switch t {
	case TypeBool, TypeInt, TypeFloat, TypeString, TypeAny:
		return true
	default:
		return false
	}
}

func coerce(typ Type, value any) (any, error) {
	if typ == TypeAny {
		return value, nil
	}

	switch typ {
	case TypeBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case TypeString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case TypeInt:
		return toInt(value)
	case TypeFloat:
		return toFloat(value)
	}

	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, value, typ)
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), nil
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), nil
		}
	case float64:
		// Decoded documents carry every number as float64.
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v), nil
		}
	case json.Number:
		n, err := v.Int64()
		if err == nil {
			return n, nil
		}
	}

	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, value, TypeInt)
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, value, TypeFloat)
}
