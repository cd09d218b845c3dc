package ledger

import (
	"context"
	"sync"

	"ticketgate/internal/models"
)

// Memory is an in-process Ledger keyed by unit. The mutex serialises the
// read-modify-write the same way the Postgres implementation's conditional
// UPDATE does, so both backends uphold the same non-oversell contract.
type Memory struct {
	mu    sync.Mutex
	units map[string]*Counters
}

func NewMemory() *Memory {
	return &Memory{units: make(map[string]*Counters)}
}

// AddUnit registers an inventory unit with the given capacity.
func (m *Memory) AddUnit(unit models.UnitRef, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.units[unit.Key()] = &Counters{Capacity: capacity}
}

func (m *Memory) Reserve(_ context.Context, unit models.UnitRef, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.units[unit.Key()]
	if !ok {
		return ErrUnitNotFound
	}
	if c.Reserved+qty > c.Capacity {
		return ErrCapacityExceeded
	}
	c.Reserved += qty

	return nil
}

func (m *Memory) Release(_ context.Context, unit models.UnitRef, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.units[unit.Key()]
	if !ok {
		return ErrUnitNotFound
	}
	c.Reserved -= qty
	if c.Reserved < 0 {
		c.Reserved = 0
	}

	return nil
}

func (m *Memory) RecordCheckIn(_ context.Context, unit models.UnitRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.units[unit.Key()]
	if !ok {
		return ErrUnitNotFound
	}
	c.CheckedIn++

	return nil
}

func (m *Memory) Counters(_ context.Context, unit models.UnitRef) (Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.units[unit.Key()]
	if !ok {
		return Counters{}, ErrUnitNotFound
	}

	return *c, nil
}
