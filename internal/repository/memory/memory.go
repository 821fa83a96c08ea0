// Package memory is an in-process repository driver. Each resource's ledger
// is guarded by its own mutex so commits on different resources never block
// one another.
package memory

import (
	"sync"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/repository"
)

type state struct {
	mu           sync.RWMutex
	resources    map[string]*domain.Resource
	reservations map[string]*domain.Reservation

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
	ledgers map[string]domain.Ledger // resource id -> ledger, guarded by locks[id]
}

// resourceLock returns the mutex serializing access to one resource's ledger,
// together with that ledger. The ledger may only be touched while holding the
// mutex.
func (s *state) resourceLock(id string) (*sync.Mutex, domain.Ledger) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
		s.ledgers[id] = domain.Ledger{}
	}
	return l, s.ledgers[id]
}

type Store struct {
	repository.ResourceRepository
	repository.BookingRepository
	repository.ReservationRepository
}

func NewStore() *Store {
	st := &state{
		resources:    make(map[string]*domain.Resource),
		reservations: make(map[string]*domain.Reservation),
		locks:        make(map[string]*sync.Mutex),
		ledgers:      make(map[string]domain.Ledger),
	}
	return &Store{
		ResourceRepository:    &resourceRepository{st: st},
		BookingRepository:     &bookingRepository{st: st},
		ReservationRepository: &reservationRepository{st: st},
	}
}
