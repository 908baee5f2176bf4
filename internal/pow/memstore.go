// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package pow

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ChallengeStore. Challenge state is transient
// by design (an expired or lost challenge just means the client requests a
// new one), so process-local storage is sufficient for a single instance.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

// Put stores the challenge, overwriting any existing one for the session.
func (s *MemoryStore) Put(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.SessionID] = ch
	return nil
}

// Get returns a copy of the session's challenge, or ErrNoChallenge.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[sessionID]
	if !ok {
		return Challenge{}, ErrNoChallenge
	}
	return ch, nil
}

// Consume marks the challenge consumed iff it is still identified by salt
// and unconsumed. The check-and-set runs under the store lock, so exactly
// one concurrent caller wins.
func (s *MemoryStore) Consume(_ context.Context, sessionID, salt string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[sessionID]
	if !ok || ch.Consumed || ch.Salt != salt {
		return false, nil
	}
	ch.Consumed = true
	s.challenges[sessionID] = ch
	return true, nil
}

// Delete removes the session's challenge, if any. Called when the transport
// layer discards a session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, sessionID)
}

// Compile-time interface check.
var _ ChallengeStore = (*MemoryStore)(nil)
