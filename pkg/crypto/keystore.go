/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package crypto

import (
	"fmt"
	"sync"

	"github.com/go-jose/go-jose/v3"
)

// MemoryKeyStore is an in-memory KeyStore, safe for concurrent use.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*jose.JSONWebKey
}

// NewMemoryKeyStore creates an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*jose.JSONWebKey)}
}

// Save stores key under keyReference, replacing any previous entry.
func (s *MemoryKeyStore) Save(keyReference string, key *jose.JSONWebKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[keyReference] = key
}

// Key returns the key stored under keyReference.
func (s *MemoryKeyStore) Key(keyReference string) (*jose.JSONWebKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyReference]
	if !ok {
		return nil, fmt.Errorf("no key with reference '%s'", keyReference)
	}

	return key, nil
}
