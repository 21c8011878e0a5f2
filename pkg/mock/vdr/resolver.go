/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mockvdr provides an in-memory DID resolver for tests.
package mockvdr

import (
	"context"
	"fmt"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
)

// Resolver resolves DIDs from an in-memory map.
type Resolver struct {
	Docs map[string]*did.Doc
	Err  error
}

// New creates a Resolver serving the given documents.
func New(docs ...*did.Doc) *Resolver {
	r := &Resolver{Docs: make(map[string]*did.Doc, len(docs))}

	for _, doc := range docs {
		r.Docs[doc.ID] = doc
	}

	return r
}

// ResolveDid implements did.Resolver.
func (r *Resolver) ResolveDid(_ context.Context, didID string) (*did.Doc, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	doc, ok := r.Docs[didID]
	if !ok {
		return nil, fmt.Errorf("mock resolver has no document for %s", didID)
	}

	return doc, nil
}
