/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/httputil"
)

const identifiersPath = "/1.0/identifiers/"

// ErrNotFound is returned when the resolver endpoint does not know the DID.
var ErrNotFound = errors.New("DID does not exist")

// HTTPResolver resolves DIDs against a universal-resolver style HTTP
// endpoint (GET <endpoint>/1.0/identifiers/<did>).
type HTTPResolver struct {
	endpointURL string
	client      *httputil.Client
}

// HTTPOpt configures an HTTPResolver.
type HTTPOpt func(r *HTTPResolver)

// WithHTTPClient sets the HTTP client used for resolution calls.
func WithHTTPClient(client *httputil.Client) HTTPOpt {
	return func(r *HTTPResolver) {
		r.client = client
	}
}

// NewHTTPResolver creates a resolver for the given endpoint.
func NewHTTPResolver(endpointURL string, opts ...HTTPOpt) (*HTTPResolver, error) {
	if _, err := url.ParseRequestURI(endpointURL); err != nil {
		return nil, fmt.Errorf("base URL invalid: %w", err)
	}

	r := &HTTPResolver{
		endpointURL: strings.TrimSuffix(endpointURL, "/"),
		client:      httputil.New(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// resolutionResult is the https://w3c-ccg.github.io/did-resolution/ envelope
// some resolvers wrap documents in.
type resolutionResult struct {
	DIDDocument *Doc `json:"didDocument,omitempty"`
}

// ResolveDid fetches the DID Document for did. Both a bare document and a
// DID resolution result envelope are accepted.
func (r *HTTPResolver) ResolveDid(ctx context.Context, did string) (*Doc, error) {
	uri := r.endpointURL + identifiersPath + url.PathEscape(did)

	var body map[string]interface{}

	if err := r.client.GetJSON(ctx, uri, &body); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", did, err)
	}

	doc := &Doc{}

	if _, ok := body["didDocument"]; ok {
		result := &resolutionResult{}
		if err := remarshal(body, result); err != nil {
			return nil, fmt.Errorf("parse DID resolution result for %s: %w", did, err)
		}

		doc = result.DIDDocument
	} else if err := remarshal(body, doc); err != nil {
		return nil, fmt.Errorf("parse DID document for %s: %w", did, err)
	}

	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("resolve %s: %w", did, ErrNotFound)
	}

	return doc, nil
}
