/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package crypto wires the verifier's own signing identity: the DID and key
// it uses to sign credential status requests.
package crypto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3"
)

// KeyStore gives access to the verifier's signing keys by reference.
type KeyStore interface {
	// Key returns the private JWK stored under keyReference.
	Key(keyReference string) (*jose.JSONWebKey, error)
}

// Provider holds the verifier-side signing configuration. It is immutable
// after construction.
type Provider struct {
	did                 string
	signingKeyReference string
	signingAlgorithm    jose.SignatureAlgorithm
	keyStore            KeyStore
}

// ProviderOpt configures a Provider.
type ProviderOpt func(p *Provider)

// WithDid sets the verifier's own DID.
func WithDid(did string) ProviderOpt {
	return func(p *Provider) {
		p.did = did
	}
}

// WithSigningKeyReference names the key store entry used for signing.
func WithSigningKeyReference(keyReference string) ProviderOpt {
	return func(p *Provider) {
		p.signingKeyReference = keyReference
	}
}

// WithSigningAlgorithm overrides the JWS algorithm (default EdDSA).
func WithSigningAlgorithm(alg jose.SignatureAlgorithm) ProviderOpt {
	return func(p *Provider) {
		p.signingAlgorithm = alg
	}
}

// WithKeyStore sets the key store.
func WithKeyStore(store KeyStore) ProviderOpt {
	return func(p *Provider) {
		p.keyStore = store
	}
}

// NewProvider creates a Provider. A DID, signing key reference and key store
// are required.
func NewProvider(opts ...ProviderOpt) (*Provider, error) {
	p := &Provider{signingAlgorithm: jose.EdDSA}

	for _, opt := range opts {
		opt(p)
	}

	if p.did == "" {
		return nil, errors.New("crypto provider requires a DID")
	}

	if p.signingKeyReference == "" {
		return nil, errors.New("crypto provider requires a signing key reference")
	}

	if p.keyStore == nil {
		return nil, errors.New("crypto provider requires a key store")
	}

	return p, nil
}

// DID returns the verifier's DID.
func (p *Provider) DID() string {
	return p.did
}

// SigningKeyID returns the fully qualified kid of the signing key.
func (p *Provider) SigningKeyID() string {
	return p.did + "#" + p.signingKeyReference
}

// PublicJWK returns the public half of the signing key.
func (p *Provider) PublicJWK() (*jose.JSONWebKey, error) {
	key, err := p.keyStore.Key(p.signingKeyReference)
	if err != nil {
		return nil, err
	}

	public := key.Public()
	if public.Key == nil {
		return nil, fmt.Errorf("key '%s' has no public form", p.signingKeyReference)
	}

	return &public, nil
}

// SignPayload signs the JSON serialization of claims and returns the compact
// JWS, with the verifier's kid in the protected header.
func (p *Provider) SignPayload(claims interface{}) (string, error) {
	key, err := p.keyStore.Key(p.signingKeyReference)
	if err != nil {
		return "", fmt.Errorf("load signing key '%s': %w", p.signingKeyReference, err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	signerOpts := (&jose.SignerOptions{}).WithType("JWT").WithHeader(jose.HeaderKey("kid"), p.SigningKeyID())

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: p.signingAlgorithm, Key: key.Key}, signerOpts)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}

	return jws.CompactSerialize()
}
