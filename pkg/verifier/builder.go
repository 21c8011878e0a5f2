/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier drives the validation of a SIOP response: it walks the
// queue of nested tokens, dispatches each to its registered validator,
// assembles the final verdict and optionally polls credential status
// endpoints.
package verifier

import (
	"errors"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/crypto"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/httputil"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/validator"
)

// ValidatorBuilder collects the verifier's configuration. The configuration
// becomes immutable once Build is called.
type ValidatorBuilder struct {
	crypto             *crypto.Provider
	resolver           did.Resolver
	validators         []api.TokenValidator
	trustedIssuers     map[string][]string
	statusCheckEnabled bool
	httpClient         *httputil.Client
}

// BuilderOpt configures a ValidatorBuilder.
type BuilderOpt func(b *ValidatorBuilder)

// WithCrypto sets the verifier's signing identity, required for the
// credential status check.
func WithCrypto(provider *crypto.Provider) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.crypto = provider
	}
}

// WithDidResolver sets the DID resolver shared by the verifier.
func WithDidResolver(resolver did.Resolver) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.resolver = resolver
	}
}

// WithTokenValidator registers a per-type token validator. The last
// validator registered for a type wins.
func WithTokenValidator(v api.TokenValidator) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.validators = append(b.validators, v)
	}
}

// WithTrustedIssuers sets the contract-to-trusted-DIDs map. When no
// credential validator is registered explicitly, Build derives a default one
// from it.
func WithTrustedIssuers(trustedIssuers map[string][]string) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.trustedIssuers = trustedIssuers
	}
}

// WithVerifiableCredentialsStatusCheck toggles the status-receipt
// sub-protocol. Disabled, Validate performs no status network traffic.
func WithVerifiableCredentialsStatusCheck(enabled bool) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.statusCheckEnabled = enabled
	}
}

// WithHTTPClient replaces the HTTP client used for status calls.
func WithHTTPClient(client *httputil.Client) BuilderOpt {
	return func(b *ValidatorBuilder) {
		b.httpClient = client
	}
}

// NewValidatorBuilder creates a builder.
func NewValidatorBuilder(opts ...BuilderOpt) *ValidatorBuilder {
	b := &ValidatorBuilder{httpClient: httputil.New()}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build freezes the configuration into a Validator.
func (b *ValidatorBuilder) Build() (*Validator, error) {
	registry := make(map[token.Type]api.TokenValidator, len(b.validators))

	for _, tv := range b.validators {
		registry[tv.Type()] = tv
	}

	if _, ok := registry[token.TypeVerifiableCredential]; !ok && len(b.trustedIssuers) > 0 {
		expected := api.Expected{
			Type:       token.TypeVerifiableCredential,
			DIDIssuers: b.trustedIssuers,
		}
		if b.crypto != nil {
			expected.DIDAudience = b.crypto.DID()
		}

		registry[token.TypeVerifiableCredential] = validator.NewVerifiableCredentialValidator(expected,
			validator.WithDidResolver(b.resolver), validator.WithHTTPClient(b.httpClient))
	}

	if len(registry) == 0 {
		return nil, errors.New("no token validators are registered")
	}

	if b.statusCheckEnabled && b.crypto == nil {
		return nil, errors.New("the credential status check requires a crypto provider")
	}

	return &Validator{
		crypto:             b.crypto,
		resolver:           b.resolver,
		validators:         registry,
		trustedIssuers:     b.trustedIssuers,
		statusCheckEnabled: b.statusCheckEnabled,
		httpClient:         b.httpClient,
	}, nil
}
