/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package validator implements the per-type state machines claim tokens run
// through: parse, resolve key, verify signature, check claims, cross
// validate. Any failing state terminates with a response naming the
// condition.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/httputil"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

var logger = log.New("vc-verification/validator")

// DefaultClockSkew is the tolerated clock drift for exp and nbf checks.
const DefaultClockSkew = 5 * time.Minute

type options struct {
	resolver   did.Resolver
	httpClient *httputil.Client
	clockSkew  time.Duration
	now        func() time.Time
}

// Option configures a token validator.
type Option func(o *options)

// WithDidResolver sets the DID resolver used to look up verification keys.
func WithDidResolver(resolver did.Resolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithHTTPClient sets the HTTP client used for discovery and JWKS fetches.
func WithHTTPClient(client *httputil.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithClockSkew overrides the tolerated clock drift.
func WithClockSkew(skew time.Duration) Option {
	return func(o *options) {
		o.clockSkew = skew
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		httpClient: httputil.New(),
		clockSkew:  DefaultClockSkew,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// claimTokenOf returns the item's parsed token, parsing the raw form on
// first use.
func claimTokenOf(item *api.ValidationQueueItem) (*token.ClaimToken, *api.ValidationResponse) {
	if item.ClaimToken() != nil {
		return item.ClaimToken(), nil
	}

	t, err := token.Parse(item.TokenToValidate())
	if err != nil {
		return nil, api.Failure(api.StatusMalformed, "could not parse token '%s': %v", item.ID(), err)
	}

	return t, nil
}

// verifySignature checks the compact JWS signature of raw against key.
func verifySignature(raw string, key *jose.JSONWebKey) error {
	jws, err := jose.ParseSigned(raw)
	if err != nil {
		return fmt.Errorf("parse compact JWS: %w", err)
	}

	if _, err := jws.Verify(key); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}

// resolveSigningKey resolves the DID document of didID and picks the
// verification key referenced by the token's kid header.
func resolveSigningKey(ctx context.Context, resolver did.Resolver, didID string,
	t *token.ClaimToken) (*jose.JSONWebKey, error) {
	if resolver == nil {
		return nil, fmt.Errorf("no DID resolver configured")
	}

	kid, _ := t.Header()["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token header has no kid")
	}

	doc, err := resolver.ResolveDid(ctx, didID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", didID, err)
	}

	return doc.JWKByKeyID(kid)
}

// checkTimeValidity verifies exp and nbf against now with the configured
// skew. exp may be mandatory depending on the token class.
func checkTimeValidity(payload map[string]interface{}, skew time.Duration, now time.Time, requireExp bool) error {
	exp, hasExp := numericClaim(payload, "exp")
	if !hasExp && requireExp {
		return fmt.Errorf("exp claim is missing")
	}

	if hasExp {
		expiry := time.Unix(int64(exp), 0)
		if now.After(expiry.Add(skew)) {
			return fmt.Errorf("token has expired at %s", expiry.UTC().Format(time.RFC3339))
		}
	}

	if nbf, ok := numericClaim(payload, "nbf"); ok {
		notBefore := time.Unix(int64(nbf), 0)
		if now.Add(skew).Before(notBefore) {
			return fmt.Errorf("token is not valid before %s", notBefore.UTC().Format(time.RFC3339))
		}
	}

	return nil
}

// checkAudience verifies the aud claim, which may be a string or an array
// of strings, against the expected audience.
func checkAudience(payload map[string]interface{}, expected string) error {
	switch aud := payload["aud"].(type) {
	case string:
		if aud == expected {
			return nil
		}

		return fmt.Errorf("expected audience '%s' does not match audience '%s'", expected, aud)
	case []interface{}:
		for _, entry := range aud {
			if s, ok := entry.(string); ok && s == expected {
				return nil
			}
		}

		return fmt.Errorf("expected audience '%s' does not match audience %v", expected, aud)
	case nil:
		return fmt.Errorf("expected audience '%s' but the aud claim is missing", expected)
	default:
		return fmt.Errorf("aud claim has an unsupported type")
	}
}

func numericClaim(payload map[string]interface{}, name string) (float64, bool) {
	switch v := payload[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringsContain(haystack []string, needle string) bool {
	for _, entry := range haystack {
		if entry == needle {
			return true
		}
	}

	return false
}
