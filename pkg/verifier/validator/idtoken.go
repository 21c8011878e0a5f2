/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"

	"github.com/bluele/gcache"
	"github.com/go-jose/go-jose/v3"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

const jwksCacheSize = 32

// errConfiguration is the legacy wire-visible message for every failure to
// locate or fetch an id token's OpenID Connect configuration.
const errConfiguration = "Could not fetch token configuration"

// IDTokenValidator validates OpenID Connect id tokens against the discovery
// metadata of their configured issuers. Fetched JWK sets are cached
// process-wide.
type IDTokenValidator struct {
	expected  api.Expected
	opts      *options
	jwksCache gcache.Cache
}

// NewIDTokenValidator creates an id token validator.
func NewIDTokenValidator(expected api.Expected, opts ...Option) *IDTokenValidator {
	return &IDTokenValidator{
		expected:  expected,
		opts:      newOptions(opts...),
		jwksCache: gcache.New(jwksCacheSize).LRU().Build(),
	}
}

// Type implements api.TokenValidator.
func (v *IDTokenValidator) Type() token.Type {
	return token.TypeIDToken
}

// openIDConfiguration is the subset of OpenID Connect discovery metadata the
// validator needs.
type openIDConfiguration struct {
	Issuer  string `json:"issuer"`
	JwksURI string `json:"jwks_uri"`
}

// Validate implements api.TokenValidator.
func (v *IDTokenValidator) Validate(ctx context.Context, _ *api.ValidationQueue, item *api.ValidationQueueItem,
	_, _ string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	configurationURL, failure := v.configurationURL(t)
	if failure != nil {
		return failure
	}

	var configuration openIDConfiguration

	if err := v.opts.httpClient.GetJSON(ctx, configurationURL, &configuration); err != nil {
		logger.Warnf("id token configuration fetch failed: %v", err)

		return api.Failure(api.StatusRejected, errConfiguration)
	}

	if configuration.JwksURI == "" {
		return api.Failure(api.StatusRejected, errConfiguration)
	}

	key, failure := v.signingKey(ctx, t, configuration.JwksURI)
	if failure != nil {
		return failure
	}

	if err := verifySignature(t.RawToken(), key); err != nil {
		return api.Failure(api.StatusRejected, "could not verify the id token signature: %v", err)
	}

	payload := t.Payload()

	if iss := t.StringClaim("iss"); iss != configuration.Issuer {
		return api.Failure(api.StatusRejected,
			"expected id token issuer '%s' does not match issuer '%s'", configuration.Issuer, iss)
	}

	if err := checkAudience(payload, v.expected.Audience); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	if err := checkTimeValidity(payload, v.opts.clockSkew, v.opts.now(), true); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	return &api.ValidationResponse{
		Result:        true,
		Status:        api.StatusOK,
		PayloadObject: payload,
	}
}

// configurationURL checks that the configuration URL the token was collected
// for belongs to one of the expected issuers.
func (v *IDTokenValidator) configurationURL(t *token.ClaimToken) (string, *api.ValidationResponse) {
	configurationURL := t.ConfigurationURL()
	if configurationURL == "" {
		return "", api.Failure(api.StatusRejected, errConfiguration)
	}

	allowed := make([]string, 0, len(v.expected.Configuration))

	if len(v.expected.Issuers) == 0 {
		for _, url := range v.expected.Configuration {
			allowed = append(allowed, url)
		}
	} else {
		for _, issuer := range v.expected.Issuers {
			if url, ok := v.expected.Configuration[issuer]; ok {
				allowed = append(allowed, url)
			}
		}
	}

	if !stringsContain(allowed, configurationURL) {
		return "", api.Failure(api.StatusRejected, errConfiguration)
	}

	return configurationURL, nil
}

func (v *IDTokenValidator) signingKey(ctx context.Context, t *token.ClaimToken,
	jwksURI string) (*jose.JSONWebKey, *api.ValidationResponse) {
	keySet, failure := v.keySet(ctx, jwksURI)
	if failure != nil {
		return nil, failure
	}

	kid, _ := t.Header()["kid"].(string)

	if kid != "" {
		if keys := keySet.Key(kid); len(keys) > 0 {
			return &keys[0], nil
		}

		return nil, api.Failure(api.StatusRejected, "no key with kid '%s' in the JWK set of %s", kid, jwksURI)
	}

	if len(keySet.Keys) == 1 {
		return &keySet.Keys[0], nil
	}

	return nil, api.Failure(api.StatusRejected,
		"the id token names no kid and the JWK set of %s holds %d keys", jwksURI, len(keySet.Keys))
}

func (v *IDTokenValidator) keySet(ctx context.Context, jwksURI string) (*jose.JSONWebKeySet, *api.ValidationResponse) {
	if cached, err := v.jwksCache.Get(jwksURI); err == nil {
		logger.Debugf("JWK set cache hit for %s", jwksURI)

		return cached.(*jose.JSONWebKeySet), nil
	}

	keySet := &jose.JSONWebKeySet{}

	if err := v.opts.httpClient.GetJSON(ctx, jwksURI, keySet); err != nil {
		return nil, api.Failure(api.StatusRejected, "could not fetch the JWK set from %s: %v", jwksURI, err)
	}

	if err := v.jwksCache.Set(jwksURI, keySet); err != nil {
		return nil, api.Failure(api.StatusRejected, "could not cache the JWK set of %s: %v", jwksURI, err)
	}

	return keySet, nil
}
