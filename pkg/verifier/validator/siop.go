/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"
	"crypto"
	"encoding/base64"

	"github.com/go-jose/go-jose/v3"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

// SIOPValidator validates the self-issued envelope of a wallet response and
// fans its nested tokens out onto the queue. It covers the issuance,
// attestation and presentation-exchange flavors.
type SIOPValidator struct {
	tokenType token.Type
	expected  api.Expected
	opts      *options
}

// NewSIOPValidator creates a validator for one SIOP flavor. tokenType must
// be TypeSIOPIssuance, TypeSIOPPresentationAttestation or
// TypeSIOPPresentationExchange.
func NewSIOPValidator(tokenType token.Type, expected api.Expected, opts ...Option) *SIOPValidator {
	return &SIOPValidator{tokenType: tokenType, expected: expected, opts: newOptions(opts...)}
}

// Type implements api.TokenValidator.
func (v *SIOPValidator) Type() token.Type {
	return v.tokenType
}

// Validate implements api.TokenValidator.
func (v *SIOPValidator) Validate(ctx context.Context, queue *api.ValidationQueue, item *api.ValidationQueueItem,
	_, _ string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	payload := t.Payload()

	if iss := t.StringClaim("iss"); iss != token.SelfIssuedIssuer {
		return api.Failure(api.StatusRejected,
			"expected SIOP issuer '%s' does not match issuer '%s'", token.SelfIssuedIssuer, iss)
	}

	signingDID := t.StringClaim("did")

	key, failure := v.signingKey(ctx, t, signingDID)
	if failure != nil {
		return failure
	}

	if err := verifySignature(t.RawToken(), key); err != nil {
		return api.Failure(api.StatusRejected, "could not verify the SIOP signature: %v", err)
	}

	if err := checkTimeValidity(payload, v.opts.clockSkew, v.opts.now(), true); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	if err := checkAudience(payload, v.expected.Audience); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	if failure := v.checkReplay(t); failure != nil {
		return failure
	}

	children, failure := v.fanOut(t)
	if failure != nil {
		return failure
	}

	toValidate := make(map[string]*token.ClaimToken, len(children))

	for _, child := range children {
		queue.EnqueueItem(child.ID, child.Token)
		toValidate[child.ID] = child.Token
	}

	logger.Debugf("SIOP '%s' validated, %d nested token(s) enqueued", item.ID(), len(children))

	return &api.ValidationResponse{
		Result:           true,
		Status:           api.StatusOK,
		DID:              signingDID,
		PayloadObject:    payload,
		TokensToValidate: toValidate,
	}
}

// signingKey picks the key the SIOP is self-signed with: the sub_jwk the
// token carries, or the DID-resolved key referenced by its kid.
func (v *SIOPValidator) signingKey(ctx context.Context, t *token.ClaimToken,
	signingDID string) (*jose.JSONWebKey, *api.ValidationResponse) {
	if subJwk, ok := t.Payload()["sub_jwk"].(map[string]interface{}); ok {
		key, err := did.JWKFromMap(subJwk)
		if err != nil {
			return nil, api.Failure(api.StatusRejected, "could not parse the SIOP sub_jwk: %v", err)
		}

		if failure := checkThumbprint(t, key); failure != nil {
			return nil, failure
		}

		return key, nil
	}

	if signingDID == "" {
		return nil, api.Failure(api.StatusRejected, "the SIOP carries neither a sub_jwk nor a did claim")
	}

	key, err := resolveSigningKey(ctx, v.opts.resolver, signingDID, t)
	if err != nil {
		return nil, api.Failure(api.StatusRejected, "could not resolve the SIOP signing key: %v", err)
	}

	return key, nil
}

// checkThumbprint enforces that the sub claim equals the RFC 7638 SHA-256
// thumbprint of sub_jwk, when a sub claim is present.
func checkThumbprint(t *token.ClaimToken, key *jose.JSONWebKey) *api.ValidationResponse {
	sub := t.StringClaim("sub")
	if sub == "" {
		return nil
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return api.Failure(api.StatusRejected, "could not compute the sub_jwk thumbprint: %v", err)
	}

	if encoded := base64.RawURLEncoding.EncodeToString(thumbprint); encoded != sub {
		return api.Failure(api.StatusRejected,
			"expected sub claim '%s' to equal the sub_jwk thumbprint '%s'", sub, encoded)
	}

	return nil
}

// checkReplay enforces bitwise equality of the echoed nonce and state with
// the expected values.
func (v *SIOPValidator) checkReplay(t *token.ClaimToken) *api.ValidationResponse {
	if v.expected.Nonce != "" {
		if nonce := t.StringClaim("nonce"); nonce != v.expected.Nonce {
			return api.Failure(api.StatusRejected,
				"expected nonce '%s' does not match the SIOP nonce '%s'", v.expected.Nonce, nonce)
		}
	}

	if v.expected.State != "" {
		if state := t.StringClaim("state"); state != v.expected.State {
			return api.Failure(api.StatusRejected,
				"expected state '%s' does not match the SIOP state '%s'", v.expected.State, state)
		}
	}

	return nil
}

func (v *SIOPValidator) fanOut(t *token.ClaimToken) ([]token.NamedToken, *api.ValidationResponse) {
	var (
		children []token.NamedToken
		err      error
	)

	switch t.Type() {
	case token.TypeSIOPPresentationAttestation:
		children, err = t.AttestationTokens()
	case token.TypeSIOPPresentationExchange:
		children, err = t.PresentationExchangeTokens()
	default:
		// issuance SIOPs carry no nested tokens
	}

	if err != nil {
		return nil, api.Failure(api.StatusRejected, "%v", err)
	}

	return children, nil
}
