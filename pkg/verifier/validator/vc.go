/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

// VerifiableCredentialValidator validates W3C verifiable credentials in JWT
// form: issuer signature, audience continuity with the SIOP DID, and the
// trusted-issuer policy of the contract being served.
type VerifiableCredentialValidator struct {
	expected api.Expected
	opts     *options
}

// NewVerifiableCredentialValidator creates a credential validator.
func NewVerifiableCredentialValidator(expected api.Expected, opts ...Option) *VerifiableCredentialValidator {
	return &VerifiableCredentialValidator{expected: expected, opts: newOptions(opts...)}
}

// Type implements api.TokenValidator.
func (v *VerifiableCredentialValidator) Type() token.Type {
	return token.TypeVerifiableCredential
}

// Validate implements api.TokenValidator.
func (v *VerifiableCredentialValidator) Validate(ctx context.Context, _ *api.ValidationQueue,
	item *api.ValidationQueueItem, siopDID, siopContractID string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	payload := t.Payload()

	issuer := t.StringClaim("iss")
	if issuer == "" {
		return api.Failure(api.StatusRejected, "the verifiable credential has no iss claim")
	}

	key, err := resolveSigningKey(ctx, v.opts.resolver, issuer, t)
	if err != nil {
		return api.Failure(api.StatusRejected, "could not resolve the verifiable credential signing key: %v", err)
	}

	if err := verifySignature(t.RawToken(), key); err != nil {
		return api.Failure(api.StatusRejected, "could not verify the verifiable credential signature: %v", err)
	}

	if failure := v.checkAudienceDID(payload, siopDID); failure != nil {
		return failure
	}

	if failure := v.checkTrustedIssuer(issuer, siopContractID); failure != nil {
		return failure
	}

	if err := checkTimeValidity(payload, v.opts.clockSkew, v.opts.now(), false); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	return &api.ValidationResponse{
		Result:        true,
		Status:        api.StatusOK,
		DID:           issuer,
		PayloadObject: payload,
	}
}

// checkAudienceDID enforces that the credential is addressed to the DID the
// SIOP established, falling back to the configured audience DID.
func (v *VerifiableCredentialValidator) checkAudienceDID(payload map[string]interface{},
	siopDID string) *api.ValidationResponse {
	expected := siopDID
	if expected == "" {
		expected = v.expected.DIDAudience
	}

	if expected == "" {
		return nil
	}

	if err := checkAudience(payload, expected); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	return nil
}

// checkTrustedIssuer enforces the trusted-issuer policy. With a known
// contract the credential issuer must be in that contract's trusted set;
// without one it must appear in at least one configured set.
func (v *VerifiableCredentialValidator) checkTrustedIssuer(issuer, contractID string) *api.ValidationResponse {
	if len(v.expected.DIDIssuers) == 0 {
		return nil
	}

	if contractID != "" {
		trusted, ok := v.expected.DIDIssuers[contractID]
		if !ok {
			return api.Failure(api.StatusRejected, "no trusted issuers are configured for contract '%s'", contractID)
		}

		if !stringsContain(trusted, issuer) {
			return api.Failure(api.StatusRejected,
				"the issuer '%s' of the verifiable credential is not trusted for contract '%s'", issuer, contractID)
		}

		return nil
	}

	for _, trusted := range v.expected.DIDIssuers {
		if stringsContain(trusted, issuer) {
			return nil
		}
	}

	return api.Failure(api.StatusRejected,
		"the issuer '%s' of the verifiable credential is not a trusted issuer", issuer)
}
