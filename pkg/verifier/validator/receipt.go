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

// StatusReceiptValidator validates the signed receipt envelope a credential
// status endpoint returns. Every receipt entry must be signed by the
// expected issuer and addressed to the verifier's DID.
type StatusReceiptValidator struct {
	expected api.Expected
	opts     *options
}

// NewStatusReceiptValidator creates a receipt validator. Expected.Issuers
// holds the issuer DID the receipts must be signed by; Expected.DIDAudience
// is the verifier's own DID.
func NewStatusReceiptValidator(expected api.Expected, opts ...Option) *StatusReceiptValidator {
	return &StatusReceiptValidator{expected: expected, opts: newOptions(opts...)}
}

// Type implements api.TokenValidator.
func (v *StatusReceiptValidator) Type() token.Type {
	return token.TypeVerifiablePresentationStatus
}

// Validate implements api.TokenValidator.
func (v *StatusReceiptValidator) Validate(ctx context.Context, _ *api.ValidationQueue,
	item *api.ValidationQueueItem, _, _ string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	_, response := v.ValidateReceipt(ctx, t)

	return response
}

// ValidateReceipt validates every entry of the receipt token and returns the
// per-jti status entries.
func (v *StatusReceiptValidator) ValidateReceipt(ctx context.Context,
	t *token.ClaimToken) (map[string]*api.StatusEntry, *api.ValidationResponse) {
	receipts, err := t.ReceiptTokens()
	if err != nil {
		return nil, api.Failure(api.StatusRejected, "%v", err)
	}

	entries := make(map[string]*api.StatusEntry, len(receipts))

	for _, named := range receipts {
		entry, failure := v.validateEntry(ctx, named)
		if failure != nil {
			return nil, failure
		}

		entries[entry.JTI] = entry
	}

	return entries, &api.ValidationResponse{
		Result:        true,
		Status:        api.StatusOK,
		PayloadObject: t.Payload(),
	}
}

func (v *StatusReceiptValidator) validateEntry(ctx context.Context,
	named token.NamedToken) (*api.StatusEntry, *api.ValidationResponse) {
	receipt := named.Token

	if !receipt.IsSigned() {
		return nil, api.Failure(api.StatusRejected, "receipt '%s' is not signed", named.ID)
	}

	issuer := receipt.StringClaim("iss")

	if len(v.expected.Issuers) > 0 && !stringsContain(v.expected.Issuers, issuer) {
		return nil, api.Failure(api.StatusRejected,
			"the issuer '%s' of receipt '%s' does not match the credential issuer", issuer, named.ID)
	}

	key, err := resolveSigningKey(ctx, v.opts.resolver, issuer, receipt)
	if err != nil {
		return nil, api.Failure(api.StatusRejected, "could not resolve the signing key of receipt '%s': %v",
			named.ID, err)
	}

	if err := verifySignature(receipt.RawToken(), key); err != nil {
		return nil, api.Failure(api.StatusRejected, "could not verify the signature of receipt '%s': %v",
			named.ID, err)
	}

	if v.expected.DIDAudience != "" {
		if err := checkAudience(receipt.Payload(), v.expected.DIDAudience); err != nil {
			return nil, api.Failure(api.StatusRejected, "receipt '%s': %v", named.ID, err)
		}
	}

	if err := checkTimeValidity(receipt.Payload(), v.opts.clockSkew, v.opts.now(), false); err != nil {
		return nil, api.Failure(api.StatusRejected, "receipt '%s': %v", named.ID, err)
	}

	jti := receipt.StringClaim("jti")
	if jti == "" {
		jti = named.ID
	}

	return &api.StatusEntry{
		JTI:     jti,
		Status:  receipt.StringClaim("status"),
		Reason:  receipt.StringClaim("reason"),
		Receipt: receipt,
	}, nil
}
