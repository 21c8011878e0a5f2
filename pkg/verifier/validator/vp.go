/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"
	"fmt"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

// VerifiablePresentationValidator validates W3C verifiable presentations in
// JWT form: holder signature, subject-DID continuity with the SIOP, and
// fan-out of the presented credentials onto the queue.
type VerifiablePresentationValidator struct {
	expected api.Expected
	opts     *options
}

// NewVerifiablePresentationValidator creates a presentation validator.
func NewVerifiablePresentationValidator(expected api.Expected, opts ...Option) *VerifiablePresentationValidator {
	return &VerifiablePresentationValidator{expected: expected, opts: newOptions(opts...)}
}

// Type implements api.TokenValidator.
func (v *VerifiablePresentationValidator) Type() token.Type {
	return token.TypeVerifiablePresentation
}

// Validate implements api.TokenValidator.
func (v *VerifiablePresentationValidator) Validate(ctx context.Context, queue *api.ValidationQueue,
	item *api.ValidationQueueItem, siopDID, _ string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	payload := t.Payload()

	holder := t.StringClaim("iss")
	if holder == "" {
		return api.Failure(api.StatusRejected, "the verifiable presentation has no iss claim")
	}

	if siopDID != "" && holder != siopDID {
		return api.Failure(api.StatusRejected,
			"The DID used for the SIOP %s is not equal to the DID used for the verifiable presentation %s",
			siopDID, holder)
	}

	key, err := resolveSigningKey(ctx, v.opts.resolver, holder, t)
	if err != nil {
		return api.Failure(api.StatusRejected, "could not resolve the verifiable presentation signing key: %v", err)
	}

	if err := verifySignature(t.RawToken(), key); err != nil {
		return api.Failure(api.StatusRejected, "could not verify the verifiable presentation signature: %v", err)
	}

	if v.expected.DIDAudience != "" {
		if err := checkAudience(payload, v.expected.DIDAudience); err != nil {
			return api.Failure(api.StatusRejected, "%v", err)
		}
	}

	if err := checkTimeValidity(payload, v.opts.clockSkew, v.opts.now(), false); err != nil {
		return api.Failure(api.StatusRejected, "%v", err)
	}

	credentials, failure := presentedCredentials(t)
	if failure != nil {
		return failure
	}

	toValidate := make(map[string]*token.ClaimToken, len(credentials))

	for i, raw := range credentials {
		id := item.ID()
		if len(credentials) > 1 {
			id = fmt.Sprintf("%s-%d", item.ID(), i)
		}

		child, err := token.Parse(raw)
		if err != nil {
			return api.Failure(api.StatusRejected, "parse credential %d of verifiable presentation '%s': %v",
				i, item.ID(), err)
		}

		queue.EnqueueItem(id, child)
		toValidate[id] = child
	}

	logger.Debugf("verifiable presentation '%s' validated, %d credential(s) enqueued", item.ID(), len(credentials))

	return &api.ValidationResponse{
		Result:           true,
		Status:           api.StatusOK,
		DID:              holder,
		PayloadObject:    payload,
		TokensToValidate: toValidate,
	}
}

// presentedCredentials reads vp.verifiableCredential, an array of raw
// credential tokens. An empty array is accepted and yields no credentials.
func presentedCredentials(t *token.ClaimToken) ([]string, *api.ValidationResponse) {
	vp, ok := t.Payload()["vp"].(map[string]interface{})
	if !ok {
		return nil, api.Failure(api.StatusRejected, "the verifiable presentation has no vp claim")
	}

	rawList, ok := vp["verifiableCredential"].([]interface{})
	if !ok {
		return nil, api.Failure(api.StatusRejected,
			"the verifiable presentation carries no verifiableCredential array")
	}

	credentials := make([]string, 0, len(rawList))

	for i, entry := range rawList {
		raw, ok := entry.(string)
		if !ok {
			return nil, api.Failure(api.StatusRejected,
				"credential %d of the verifiable presentation is not a token string", i)
		}

		credentials = append(credentials, raw)
	}

	return credentials, nil
}
