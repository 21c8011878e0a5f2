/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"

	"github.com/xeipuuv/gojsonschema"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

// SelfIssuedValidator validates self-attested claim bundles. They carry no
// signature; the check is structural, optionally against a configured JSON
// schema.
type SelfIssuedValidator struct {
	expected api.Expected
	opts     *options
}

// NewSelfIssuedValidator creates a self-issued validator.
func NewSelfIssuedValidator(expected api.Expected, opts ...Option) *SelfIssuedValidator {
	return &SelfIssuedValidator{expected: expected, opts: newOptions(opts...)}
}

// Type implements api.TokenValidator.
func (v *SelfIssuedValidator) Type() token.Type {
	return token.TypeSelfIssued
}

// Validate implements api.TokenValidator.
func (v *SelfIssuedValidator) Validate(_ context.Context, _ *api.ValidationQueue, item *api.ValidationQueueItem,
	_, _ string) *api.ValidationResponse {
	t, failure := claimTokenOf(item)
	if failure != nil {
		return failure
	}

	payload := t.Payload()

	if len(payload) == 0 {
		return api.Failure(api.StatusRejected, "the self-issued token carries no claims")
	}

	if len(v.expected.SelfIssuedSchema) > 0 {
		result, err := gojsonschema.Validate(
			gojsonschema.NewBytesLoader(v.expected.SelfIssuedSchema),
			gojsonschema.NewGoLoader(payload))
		if err != nil {
			return api.Failure(api.StatusRejected, "could not validate the self-issued claims: %v", err)
		}

		if !result.Valid() {
			return api.Failure(api.StatusRejected,
				"the self-issued claims do not satisfy the configured schema: %s", result.Errors()[0])
		}
	}

	return &api.ValidationResponse{
		Result:        true,
		Status:        api.StatusOK,
		PayloadObject: payload,
	}
}
