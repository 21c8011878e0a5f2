/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api defines the types shared between the verifier's orchestrator
// and its per-type token validators.
package api

import (
	"fmt"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
)

// HTTP-like status codes of a ValidationResponse.
const (
	// StatusOK marks a successful validation.
	StatusOK = 200
	// StatusMalformed marks input that could not be decoded or classified.
	StatusMalformed = 400
	// StatusRejected marks a cryptographic or semantic failure.
	StatusRejected = 403
	// StatusMisconfigured marks a missing validator for a known token type.
	StatusMisconfigured = 500
)

// ValidationResponse is the outcome of validating one token, or of a whole
// Validate run.
type ValidationResponse struct {
	// Result is true when validation passed.
	Result bool
	// Status is an HTTP-like code classifying the outcome.
	Status int
	// DetailedError names the first failing condition, human-readable.
	DetailedError string
	// PayloadObject is the decoded claim set of the validated token.
	PayloadObject map[string]interface{}
	// DID is the DID that signed the validated token, when established.
	DID string
	// TokensToValidate lists the nested tokens the validated token fanned
	// out, keyed by their queue ids.
	TokensToValidate map[string]*token.ClaimToken
	// ValidationResult is the aggregate verdict, set only on the response
	// of a whole Validate run.
	ValidationResult *ValidationResult
}

// Ok creates a passing response.
func Ok() *ValidationResponse {
	return &ValidationResponse{Result: true, Status: StatusOK}
}

// Failure creates a failing response with the given status and detail.
func Failure(status int, format string, args ...interface{}) *ValidationResponse {
	return &ValidationResponse{
		Result:        false,
		Status:        status,
		DetailedError: fmt.Sprintf(format, args...),
	}
}
