/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
)

// ValidationResult is the structured verdict of a successful Validate run.
type ValidationResult struct {
	// DID of the wallet that produced the SIOP (falls back to the audience
	// DID of a contained credential).
	DID string
	// Contract is the issuance contract URL carried by the SIOP, if any.
	Contract string
	// SiopJTI is the jti of the SIOP token.
	SiopJTI string
	// SIOP is the validated outer envelope.
	SIOP *token.ClaimToken
	// SelfIssued is the self-attested claim bundle, if present.
	SelfIssued *token.ClaimToken
	// IDTokens holds validated id tokens keyed by queue item id.
	IDTokens map[string]*token.ClaimToken
	// VerifiableCredentials holds validated credentials keyed by item id.
	VerifiableCredentials map[string]*token.ClaimToken
	// VerifiablePresentations holds validated presentations keyed by item id.
	VerifiablePresentations map[string]*token.ClaimToken
	// VerifiablePresentationStatus holds status receipts keyed by the jti of
	// the credential they attest, populated when the status check ran.
	VerifiablePresentationStatus map[string]*StatusEntry
}

// StatusEntry is one credential's entry of a validated status receipt.
type StatusEntry struct {
	// JTI of the credential the receipt attests.
	JTI string
	// Status reported by the issuer, e.g. "valid" or "revoked".
	Status string
	// Reason optionally explains the status.
	Reason string
	// Receipt is the validated receipt token.
	Receipt *token.ClaimToken
}
