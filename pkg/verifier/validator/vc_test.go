/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/tokentest"
	mockvdr "github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/mock/vdr"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/validator"
)

func credentialClaims(issuer *tokentest.Identity, subjectDID string) map[string]interface{} {
	return map[string]interface{}{
		"iss": issuer.DID,
		"aud": subjectDID,
		"jti": "urn:cred:1",
		"exp": float64(time.Now().Add(10 * time.Minute).Unix()),
		"vc": map[string]interface{}{
			"credentialSubject": map[string]interface{}{"givenName": "Jules"},
		},
	}
}

func TestVerifiableCredentialValidator(t *testing.T) {
	issuer := tokentest.NewIdentity("did:test:issuer")

	expected := api.Expected{
		Type:       token.TypeVerifiableCredential,
		DIDIssuers: map[string][]string{"drivers-license": {issuer.DID}},
	}

	v := validator.NewVerifiableCredentialValidator(expected,
		validator.WithDidResolver(mockvdr.New(issuer.DIDDoc())))

	t.Run("valid credential under a known contract", func(t *testing.T) {
		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", issuer.Sign(credentialClaims(issuer, "did:test:user")))

		response := v.Validate(context.Background(), queue, item, "did:test:user", "drivers-license")
		require.True(t, response.Result, response.DetailedError)
		require.Equal(t, issuer.DID, response.DID)
	})

	t.Run("valid credential without contract context uses the union of trusted sets", func(t *testing.T) {
		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", issuer.Sign(credentialClaims(issuer, "did:test:user")))

		response := v.Validate(context.Background(), queue, item, "did:test:user", "")
		require.True(t, response.Result, response.DetailedError)
	})

	t.Run("issuer is not trusted for the contract", func(t *testing.T) {
		rogue := tokentest.NewIdentity("did:test:rogue")

		rogueValidator := validator.NewVerifiableCredentialValidator(expected,
			validator.WithDidResolver(mockvdr.New(rogue.DIDDoc())))

		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", rogue.Sign(credentialClaims(rogue, "did:test:user")))

		response := rogueValidator.Validate(context.Background(), queue, item, "did:test:user", "drivers-license")
		require.False(t, response.Result)
		require.Equal(t, api.StatusRejected, response.Status)
		require.Contains(t, response.DetailedError, "did:test:rogue")
		require.Contains(t, response.DetailedError, "not trusted for contract 'drivers-license'")
	})

	t.Run("unknown contract has no trusted set", func(t *testing.T) {
		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", issuer.Sign(credentialClaims(issuer, "did:test:user")))

		response := v.Validate(context.Background(), queue, item, "did:test:user", "passport")
		require.False(t, response.Result)
		require.Contains(t, response.DetailedError, "no trusted issuers are configured for contract 'passport'")
	})

	t.Run("audience must match the SIOP DID", func(t *testing.T) {
		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", issuer.Sign(credentialClaims(issuer, "did:test:other")))

		response := v.Validate(context.Background(), queue, item, "did:test:user", "drivers-license")
		require.False(t, response.Result)
		require.Contains(t, response.DetailedError, "did:test:user")
		require.Contains(t, response.DetailedError, "did:test:other")
	})

	t.Run("tampered signature", func(t *testing.T) {
		raw := issuer.Sign(credentialClaims(issuer, "did:test:user"))
		tampered := raw[:len(raw)-4] + "BBBB"

		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", tampered)

		response := v.Validate(context.Background(), queue, item, "did:test:user", "drivers-license")
		require.False(t, response.Result)
		require.Contains(t, response.DetailedError, "could not verify the verifiable credential signature")
	})

	t.Run("missing iss claim", func(t *testing.T) {
		claims := credentialClaims(issuer, "did:test:user")
		delete(claims, "iss")

		queue := api.NewValidationQueue()
		item := enqueueRaw(t, queue, "VerifiableCredential", issuer.Sign(claims))

		response := v.Validate(context.Background(), queue, item, "did:test:user", "drivers-license")
		require.False(t, response.Result)
		require.Contains(t, response.DetailedError, "no iss claim")
	})
}
