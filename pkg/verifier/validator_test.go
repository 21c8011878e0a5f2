/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/tokentest"
	mockvdr "github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/mock/vdr"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/validator"
)

const (
	audience    = "https://verifier.example.com/api"
	verifierDID = "did:test:verifier"
)

// wallet response fixture: an attestation SIOP carrying one id token, one
// self-issued bundle, and one presentation nesting one credential.
type fixture struct {
	wallet   *tokentest.Identity
	issuer   *tokentest.Identity
	resolver did.Resolver

	opServer *httptest.Server
	op       *tokentest.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		wallet: tokentest.NewIdentity("did:test:user"),
		issuer: tokentest.NewIdentity("did:test:issuer"),
		op:     tokentest.NewIdentity("https://op.example.com"),
	}

	f.resolver = mockvdr.New(f.wallet.DIDDoc(), f.issuer.DIDDoc())

	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]string{
			"issuer":   "https://op.example.com",
			"jwks_uri": f.opServer.URL + "/keys",
		}))
	})

	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{*f.op.PublicJWK()}}))
	})

	f.opServer = httptest.NewServer(mux)
	t.Cleanup(f.opServer.Close)

	return f
}

func (f *fixture) configurationURL() string {
	return f.opServer.URL + "/.well-known/openid-configuration"
}

func (f *fixture) idToken() string {
	return f.op.Sign(map[string]interface{}{
		"iss": "https://op.example.com",
		"aud": audience,
		"sub": "jules@example.com",
		"exp": float64(time.Now().Add(10 * time.Minute).Unix()),
	})
}

func (f *fixture) credential(statusURL string) string {
	vc := map[string]interface{}{
		"credentialSubject": map[string]interface{}{"givenName": "Jules"},
	}

	if statusURL != "" {
		vc["credentialStatus"] = map[string]interface{}{"id": statusURL}
	}

	return f.issuer.Sign(map[string]interface{}{
		"iss": f.issuer.DID,
		"aud": f.wallet.DID,
		"jti": "urn:cred:1",
		"exp": float64(time.Now().Add(10 * time.Minute).Unix()),
		"vc":  vc,
	})
}

func (f *fixture) presentation(credentials ...string) string {
	rawList := make([]interface{}, 0, len(credentials))
	for _, credential := range credentials {
		rawList = append(rawList, credential)
	}

	return f.wallet.Sign(map[string]interface{}{
		"iss": f.wallet.DID,
		"aud": verifierDID,
		"exp": float64(time.Now().Add(10 * time.Minute).Unix()),
		"vp":  map[string]interface{}{"verifiableCredential": rawList},
	})
}

func (f *fixture) siop(attestations map[string]interface{}) string {
	return f.wallet.Sign(map[string]interface{}{
		"iss":          token.SelfIssuedIssuer,
		"aud":          audience,
		"did":          f.wallet.DID,
		"sub":          f.wallet.Thumbprint(),
		"sub_jwk":      f.wallet.PublicJWKMap(),
		"nonce":        "n-123",
		"state":        "s-456",
		"jti":          "urn:siop:1",
		"exp":          float64(time.Now().Add(10 * time.Minute).Unix()),
		"attestations": attestations,
	})
}

func (f *fixture) presentationExchangeSIOP(extra map[string]interface{}) string {
	claims := map[string]interface{}{
		"iss":     token.SelfIssuedIssuer,
		"aud":     audience,
		"did":     f.wallet.DID,
		"sub":     f.wallet.Thumbprint(),
		"sub_jwk": f.wallet.PublicJWKMap(),
		"nonce":   "n-123",
		"state":   "s-456",
		"jti":     "urn:siop:1",
		"exp":     float64(time.Now().Add(10 * time.Minute).Unix()),
	}

	for k, v := range extra {
		claims[k] = v
	}

	return f.wallet.Sign(claims)
}

func (f *fixture) builderOpts(siopType token.Type) []verifier.BuilderOpt {
	siopExpected := api.Expected{Type: siopType, Audience: audience, Nonce: "n-123", State: "s-456"}

	return []verifier.BuilderOpt{
		verifier.WithDidResolver(f.resolver),
		verifier.WithTokenValidator(validator.NewSIOPValidator(siopType, siopExpected,
			validator.WithDidResolver(f.resolver))),
		verifier.WithTokenValidator(validator.NewIDTokenValidator(api.Expected{
			Type:          token.TypeIDToken,
			Audience:      audience,
			Issuers:       []string{"contoso"},
			Configuration: map[string]string{"contoso": f.configurationURL()},
		})),
		verifier.WithTokenValidator(validator.NewSelfIssuedValidator(api.Expected{Type: token.TypeSelfIssued})),
		verifier.WithTokenValidator(validator.NewVerifiablePresentationValidator(api.Expected{
			Type:        token.TypeVerifiablePresentation,
			DIDAudience: verifierDID,
		}, validator.WithDidResolver(f.resolver))),
		verifier.WithTokenValidator(validator.NewVerifiableCredentialValidator(api.Expected{
			Type:       token.TypeVerifiableCredential,
			DIDIssuers: map[string][]string{"drivers-license": {f.issuer.DID}},
		}, validator.WithDidResolver(f.resolver))),
	}
}

func TestValidateAttestationSIOP(t *testing.T) {
	f := newFixture(t)

	raw := f.siop(map[string]interface{}{
		"idTokens":   map[string]interface{}{f.configurationURL(): f.idToken()},
		"selfIssued": map[string]interface{}{"name": "jules"},
		"presentations": map[string]interface{}{
			"VerifiableCredential": f.presentation(f.credential("")),
		},
	})

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationAttestation)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.True(t, response.Result, response.DetailedError)
	require.Equal(t, api.StatusOK, response.Status)

	result := response.ValidationResult
	require.NotNil(t, result)
	require.Equal(t, "did:test:user", result.DID)
	require.Equal(t, "urn:siop:1", result.SiopJTI)
	require.NotNil(t, result.SIOP)

	require.Len(t, result.IDTokens, 1)

	require.NotNil(t, result.SelfIssued)
	require.Equal(t, "jules", result.SelfIssued.StringClaim("name"))

	require.Len(t, result.VerifiablePresentations, 1)
	require.Contains(t, result.VerifiablePresentations, "VerifiableCredential")

	require.Len(t, result.VerifiableCredentials, 1)

	credential := result.VerifiableCredentials["VerifiableCredential"]
	require.NotNil(t, credential)

	vc, ok := credential.Payload()["vc"].(map[string]interface{})
	require.True(t, ok)

	subject, ok := vc["credentialSubject"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Jules", subject["givenName"])
}

func TestValidateSIOPNotRecognized(t *testing.T) {
	f := newFixture(t)

	// a presentation-exchange SIOP stripped of its presentation_submission
	raw := f.presentationExchangeSIOP(nil)

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationExchange)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Equal(t, "SIOP was not recognized.", response.DetailedError)
}

func TestValidateDescriptorPathDoesNotResolve(t *testing.T) {
	f := newFixture(t)

	raw := f.presentationExchangeSIOP(map[string]interface{}{
		"presentation_submission": map[string]interface{}{
			"descriptor_map": []interface{}{
				map[string]interface{}{"id": "IdentityCard", "path": "$.tokens.presentations"},
			},
		},
	})

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationExchange)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Contains(t, response.DetailedError, "IdentityCard")
	require.Contains(t, response.DetailedError, "did not return")
}

func TestValidateDescriptorWithoutPath(t *testing.T) {
	f := newFixture(t)

	raw := f.presentationExchangeSIOP(map[string]interface{}{
		"presentation_submission": map[string]interface{}{
			"descriptor_map": []interface{}{
				map[string]interface{}{"id": "IdentityCard"},
			},
		},
	})

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationExchange)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Regexp(t, `No path property found\.$`, response.DetailedError)
}

func TestValidateMissingCredentialValidator(t *testing.T) {
	f := newFixture(t)

	raw := f.siop(map[string]interface{}{
		"presentations": map[string]interface{}{
			"VerifiableCredential": f.presentation(f.credential("")),
		},
	})

	siopExpected := api.Expected{
		Type: token.TypeSIOPPresentationAttestation, Audience: audience, Nonce: "n-123", State: "s-456",
	}

	v, err := verifier.NewValidatorBuilder(
		verifier.WithDidResolver(f.resolver),
		verifier.WithTokenValidator(validator.NewSIOPValidator(token.TypeSIOPPresentationAttestation, siopExpected)),
		verifier.WithTokenValidator(validator.NewVerifiablePresentationValidator(api.Expected{
			Type:        token.TypeVerifiablePresentation,
			DIDAudience: verifierDID,
		}, validator.WithDidResolver(f.resolver))),
	).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Equal(t, api.StatusMisconfigured, response.Status)
	require.Equal(t, "verifiableCredential does not has a TokenValidator", response.DetailedError)
}

func TestValidateRejectsExtraSIOP(t *testing.T) {
	f := newFixture(t)

	nested := f.wallet.Sign(map[string]interface{}{
		"iss":      token.SelfIssuedIssuer,
		"aud":      audience,
		"did":      f.wallet.DID,
		"sub_jwk":  f.wallet.PublicJWKMap(),
		"contract": "https://issuer.example.com/contracts/drivers-license",
		"exp":      float64(time.Now().Add(10 * time.Minute).Unix()),
	})

	raw := f.siop(map[string]interface{}{
		"presentations": map[string]interface{}{"Nested": nested},
	})

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationAttestation)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Equal(t, api.StatusRejected, response.Status)
	require.Contains(t, response.DetailedError, "only one SIOP")
}

func TestValidateTamperedNestedSignatureFailsTheRun(t *testing.T) {
	f := newFixture(t)

	vc := f.credential("")
	tampered := vc[:len(vc)-4] + "DDDD"

	raw := f.siop(map[string]interface{}{
		"presentations": map[string]interface{}{
			"VerifiableCredential": f.presentation(tampered),
		},
	})

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationAttestation)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), raw)
	require.False(t, response.Result)
	require.Equal(t, api.StatusRejected, response.Status)
	require.Contains(t, response.DetailedError, "could not verify the verifiable credential signature")
}

func TestValidateMalformedRoot(t *testing.T) {
	f := newFixture(t)

	v, err := verifier.NewValidatorBuilder(f.builderOpts(token.TypeSIOPPresentationAttestation)...).Build()
	require.NoError(t, err)

	response := v.Validate(context.Background(), "garbage")
	require.False(t, response.Result)
	require.Equal(t, api.StatusMalformed, response.Status)
}

func TestBuilder(t *testing.T) {
	t.Run("no validators", func(t *testing.T) {
		_, err := verifier.NewValidatorBuilder().Build()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no token validators")
	})

	t.Run("status check requires crypto", func(t *testing.T) {
		f := newFixture(t)

		opts := append(f.builderOpts(token.TypeSIOPPresentationAttestation),
			verifier.WithVerifiableCredentialsStatusCheck(true))

		_, err := verifier.NewValidatorBuilder(opts...).Build()
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires a crypto provider")
	})

	t.Run("trusted issuers derive a default credential validator", func(t *testing.T) {
		f := newFixture(t)

		raw := f.siop(map[string]interface{}{
			"presentations": map[string]interface{}{
				"VerifiableCredential": f.presentation(f.credential("")),
			},
		})

		siopExpected := api.Expected{
			Type: token.TypeSIOPPresentationAttestation, Audience: audience, Nonce: "n-123", State: "s-456",
		}

		v, err := verifier.NewValidatorBuilder(
			verifier.WithDidResolver(f.resolver),
			verifier.WithTrustedIssuers(map[string][]string{"drivers-license": {f.issuer.DID}}),
			verifier.WithTokenValidator(validator.NewSIOPValidator(token.TypeSIOPPresentationAttestation, siopExpected)),
			verifier.WithTokenValidator(validator.NewVerifiablePresentationValidator(api.Expected{
				Type:        token.TypeVerifiablePresentation,
				DIDAudience: verifierDID,
			}, validator.WithDidResolver(f.resolver))),
		).Build()
		require.NoError(t, err)

		response := v.Validate(context.Background(), raw)
		require.True(t, response.Result, response.DetailedError)
		require.Len(t, response.ValidationResult.VerifiableCredentials, 1)
	})
}
