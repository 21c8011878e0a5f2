/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package token implements decoding and classification of the claim tokens
// a Self-Issued OpenID Provider (SIOP) response is made of: the outer SIOP
// envelope, OpenID Connect id tokens, self-issued claim bundles, verifiable
// credentials, verifiable presentations and credential status receipts.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SelfIssuedIssuer is the iss value reserved for self-issued OpenID providers.
const SelfIssuedIssuer = "https://self-issued.me"

// Type discriminates the supported claim token classes.
type Type string

const (
	// TypeSelfIssued is a bundle of claims attested by the user themselves.
	TypeSelfIssued Type = "selfIssued"
	// TypeIDToken is an OpenID Connect id token from an external provider.
	TypeIDToken Type = "idToken"
	// TypeSIOPIssuance is a SIOP response asking for credential issuance.
	TypeSIOPIssuance Type = "siopIssuance"
	// TypeSIOPPresentationAttestation is a SIOP response carrying attestations.
	TypeSIOPPresentationAttestation Type = "siopPresentationAttestation"
	// TypeSIOPPresentationExchange is a SIOP response carrying a DIF
	// presentation submission.
	TypeSIOPPresentationExchange Type = "siopPresentationExchange"
	// TypeVerifiableCredential is a W3C verifiable credential in JWT form.
	TypeVerifiableCredential Type = "verifiableCredential"
	// TypeVerifiablePresentation is a W3C verifiable presentation in JWT form.
	TypeVerifiablePresentation Type = "verifiablePresentation"
	// TypeVerifiablePresentationStatus is a signed status receipt envelope.
	TypeVerifiablePresentationStatus Type = "verifiablePresentationStatus"

	// TypeSIOP is a legacy alias kept for callers of the original SDK, where
	// "siop" and "siopIssuance" were used interchangeably.
	TypeSIOP = TypeSIOPIssuance
)

// IsSIOP reports whether t is one of the SIOP envelope flavors.
func (t Type) IsSIOP() bool {
	return t == TypeSIOPIssuance || t == TypeSIOPPresentationAttestation ||
		t == TypeSIOPPresentationExchange
}

// ErrSIOPNotRecognized is returned when a token claims the self-issued iss
// but matches none of the known SIOP payload shapes.
var ErrSIOPNotRecognized = errors.New("SIOP was not recognized.") //nolint:revive,stylecheck // legacy wire-visible message

// ClaimToken is a decoded and classified claim token. It is immutable after
// construction.
type ClaimToken struct {
	tokenType        Type
	rawToken         string
	header           map[string]interface{}
	payload          map[string]interface{}
	configurationURL string
	signed           bool
}

// ParseOpt is a ClaimToken parsing option.
type ParseOpt func(t *ClaimToken)

// WithConfigurationURL records the OpenID Connect configuration URL an id
// token was collected for.
func WithConfigurationURL(url string) ParseOpt {
	return func(t *ClaimToken) {
		t.configurationURL = url
	}
}

// Parse decodes a compact JWS and classifies it by payload shape.
func Parse(raw string, opts ...ParseOpt) (*ClaimToken, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, errors.New("token is not in compact JWS format")
	}

	header, err := decodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode token header: %w", err)
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	t := &ClaimToken{
		rawToken: raw,
		header:   header,
		payload:  payload,
		signed:   len(parts) >= 3 && strings.TrimSpace(parts[2]) != "",
	}

	for _, opt := range opts {
		opt(t)
	}

	t.tokenType, err = classify(payload, t.signed)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// NewSelfIssued wraps a bundle of self-attested claims that has no wire form
// of its own (it travels inside the SIOP attestations object).
func NewSelfIssued(claims map[string]interface{}) *ClaimToken {
	raw, _ := json.Marshal(claims)

	return &ClaimToken{
		tokenType: TypeSelfIssued,
		rawToken:  string(raw),
		header:    map[string]interface{}{},
		payload:   claims,
	}
}

// NewStatusReceipt wraps the parsed JSON body returned by a credential
// status endpoint. The payload carries a receipt map of signed tokens.
func NewStatusReceipt(body map[string]interface{}) *ClaimToken {
	raw, _ := json.Marshal(body)

	return &ClaimToken{
		tokenType: TypeVerifiablePresentationStatus,
		rawToken:  string(raw),
		header:    map[string]interface{}{},
		payload:   body,
	}
}

// Type returns the token class established at classification time.
func (t *ClaimToken) Type() Type {
	return t.tokenType
}

// RawToken returns the token exactly as received.
func (t *ClaimToken) RawToken() string {
	return t.rawToken
}

// Header returns the decoded JOSE header.
func (t *ClaimToken) Header() map[string]interface{} {
	return t.header
}

// Payload returns the decoded claim set.
func (t *ClaimToken) Payload() map[string]interface{} {
	return t.payload
}

// ConfigurationURL returns the OpenID Connect configuration URL associated
// with an id token, if any.
func (t *ClaimToken) ConfigurationURL() string {
	return t.configurationURL
}

// IsSigned reports whether the compact JWS carried a non-blank signature.
func (t *ClaimToken) IsSigned() bool {
	return t.signed
}

// StringClaim returns the named payload claim if it is a string.
func (t *ClaimToken) StringClaim(name string) string {
	if v, ok := t.payload[name].(string); ok {
		return v
	}

	return ""
}

func classify(payload map[string]interface{}, signed bool) (Type, error) {
	if iss, _ := payload["iss"].(string); iss == SelfIssuedIssuer {
		switch {
		case payload["contract"] != nil:
			return TypeSIOPIssuance, nil
		case payload["presentation_submission"] != nil:
			return TypeSIOPPresentationExchange, nil
		case payload["attestations"] != nil:
			return TypeSIOPPresentationAttestation, nil
		default:
			return "", ErrSIOPNotRecognized
		}
	}

	if payload["vc"] != nil {
		return TypeVerifiableCredential, nil
	}

	if payload["vp"] != nil {
		return TypeVerifiablePresentation, nil
	}

	if signed {
		return TypeIDToken, nil
	}

	return TypeSelfIssued, nil
}

func decodeSegment(segment string) (map[string]interface{}, error) {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}

	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return m, nil
}
