/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did holds the subset of the DID Document data model the verifier
// needs to turn an issuer DID and a JOSE kid into a verification key.
package did

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
)

// Doc is a DID Document (https://www.w3.org/TR/did-core/).
type Doc struct {
	Context            interface{}          `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication     []interface{}        `json:"authentication,omitempty"`
	AssertionMethod    []interface{}        `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`

	// PublicKey is the pre-core name of verificationMethod, still emitted by
	// older resolvers.
	PublicKey []VerificationMethod `json:"publicKey,omitempty"`
}

// VerificationMethod is a public key entry of a DID Document.
type VerificationMethod struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type,omitempty"`
	Controller   string                 `json:"controller,omitempty"`
	PublicKeyJwk map[string]interface{} `json:"publicKeyJwk,omitempty"`
}

// Service is a service endpoint entry of a DID Document.
type Service struct {
	ID              string      `json:"id"`
	Type            string      `json:"type,omitempty"`
	ServiceEndpoint interface{} `json:"serviceEndpoint,omitempty"`
}

// JWKByKeyID returns the public JWK of the verification method matching kid.
// A kid may arrive fully qualified ("did:example:123#key-1") or as the bare
// fragment ("key-1"); both forms match.
func (d *Doc) JWKByKeyID(kid string) (*jose.JSONWebKey, error) {
	fragment := strings.TrimPrefix(kid, d.ID+"#")
	fragment = strings.TrimPrefix(fragment, "#")

	methods := d.VerificationMethod
	if len(methods) == 0 {
		methods = d.PublicKey
	}

	for i := range methods {
		method := &methods[i]

		if method.ID == kid || strings.TrimPrefix(strings.TrimPrefix(method.ID, d.ID+"#"), "#") == fragment {
			return JWKFromMap(method.PublicKeyJwk)
		}
	}

	return nil, fmt.Errorf("no verification method with kid '%s' in DID document %s", kid, d.ID)
}

func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

// JWKFromMap converts a decoded publicKeyJwk (or sub_jwk) object into a JWK.
func JWKFromMap(jwk map[string]interface{}) (*jose.JSONWebKey, error) {
	if len(jwk) == 0 {
		return nil, fmt.Errorf("verification method has no publicKeyJwk")
	}

	data, err := json.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("marshal publicKeyJwk: %w", err)
	}

	key := &jose.JSONWebKey{}

	if err := key.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse publicKeyJwk: %w", err)
	}

	return key, nil
}
