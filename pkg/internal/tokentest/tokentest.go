/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tokentest builds signed test tokens: DID identities with ed25519
// keys, their DID documents, and compact JWS serializations of arbitrary
// claim sets.
package tokentest

import (
	gocrypto "crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
)

// Identity is a test DID with an ed25519 signing key.
type Identity struct {
	DID     string
	KeyID   string
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// NewIdentity generates a fresh identity for didID. It panics on entropy
// failure, which only happens in broken test environments.
func NewIdentity(didID string) *Identity {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("generate ed25519 key: %v", err))
	}

	return &Identity{DID: didID, KeyID: "key-1", Private: private, Public: public}
}

// FullKeyID returns the fully qualified kid of the identity's key.
func (i *Identity) FullKeyID() string {
	return i.DID + "#" + i.KeyID
}

// PublicJWK returns the public signing key as a JWK.
func (i *Identity) PublicJWK() *jose.JSONWebKey {
	return &jose.JSONWebKey{Key: i.Public, KeyID: i.FullKeyID(), Algorithm: string(jose.EdDSA)}
}

// PrivateJWK returns the private signing key as a JWK.
func (i *Identity) PrivateJWK() *jose.JSONWebKey {
	return &jose.JSONWebKey{Key: i.Private, KeyID: i.FullKeyID(), Algorithm: string(jose.EdDSA)}
}

// PublicJWKMap returns the public key as a decoded JWK object, the form it
// takes inside DID documents and sub_jwk claims.
func (i *Identity) PublicJWKMap() map[string]interface{} {
	data, err := i.PublicJWK().MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("marshal JWK: %v", err))
	}

	var m map[string]interface{}

	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("unmarshal JWK: %v", err))
	}

	return m
}

// Thumbprint returns the base64url RFC 7638 SHA-256 thumbprint of the
// public key.
func (i *Identity) Thumbprint() string {
	thumbprint, err := i.PublicJWK().Thumbprint(gocrypto.SHA256)
	if err != nil {
		panic(fmt.Sprintf("compute thumbprint: %v", err))
	}

	return base64.RawURLEncoding.EncodeToString(thumbprint)
}

// DIDDoc returns a DID document exposing the identity's public key.
func (i *Identity) DIDDoc() *did.Doc {
	return &did.Doc{
		ID: i.DID,
		VerificationMethod: []did.VerificationMethod{{
			ID:           i.FullKeyID(),
			Type:         "JsonWebKey2020",
			Controller:   i.DID,
			PublicKeyJwk: i.PublicJWKMap(),
		}},
	}
}

// Sign serializes claims as a compact JWS signed with the identity's key,
// with its fully qualified kid in the protected header.
func (i *Identity) Sign(claims map[string]interface{}) string {
	return i.SignWithKid(claims, i.FullKeyID())
}

// SignWithKid signs claims with an explicit kid header value.
func (i *Identity) SignWithKid(claims map[string]interface{}, kid string) string {
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(fmt.Sprintf("marshal claims: %v", err))
	}

	signerOpts := (&jose.SignerOptions{}).WithType("JWT").WithHeader(jose.HeaderKey("kid"), kid)

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: i.Private}, signerOpts)
	if err != nil {
		panic(fmt.Sprintf("create signer: %v", err))
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		panic(fmt.Sprintf("sign claims: %v", err))
	}

	serialized, err := jws.CompactSerialize()
	if err != nil {
		panic(fmt.Sprintf("serialize JWS: %v", err))
	}

	return serialized
}

// UnsignedToken serializes claims as an unsigned compact token
// (header.payload. with a blank signature segment).
func UnsignedToken(claims map[string]interface{}) string {
	header, err := json.Marshal(map[string]interface{}{"alg": "none"})
	if err != nil {
		panic(fmt.Sprintf("marshal header: %v", err))
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		panic(fmt.Sprintf("marshal claims: %v", err))
	}

	return base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}
