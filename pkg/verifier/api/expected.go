/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"encoding/json"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
)

// Expected carries the caller-supplied values a token class is validated
// against. Fields beyond Type and Audience apply only to some types.
type Expected struct {
	// Type names the token class this expectation applies to.
	Type token.Type
	// Audience the token's aud claim must equal.
	Audience string

	// Nonce the SIOP must echo bitwise, when set.
	Nonce string
	// State the SIOP must echo bitwise, when set.
	State string

	// Issuers is the allow-list of id token issuers.
	Issuers []string
	// Configuration maps issuer names to their OpenID Connect configuration
	// URLs.
	Configuration map[string]string

	// DIDIssuers maps a contract id to the DIDs trusted to issue
	// credentials for it.
	DIDIssuers map[string][]string
	// DIDAudience is the DID credentials must be addressed to.
	DIDAudience string

	// SelfIssuedSchema optionally holds a JSON schema self-issued claim
	// bundles must satisfy.
	SelfIssuedSchema json.RawMessage
}
