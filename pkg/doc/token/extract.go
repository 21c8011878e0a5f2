/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"fmt"
	"sort"

	"github.com/PaesslerAG/jsonpath"
	"github.com/mitchellh/mapstructure"
)

// AttestationSelfIssued is the attestations key reserved for the bundle of
// self-attested claims.
const AttestationSelfIssued = "selfIssued"

// attestationIDTokens is the attestations key whose sub-map is keyed by the
// OpenID Connect configuration URL each id token was collected from.
const attestationIDTokens = "idTokens"

// NamedToken pairs a queue id with the claim token extracted for it.
type NamedToken struct {
	ID    string
	Token *ClaimToken
}

// presentationSubmission mirrors the DIF presentation_submission object
// (https://identity.foundation/presentation-exchange/#presentation-submission).
type presentationSubmission struct {
	DescriptorMap []descriptorMapping `mapstructure:"descriptor_map"`
}

// descriptorMapping maps an input descriptor id to the JSON-path location of
// its token inside the SIOP payload.
type descriptorMapping struct {
	ID       string `mapstructure:"id"`
	Path     string `mapstructure:"path"`
	Format   string `mapstructure:"format"`
	Encoding string `mapstructure:"encoding"`
}

// AttestationTokens extracts the nested tokens of a SIOP attestation
// response. The reserved selfIssued key wraps its claims directly; every
// other key holds a {childID: rawToken} map whose entries are classified
// individually. Keys are walked in sorted order so extraction is
// deterministic.
func (t *ClaimToken) AttestationTokens() ([]NamedToken, error) {
	attestations, ok := t.payload["attestations"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("attestations claim is missing from the SIOP payload")
	}

	var tokens []NamedToken

	for _, key := range sortedKeys(attestations) {
		if key == AttestationSelfIssued {
			claims, ok := attestations[key].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("attestation '%s' is not an object", key)
			}

			tokens = append(tokens, NamedToken{ID: AttestationSelfIssued, Token: NewSelfIssued(claims)})

			continue
		}

		children, ok := attestations[key].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("attestation '%s' is not an object", key)
		}

		for _, childID := range sortedKeys(children) {
			raw, ok := children[childID].(string)
			if !ok {
				return nil, fmt.Errorf("attestation '%s' entry '%s' is not a token string", key, childID)
			}

			var opts []ParseOpt
			if key == attestationIDTokens {
				opts = append(opts, WithConfigurationURL(childID))
			}

			child, err := Parse(raw, opts...)
			if err != nil {
				return nil, fmt.Errorf("parse attestation '%s' entry '%s': %w", key, childID, err)
			}

			tokens = append(tokens, NamedToken{ID: childID, Token: child})
		}
	}

	return tokens, nil
}

// PresentationExchangeTokens extracts the nested tokens referenced by the
// descriptor_map of a SIOP presentation exchange response. Each descriptor's
// path is resolved as a JSON-path query against the full payload and must
// yield exactly one token string.
func (t *ClaimToken) PresentationExchangeTokens() ([]NamedToken, error) {
	rawSubmission, ok := t.payload["presentation_submission"]
	if !ok {
		return nil, ErrSIOPNotRecognized
	}

	var submission presentationSubmission

	if err := mapstructure.Decode(rawSubmission, &submission); err != nil {
		return nil, fmt.Errorf("decode presentation_submission: %w", err)
	}

	var tokens []NamedToken

	for _, descriptor := range submission.DescriptorMap {
		if descriptor.ID == "" {
			return nil, fmt.Errorf("a descriptor_map entry has no id property")
		}

		if descriptor.Path == "" {
			return nil, fmt.Errorf("the descriptor_map entry with id '%s' is malformed. No path property found.",
				descriptor.ID)
		}

		raw, err := t.resolveDescriptorPath(descriptor)
		if err != nil {
			return nil, err
		}

		child, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse token of descriptor_map entry with id '%s': %w", descriptor.ID, err)
		}

		tokens = append(tokens, NamedToken{ID: descriptor.ID, Token: child})
	}

	return tokens, nil
}

// ReceiptTokens extracts and classifies every entry of the receipt map
// carried by a credential status response.
func (t *ClaimToken) ReceiptTokens() ([]NamedToken, error) {
	receipt, ok := t.payload["receipt"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("receipt claim is missing from the status response")
	}

	var tokens []NamedToken

	for _, id := range sortedKeys(receipt) {
		raw, ok := receipt[id].(string)
		if !ok {
			return nil, fmt.Errorf("receipt entry '%s' is not a token string", id)
		}

		child, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse receipt entry '%s': %w", id, err)
		}

		tokens = append(tokens, NamedToken{ID: id, Token: child})
	}

	return tokens, nil
}

func (t *ClaimToken) resolveDescriptorPath(descriptor descriptorMapping) (string, error) {
	result, err := jsonpath.Get(descriptor.Path, interface{}(t.payload))
	if err != nil {
		return "", fmt.Errorf("the path '%s' of descriptor_map entry with id '%s' did not return a token",
			descriptor.Path, descriptor.ID)
	}

	switch matched := result.(type) {
	case string:
		return matched, nil
	case []interface{}:
		if len(matched) == 0 {
			return "", fmt.Errorf("the path '%s' of descriptor_map entry with id '%s' did not return a token",
				descriptor.Path, descriptor.ID)
		}

		if len(matched) > 1 {
			return "", fmt.Errorf(
				"the path '%s' of descriptor_map entry with id '%s' did not return a single token: %d tokens matched",
				descriptor.Path, descriptor.ID, len(matched))
		}

		raw, ok := matched[0].(string)
		if !ok {
			return "", fmt.Errorf("the path '%s' of descriptor_map entry with id '%s' did not return a token",
				descriptor.Path, descriptor.ID)
		}

		return raw, nil
	default:
		return "", fmt.Errorf("the path '%s' of descriptor_map entry with id '%s' did not return a token",
			descriptor.Path, descriptor.ID)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
