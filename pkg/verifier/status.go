/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/validator"
)

const statusRequestContentType = "application/jwt"

// statusRequest is the envelope the verifier signs and posts to a
// credential's status endpoint.
type statusRequest struct {
	DID    string           `json:"did"`
	Kid    string           `json:"kid"`
	VP     string           `json:"vp"`
	SubJwk *jose.JSONWebKey `json:"sub_jwk"`
	JTI    string           `json:"jti"`
}

// checkCredentialStatus runs the status-receipt sub-protocol for every
// presentation of the result and merges the per-jti entries.
func (v *Validator) checkCredentialStatus(ctx context.Context,
	result *api.ValidationResult) (map[string]*api.StatusEntry, *api.ValidationResponse) {
	statuses := make(map[string]*api.StatusEntry)

	for _, vpID := range sortedIDs(result.VerifiablePresentations) {
		vp := result.VerifiablePresentations[vpID]

		entries, failure := v.checkPresentationStatus(ctx, vp)
		if failure != nil {
			return nil, failure
		}

		for jti, entry := range entries {
			statuses[jti] = entry
		}
	}

	return statuses, nil
}

func (v *Validator) checkPresentationStatus(ctx context.Context,
	vp *token.ClaimToken) (map[string]*api.StatusEntry, *api.ValidationResponse) {
	entries := make(map[string]*api.StatusEntry)

	credentials, _ := vp.Payload()["vp"].(map[string]interface{})

	rawList, _ := credentials["verifiableCredential"].([]interface{})

	for _, entry := range rawList {
		raw, ok := entry.(string)
		if !ok {
			continue
		}

		vc, err := token.Parse(raw)
		if err != nil {
			return nil, api.Failure(api.StatusRejected, "status check could not parse a presented credential: %v", err)
		}

		statusURL := credentialStatusURL(vc)
		if statusURL == "" {
			continue
		}

		vcEntries, failure := v.fetchStatusReceipt(ctx, vp, vc, statusURL)
		if failure != nil {
			return nil, failure
		}

		for jti, statusEntry := range vcEntries {
			entries[jti] = statusEntry
		}
	}

	return entries, nil
}

func (v *Validator) fetchStatusReceipt(ctx context.Context, vp, vc *token.ClaimToken,
	statusURL string) (map[string]*api.StatusEntry, *api.ValidationResponse) {
	publicJWK, err := v.crypto.PublicJWK()
	if err != nil {
		return nil, api.Failure(api.StatusMisconfigured, "status check could not load the verifier key: %v", err)
	}

	envelope := statusRequest{
		DID:    v.crypto.DID(),
		Kid:    v.crypto.SigningKeyID(),
		VP:     vp.RawToken(),
		SubJwk: publicJWK,
		JTI:    uuid.NewString(),
	}

	jws, err := v.crypto.SignPayload(envelope)
	if err != nil {
		return nil, api.Failure(api.StatusMisconfigured, "status check could not sign the status request: %v", err)
	}

	logger.Debugf("posting status request to %s", statusURL)

	body, err := v.httpClient.Post(ctx, statusURL, statusRequestContentType, []byte(jws))
	if err != nil {
		return nil, api.Failure(api.StatusRejected, "status check could not fetch response from %s", statusURL)
	}

	var responseBody map[string]interface{}

	if err := json.Unmarshal(body, &responseBody); err != nil {
		return nil, api.Failure(api.StatusRejected, "status check could not parse response from %s: %v", statusURL, err)
	}

	receiptValidator := validator.NewStatusReceiptValidator(api.Expected{
		Type:        token.TypeVerifiablePresentationStatus,
		Issuers:     []string{vc.StringClaim("iss")},
		DIDAudience: v.crypto.DID(),
	}, validator.WithDidResolver(v.resolver), validator.WithHTTPClient(v.httpClient))

	entries, response := receiptValidator.ValidateReceipt(ctx, token.NewStatusReceipt(responseBody))
	if !response.Result {
		return nil, response
	}

	return entries, nil
}

// credentialStatusURL returns vc.credentialStatus.id when the credential
// exposes a status endpoint.
func credentialStatusURL(vc *token.ClaimToken) string {
	credential, _ := vc.Payload()["vc"].(map[string]interface{})

	status, _ := credential["credentialStatus"].(map[string]interface{})

	id, _ := status["id"].(string)

	return id
}

func sortedIDs(tokens map[string]*token.ClaimToken) []string {
	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
