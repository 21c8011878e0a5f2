/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"context"
	"net/url"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/crypto"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/did"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/internal/httputil"
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/verifier/api"
)

var logger = log.New("vc-verification/verifier")

// RootTokenID is the queue id of the outer SIOP token.
const RootTokenID = "siop"

// Validator validates a raw SIOP response end to end. It holds a read-only
// configuration and may be shared by concurrent callers; every Validate call
// owns its queue.
type Validator struct {
	crypto             *crypto.Provider
	resolver           did.Resolver
	validators         map[token.Type]api.TokenValidator
	trustedIssuers     map[string][]string
	statusCheckEnabled bool
	httpClient         *httputil.Client
}

// Validate runs the raw SIOP token and every token nested inside it through
// the registered validators and returns a single verdict. The first failure
// terminates the run and is surfaced verbatim.
func (v *Validator) Validate(ctx context.Context, rawSIOP string) *api.ValidationResponse {
	queue := api.NewValidationQueue()
	queue.EnqueueToken(RootTokenID, rawSIOP)

	var (
		siopDID        string
		siopContractID string
		siopSeen       bool
	)

	for item := queue.GetNext(); item != nil; item = queue.GetNext() {
		t, failure := parsedTokenOf(item)
		if failure != nil {
			queue.SetResult(item, failure, nil)

			return failure
		}

		if t.Type().IsSIOP() && siopSeen {
			failure := api.Failure(api.StatusRejected,
				"token '%s' is an extra SIOP: only one SIOP may appear in a validation run", item.ID())
			queue.SetResult(item, failure, t)

			return failure
		}

		tokenValidator, ok := v.validators[t.Type()]
		if !ok {
			failure := api.Failure(api.StatusMisconfigured, "%s does not has a TokenValidator", t.Type())
			queue.SetResult(item, failure, t)

			return failure
		}

		response := tokenValidator.Validate(ctx, queue, item, siopDID, siopContractID)
		queue.SetResult(item, response, t)

		if !response.Result {
			logger.Infof("validation of token '%s' failed: %s", item.ID(), response.DetailedError)

			return response
		}

		if t.Type().IsSIOP() {
			siopSeen = true
			siopDID = response.DID
			siopContractID = readContractID(t.StringClaim("contract"))
		}
	}

	if aggregate := queue.Aggregate(); !aggregate.Result {
		return aggregate
	}

	result := assemble(queue)

	if v.statusCheckEnabled {
		statuses, failure := v.checkCredentialStatus(ctx, result)
		if failure != nil {
			return failure
		}

		result.VerifiablePresentationStatus = statuses
	}

	return &api.ValidationResponse{
		Result:           true,
		Status:           api.StatusOK,
		DID:              result.DID,
		ValidationResult: result,
	}
}

func parsedTokenOf(item *api.ValidationQueueItem) (*token.ClaimToken, *api.ValidationResponse) {
	if item.ClaimToken() != nil {
		return item.ClaimToken(), nil
	}

	t, err := token.Parse(item.TokenToValidate())
	if err != nil {
		return nil, api.Failure(api.StatusMalformed, "%v", err)
	}

	return t, nil
}

// readContractID extracts the contract id from a contract URL: the last
// non-empty path segment, URL-decoded.
func readContractID(contract string) string {
	if contract == "" {
		return ""
	}

	parsed, err := url.Parse(contract)
	if err != nil {
		return ""
	}

	segments := strings.Split(parsed.Path, "/")

	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			continue
		}

		decoded, err := url.PathUnescape(segments[i])
		if err != nil {
			return segments[i]
		}

		return decoded
	}

	return ""
}

// assemble scans the drained queue into the structured verdict: the SIOP's
// DID, contract and jti, and the validated tokens grouped by type under
// their queue ids.
func assemble(queue *api.ValidationQueue) *api.ValidationResult {
	result := &api.ValidationResult{}

	var fallbackDID string

	for _, item := range queue.Items() {
		t := item.ValidatedToken()
		if t == nil {
			continue
		}

		switch {
		case t.Type().IsSIOP():
			result.SIOP = t
			result.DID = item.Response().DID
			result.Contract = t.StringClaim("contract")
			result.SiopJTI = t.StringClaim("jti")
		case t.Type() == token.TypeSelfIssued:
			result.SelfIssued = t
		case t.Type() == token.TypeIDToken:
			if result.IDTokens == nil {
				result.IDTokens = make(map[string]*token.ClaimToken)
			}

			result.IDTokens[item.ID()] = t
		case t.Type() == token.TypeVerifiableCredential:
			if result.VerifiableCredentials == nil {
				result.VerifiableCredentials = make(map[string]*token.ClaimToken)
			}

			result.VerifiableCredentials[item.ID()] = t

			if fallbackDID == "" {
				fallbackDID = t.StringClaim("aud")
			}
		case t.Type() == token.TypeVerifiablePresentation:
			if result.VerifiablePresentations == nil {
				result.VerifiablePresentations = make(map[string]*token.ClaimToken)
			}

			result.VerifiablePresentations[item.ID()] = t
		}
	}

	if result.DID == "" {
		result.DID = fallbackDID
	}

	return result
}
