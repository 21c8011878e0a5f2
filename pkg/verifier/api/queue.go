/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
)

// ValidationQueueItem is one token awaiting validation, together with its
// result once set. A result, once set, is final.
type ValidationQueueItem struct {
	id              string
	tokenToValidate string
	claimToken      *token.ClaimToken
	validatedToken  *token.ClaimToken
	response        *ValidationResponse
	validated       bool
}

// ID returns the caller-chosen handle of the item ("siop" for the root,
// descriptor or attestation ids for children).
func (i *ValidationQueueItem) ID() string {
	return i.id
}

// TokenToValidate returns the raw token of the item.
func (i *ValidationQueueItem) TokenToValidate() string {
	return i.tokenToValidate
}

// ClaimToken returns the parsed token when the item was enqueued in parsed
// form, else nil.
func (i *ValidationQueueItem) ClaimToken() *token.ClaimToken {
	return i.claimToken
}

// ValidatedToken returns the classified token stored with the result.
func (i *ValidationQueueItem) ValidatedToken() *token.ClaimToken {
	return i.validatedToken
}

// Response returns the validation response, or nil while pending.
func (i *ValidationQueueItem) Response() *ValidationResponse {
	return i.response
}

// IsValidated reports whether a result has been set.
func (i *ValidationQueueItem) IsValidated() bool {
	return i.validated
}

// ValidationQueue is the FIFO work list of one Validate run. It grows
// append-only and is owned by exactly one run.
type ValidationQueue struct {
	items []*ValidationQueueItem
}

// NewValidationQueue creates an empty queue.
func NewValidationQueue() *ValidationQueue {
	return &ValidationQueue{}
}

// EnqueueToken appends a new unvalidated item holding a raw token.
func (q *ValidationQueue) EnqueueToken(id, rawToken string) *ValidationQueueItem {
	item := &ValidationQueueItem{id: id, tokenToValidate: rawToken}
	q.items = append(q.items, item)

	return item
}

// EnqueueItem appends a new unvalidated item holding an already parsed
// token, skipping the re-parse on dequeue.
func (q *ValidationQueue) EnqueueItem(id string, claimToken *token.ClaimToken) *ValidationQueueItem {
	item := &ValidationQueueItem{
		id:              id,
		tokenToValidate: claimToken.RawToken(),
		claimToken:      claimToken,
	}
	q.items = append(q.items, item)

	return item
}

// GetNext returns the first unvalidated item in insertion order, or nil when
// the queue has drained.
func (q *ValidationQueue) GetNext() *ValidationQueueItem {
	for _, item := range q.items {
		if !item.validated {
			return item
		}
	}

	return nil
}

// SetResult marks the item validated and stores both the response and the
// classified token.
func (q *ValidationQueue) SetResult(item *ValidationQueueItem, response *ValidationResponse,
	validatedToken *token.ClaimToken) {
	item.response = response
	item.validatedToken = validatedToken
	item.validated = true
}

// Items returns every item in insertion order.
func (q *ValidationQueue) Items() []*ValidationQueueItem {
	return q.items
}

// Aggregate folds every item's response into one: success iff all items
// passed, else the first failure verbatim.
func (q *ValidationQueue) Aggregate() *ValidationResponse {
	for _, item := range q.items {
		if item.response == nil || !item.response.Result {
			if item.response != nil {
				return item.response
			}

			return Failure(StatusRejected, "token '%s' was never validated", item.id)
		}
	}

	return Ok()
}
