/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"

	"github.com/NutecDev/verifiablecredentials-verification-sdk-go/pkg/doc/token"
)

// TokenValidator validates one class of claim token. Implementations append
// any nested tokens they discover to the queue.
type TokenValidator interface {
	// Validate runs the item's token through the validator's state machine.
	// siopDID and siopContractID carry the context established by the outer
	// SIOP, empty until it has been validated.
	Validate(ctx context.Context, queue *ValidationQueue, item *ValidationQueueItem,
		siopDID, siopContractID string) *ValidationResponse

	// Type is the token class this validator handles.
	Type() token.Type
}
