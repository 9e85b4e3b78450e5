/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"errors"
	"fmt"

	"token-exchange-go/internal/models"
)

// Sentinel errors shared by every backend and the services built on them.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidInput         = errors.New("invalid input")
	ErrStoreUnavailable     = errors.New("store unavailable")

	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Refinements of the categories above; errors.Is matches both.
var (
	ErrAlreadyProcessed    = fmt.Errorf("%w: already processed", ErrInvalidState)
	ErrCodeAlreadyRedeemed = fmt.Errorf("%w: code already redeemed", ErrInvalidState)
	ErrAccountBanned       = fmt.Errorf("%w: account banned", ErrInvalidState)
	ErrAlreadyExists       = fmt.Errorf("%w: already exists", ErrInvalidState)
)

// IsDeclined reports whether err is a validation failure that leaves state untouched
// and should be surfaced to the user as a declined operation.
func IsDeclined(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientHoldings) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAccountBanned)
}

// ResultCode maps an error onto the result code reported to the presentation layer.
// Any other ErrInvalidState refinement is a refusal of the request, not an outage.
func ResultCode(err error) string {
	switch {
	case err == nil:
		return models.CodeOK
	case errors.Is(err, ErrStoreUnavailable):
		return models.CodeUnavailable
	case errors.Is(err, ErrNotFound):
		return models.CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return models.CodeInvalid
	case errors.Is(err, ErrAlreadyProcessed), errors.Is(err, ErrCodeAlreadyRedeemed):
		return models.CodeAlreadyProcessed
	case IsDeclined(err), errors.Is(err, ErrInvalidState):
		return models.CodeDeclined
	default:
		return models.CodeUnavailable
	}
}
