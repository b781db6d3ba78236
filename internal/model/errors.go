// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the failures a model's Process may return. A failed
// Process means "no result this cycle" to the caller, never a fatal error.
package model

import "errors"

var (
	// ErrRequiredChannelMissing is returned when the channel a model needs
	// is absent from the input bundle.
	ErrRequiredChannelMissing = errors.New("required channel missing")

	// ErrFitDivergence is returned when a nonlinear fit does not converge.
	ErrFitDivergence = errors.New("fit did not converge")

	// ErrEmptyPeakSet is returned when peak finding yields nothing to select.
	ErrEmptyPeakSet = errors.New("no peaks found")

	// ErrEmptyCropWindow is returned when a crop window has no overlap with
	// the data.
	ErrEmptyCropWindow = errors.New("crop window is empty")
)
