// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model defines the contract every computation model implements and
// the environment it runs in.
//
// # Core Concepts
//
//   - Model: turns one bundle of named datasets into a bundle of derived
//     datasets. It is initialized once, told about option changes, and then
//     asked to process bundles one at a time.
//
//   - Env: what a model instance receives at construction: its live settings
//     tree and a source of currently available channels.
//
//   - ChannelSource: the "which channels exist right now" query, grouped by
//     dimensionality. Models use it only to fill selectable lists.
//
// Why a separate model package?
//
// The mixer, the registry and every concrete model depend on this contract
// and nothing else, so new models can be added without touching the
// orchestration code.
package model
