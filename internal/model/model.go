// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file holds the Model interface and the environment handed to models.
package model

import (
	"context"

	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/settings"
)

// Model is a computation model.
type Model interface {
	// Init runs once when the model is activated. It may fill selectable
	// lists from the channel source.
	Init(ctx context.Context) error

	// UpdateSettings is called after one of the model's own options changed.
	UpdateSettings(ctx context.Context, change settings.Change) error

	// Process transforms one input bundle. It must depend only on in and
	// snap, but may publish read-only status options as a side effect.
	Process(ctx context.Context, snap settings.Snapshot, in *dataset.Bundle) (*dataset.Bundle, error)
}

// ChannelSource enumerates the channels currently available, per
// dimensionality class.
type ChannelSource interface {
	Channels(ctx context.Context) (map[dataset.Dim][]string, error)
}

// ChannelSourceFunc adapts a function to ChannelSource.
type ChannelSourceFunc func(ctx context.Context) (map[dataset.Dim][]string, error)

// Channels implements ChannelSource.
func (f ChannelSourceFunc) Channels(ctx context.Context) (map[dataset.Dim][]string, error) {
	return f(ctx)
}

// Env is what a model instance is constructed with.
type Env struct {
	// Name is the registered model name.
	Name string
	// Settings is the model's own live settings tree.
	Settings *settings.Tree
	// Channels may be nil when no acquisition layer is attached.
	Channels ChannelSource
}

// ChannelList queries env's channel source, returning an empty listing when
// none is attached.
func (e *Env) ChannelList(ctx context.Context) (map[dataset.Dim][]string, error) {
	if e.Channels == nil {
		return map[dataset.Dim][]string{}, nil
	}
	return e.Channels.Channels(ctx)
}
