// Package registry provides the central "glue" for the model system.
//
// The Registry maps model names (e.g. "equation") to the compiled Go parts
// of a model: its factory, its settings struct and its embedded manifest. It
// also holds the option definitions parsed from those manifests.
//
// During application startup, the registry is populated and then validated to
// ensure that the Go settings structs and the manifests are perfectly in
// sync, preventing a wide class of runtime errors.
package registry
