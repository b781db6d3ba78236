// Package config defines the format-agnostic description of a computation
// model's options, along with the interfaces (Loader, Converter) used to read
// manifests and settings files and to bind option values to Go structs.
//
// Concrete implementations, such as the HCL one, live in separate packages.
package config
