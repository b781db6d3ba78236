// Package hcl provides the concrete HCL implementation of the loading and
// conversion interfaces defined in the `config` package. It parses model
// manifests and settings files, translates type keywords into cty types and
// binds cty values to Go structs.
package hcl
