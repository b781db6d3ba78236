// Package dataset defines the data model shared by every stage of the mixer:
// a Bundle is an ordered snapshot of named numeric Datasets produced by one
// acquisition, addressed inside formulas by their "origin/name" full name.
//
// Inputs handed to a model are never mutated in place; models that need to
// modify data call DeepCopy first and return a fresh Bundle.
package dataset
