// Package fitting fits a single gaussian with a constant offset to sampled
// data.
//
// The model is amp*exp(-2 ln2 ((x-x0)/dx)^2) + offset, where dx is the full
// width at half maximum. Fit defaults to a Levenberg-Marquardt solver built on
// gonum/mat with a finite-difference Jacobian, and can fall back to the
// general-purpose minimizers of gonum/optimize.
package fitting
