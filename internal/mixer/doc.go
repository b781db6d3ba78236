// Package mixer drives the active computation model.
//
// A Mixer owns at most one model instance at a time. Selecting a model builds
// a fresh settings tree from the model's manifest, constructs the instance and
// runs its Init. Afterwards every setting change is routed to UpdateSettings,
// and every incoming bundle is processed against a settings snapshot. Results
// go to subscribers in registration order.
//
// Model calls are serialized: at most one Process (or UpdateSettings) call is
// in flight, and Run emits results in the order bundles were received. A
// failed Process means no result for that bundle; the Mixer logs it, counts
// it and keeps going.
package mixer
