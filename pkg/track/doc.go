// Package track walks rays through a finalized geometry.
//
// A LineTrack follows one segment from InitPt to EndPt cell by cell,
// recording a LineUnit per cell crossed. The ObjectTrack types batch
// LineTracks keyed by cell and reduce them to path-length and attenuation
// sums.
//
// Tracking only reads the geometry, so independent tracks may be computed
// concurrently once the model is finalized. A LineTrack itself is not safe
// for concurrent use.
package track
