// Package state tracks whether plain values changed between frames.
//
// Scene-data tasks keep a State (or States, for slices) next to the data
// they propagate. Each frame they call Update with the current value; the
// returned flag decides whether downstream work (buffer uploads, spectrum
// regeneration) has to run:
//
//	var albedo state.State[[3]float32]
//	albedo.SetComparator(state.ApproxArray3[float32](1e-5))
//	if albedo.Update(obj.Albedo) {
//		// re-upload
//	}
//
// After Update the stored snapshot always equals the value just compared, so
// the next call compares against this frame's value.
package state
