// Package cmr implements the Context Maintenance and Retrieval family of
// free-recall models.
//
// An Engine owns a unit-length temporal context vector, a long-term memory
// store, and the retrieval episode that samples recalls from that memory.
// Two memory realizations share one retrieval controller:
//
//   - AssociativeMemory keeps the classic pair of weight matrices Mfc
//     (item features to context) and Mcf (context to item features) and
//     learns by outer-product updates.
//   - InstanceMemory keeps one row per trace (pre-experimental items plus
//     one per presentation) and computes associations on the fly as an
//     activation-weighted echo over all traces.
//
// A typical caller builds an engine, encodes a study list once, then
// drives recall:
//
//	eng, err := cmr.New(cmr.KindClassic, 16, 16, params, cmr.WithSeed(7))
//	if err != nil { ... }
//	features, _ := cmr.ItemFeatures(cmr.KindClassic, 16)
//	if err := eng.Experience(features); err != nil { ... }
//	recalled, err := eng.FreeRecall(cmr.RecallAll)
//
// Engines are not safe for concurrent use. Every engine owns all of its
// state, so independent engines may run on separate goroutines.
package cmr
