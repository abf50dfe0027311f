// Package image builds the filtered before/after record snapshots
// ("images") a step registration asks for.
//
// Availability follows the message semantics of the simulated platform:
// Create has no prior state, so pre-images are never built for it;
// Delete has no resulting state, so post-images are never built for it.
// A spec whose kind is unavailable for the message is silently omitted —
// requesting it is not an error.
package image

import pipeline "github.com/rnwood/Fake4Dataverse-sub003"

// Build computes the named pre and post images for one registration.
//
// Each spec selects the prior or resulting snapshot per its kind; a Both
// spec contributes under its one name to both maps. The snapshot is
// filtered to the spec's attribute set (empty set keeps everything);
// record identity and logical name are always retained. A nil snapshot
// contributes nothing.
//
// Both returned maps are non-nil.
func Build(specs []pipeline.ImageSpec, prior, post *pipeline.Record, message string) (map[string]*pipeline.Record, map[string]*pipeline.Record) {
	preImages := make(map[string]*pipeline.Record)
	postImages := make(map[string]*pipeline.Record)

	preAvailable := message != pipeline.MessageCreate && prior != nil
	postAvailable := message != pipeline.MessageDelete && post != nil

	for _, spec := range specs {
		if preAvailable && (spec.Kind == pipeline.ImagePre || spec.Kind == pipeline.ImageBoth) {
			preImages[spec.Name] = prior.Filter(spec.Attributes)
		}
		if postAvailable && (spec.Kind == pipeline.ImagePost || spec.Kind == pipeline.ImageBoth) {
			postImages[spec.Name] = post.Filter(spec.Attributes)
		}
	}

	return preImages, postImages
}
