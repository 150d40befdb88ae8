// Package geometry assembles surfaces, materials and cells into a Model,
// the context that ray tracking runs against.
//
// A Model is built in two phases. During construction surfaces, materials
// and cells are added freely. Finalize then resolves surface aliases,
// binds every cell rule, and builds the two lookup structures tracking
// needs: the surface map (which cells use which surface) and a spatial
// index over cell bounding boxes for locating the cell holding a point.
// After Finalize the model is read-only and safe for concurrent tracking.
package geometry
