// Package material holds the material records cells are filled with.
//
// Tracking only needs three things from a material: whether it is void,
// its atom density and its mean atomic mass. Those are exposed through
// Handle. Materials are built from ZAID components, kept in a DB, and may
// be loaded from YAML.
package material
