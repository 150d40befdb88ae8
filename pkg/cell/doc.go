// Package cell implements Object, a numbered cell of the geometry: a rule
// together with its material, temperature and importance.
//
// Beyond point classification an Object answers the two questions ray
// tracking asks of a single cell: which way a ray starting on the cell's
// boundary is heading (TrackDirection), and where it next leaves the cell
// (TrackCell).
package cell
