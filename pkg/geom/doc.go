// Package geom holds the small amount of vector and line arithmetic the
// geometry core needs. Points and directions are sdfx vec/v3 values so the
// rest of the toolkit shares one vector type with the sdfx ecosystem.
package geom
