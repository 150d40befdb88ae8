// Package surface defines the analytic surfaces that bound cells (planes
// and quadrics) and the registry that maps integer surface names to them.
//
// Every surface splits space into a positive and a negative side. A signed
// surface number +N or -N names one of those half-spaces; the boolean rule
// engine in package rule combines half-spaces into cells.
package surface
