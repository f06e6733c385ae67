// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime introspection for processes that host many bridges.
//
// A Registry tracks live connections by id together with a stats probe for
// each, and holds named debug probes (event loop depth, process details).
// Dump collects both into one snapshot suitable for logging.
package control
