// Package server hosts the read-only diagnostics surface of the object cache:
// a Fiber app with recover and request-id middleware that exposes engine
// statistics, the on-disk inventory and the active group policy under /-/.
// It is not a cache access protocol; reads and writes go through the engine
// API directly. Keep exports narrow and accept explicit dependencies.
package server
