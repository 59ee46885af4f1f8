// Package objectcache is the two-tier object cache engine. A Cache answers
// reads from its memory tier first and falls back to entry files on disk,
// evicting expired or corrupt files lazily when it trips over them. Groups
// can be marked global (shared by every tenant) or non-persistent (memory
// only). Disk trouble never surfaces as a panic or error value: it is logged
// and reduced to the boolean results of the operations, while the memory tier
// keeps the process-local view correct.
//
// Memory copies carry the same expiry as their files, so an expired entry is
// a miss in both tiers. Existence checks for Replace, Incr and Decr consult
// the memory tier only; Get and Add also consult disk.
package objectcache
