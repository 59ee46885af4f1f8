// Package layout maps logical cache addresses onto the on-disk tree. A cache
// entry lives at <CacheDir>/<scope>/<group segments>/<key>.php where the scope
// is either the shared blog_global directory or a tenant directory derived
// from a salted tenant prefix. Names are validated before they become path
// segments so that keys and groups can never escape the cache root.
package layout
