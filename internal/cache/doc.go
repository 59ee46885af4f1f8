// Package cache implements the disk tier of the object cache: one file per
// entry under CacheDir, written through a same-directory temp file and an
// atomic rename, with the file modification time carrying the absolute
// expiration instant. Every directory the store creates also receives an empty
// index.php. Readers treat a file that vanishes between the existence check and
// the read as a miss, so concurrent processes sharing the tree never see a
// partial entry and never fail hard on a racing delete.
package cache
