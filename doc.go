// Package flashcache provides a bounded, persistent result cache keyed by
// document content.
//
// A document's normalized text is hashed into a Key. The cache maps the key
// to the location of a result file produced for that text and keeps at most
// Limit entries; inserting past the limit evicts the least recently updated
// entry together with its file.
//
// Basic usage:
//
//	c, _ := flashcache.Open("~/.local/share/flashcache/cache.db")
//	defer c.Close()
//
//	key := flashcache.HashText(text)
//	if loc, ok, _ := c.Lookup(ctx, key); ok {
//	    // use the cached result at loc
//	}
//
//	// On a miss, write the result and record it
//	loc, _ := c.Artifacts().Write(key.String(), result)
//	_ = c.Insert(ctx, key, loc)
//
//	// Point an entry at a regenerated result
//	_ = c.Refresh(ctx, key, newLoc)
//
//	n, _ := c.Size(ctx)
//
// Eviction is two-phase: the row is tombstoned, the file removed, then the
// row deleted. If the file cannot be removed the entry stays tombstoned and
// counted, Lookup returns ErrEvictionPending for it, and Recover (also run by
// Open and Insert) retries the removal.
package flashcache
