// Package registry provides a generic thread-safe map for values indexed by key.
//
// It backs the event type registry and the hub's flow directory. Both are read
// on every lookup and written rarely, so Registry uses sync.RWMutex.
//
//	schemas := registry.New[int, *Schema]()
//	if !schemas.Add(s.TypeID, s) {
//	    return ErrDuplicateType
//	}
//
// Keys returns entries in ascending key order, so listings are stable across
// runs. Range iterates over a snapshot and may mutate the registry.
package registry
