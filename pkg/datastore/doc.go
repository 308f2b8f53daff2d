// Package datastore defines the persistence contract for schemaless session
// records and ships three interchangeable implementations: a concurrent
// in-memory store, a MongoDB-backed store and a Redis-backed store.
//
// Records are plain maps. Queries are field-equality maps extended with a
// small set of operators borrowed from the MongoDB query language:
//
//   - "$lt"     — less-than comparison (times and numbers)
//   - "$exists" — field presence check
//   - "$or"     — disjunction of sub-queries
//
// The MongoDB store passes queries through to the server almost verbatim;
// the memory and Redis stores evaluate them in-process via Query.Match.
//
// # Usage
//
//	store := datastore.NewMemoryStore()
//
//	rec, err := store.Insert(ctx, datastore.Record{"uid": "u1"})
//	if err != nil {
//	    // handle error
//	}
//
//	stale := datastore.Query{
//	    "$or": []datastore.Query{
//	        {"lastActive": datastore.Query{"$lt": cutoff}},
//	        {"lastActive": datastore.Query{"$exists": false}},
//	    },
//	}
//	if err := store.Remove(ctx, stale); err != nil {
//	    // handle error
//	}
package datastore
