// Package model represents remote resources as entities and paginated
// collections of entities.
//
// An Entity keeps its serializable attributes in a map and its bookkeeping
// (mode, loading flag, endpoint, validation engine) in a separate control
// block that never reaches the wire. A Schema plays the role of the entity
// type: it names the endpoint, declares nested fields that hydrate into
// entities and carries the validation rules.
//
// A Collection holds the visible items plus a cache of every entity it has
// seen, and merges server pages into them with PushData and ReflashData.
//
// Entities and collections are safe to read and write from several
// goroutines, but operations are not serialized: when two requests race on
// the same model the last one to apply its response wins.
package model
