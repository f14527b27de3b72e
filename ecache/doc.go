// Package ecache provides the entity cache used by a root-cause analysis
// workspace.
//
// The Cache holds a long-lived store of entities, keyed by URN, that is
// assembled from several independent search frameworks (related events,
// related dimensions, related metrics) plus an identity lookup for the
// metrics the user has selected. Callers drive the cache with Request and
// read the results as immutable snapshots, either by calling Entities and
// Pending or by subscribing with OnUpdate.
//
// ## Search Context
//
// Each Request carries a SearchContext and the user's current selection. The
// cache compares both against what it last applied. A change of the selected
// metric URNs may start an identity lookup. A change of the search context
// starts one query per search framework, and the set of pending frameworks is
// reset to exactly those frameworks. Repeating a Request with an equal context
// and selection does nothing, so overlapping requests are deduplicated.
//
// A context without URNs does not query anything. Instead the store is
// narrowed to the entities that are still selected.
//
// ## Stale Results
//
// Queries that were started for an earlier search context are not canceled.
// They are allowed to finish and their results are then discarded, because
// only results for the currently stored context are merged. This means the
// results of different frameworks can arrive in any order without affecting
// correctness.
//
// ## Eviction
//
// Each search framework owns one entity-type namespace, identified by URN
// prefix. Fresh results from a framework replace everything previously stored
// in its namespace. Entities that the user has selected (pinned) are not
// removed, but their score is set to model.StaleScore to show that the search
// no longer confirms them. Identity lookups never evict.
//
// ## Failures
//
// A failed query removes its framework from the pending set and records the
// error, available from Failed, until the search context changes. The store
// is not modified. Every query runs with a time limit so that the pending set
// always drains. Retrying failed requests is left to the Dispatcher.
//
// ## Concurrency
//
// All state changes are applied by a single writer at a time. Reads are
// lock-free and return the most recently published snapshot.
package ecache
