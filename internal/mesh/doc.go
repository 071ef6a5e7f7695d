// Package mesh owns the store-and-forward seed distribution core.
//
// Ownership boundary:
// - message kinds and construction rules
//
// - node seed stores, directed links and message handlers
//
// - network registry, single hop routing and the FIFO delivery queue
//
// Lifecycle order:
// - new node -> add to network -> connect links -> send / pump
//
// - a node only holds a delivery capability granted by AddNode, never the network.
//
// - all handler work runs on the goroutine that calls Pump, Drain or Route.
//
// Seed records are opaque here. Packaging and the HTTP surface produce and
// consume them; this package only stores and moves them by id.
package mesh
