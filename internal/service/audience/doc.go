// Package audience implements audience resolution and message delivery.
//
// Saving an audience compiles the operator's filter rules into a predicate,
// resolves the matching customers, writes one communication log capturing
// the audience, and then attempts delivery to each member through the
// configured sender. Delivery is best-effort: one recipient's failure never
// aborts the rest, and delivery outcomes never fail the save itself.
//
// The log's Status field is a single coarse flag with last-writer-wins
// semantics, kept for compatibility with the delivery-receipt callback.
// Per-recipient truth is recorded as delivery-attempt events on the bus and
// persisted by the pipeline consumer.
package audience
