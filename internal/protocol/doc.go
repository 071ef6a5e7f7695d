// Package protocol owns the seedbank wire contract.
//
// Ownership boundary:
// - frame/header primitives (frame)
// - tlv payload primitives (tlv)
// - per message type field requirements (schema)
// - Codec: mesh.Message <-> frame bytes for store-and-forward queues
//
// Frame layout: 32 byte header carrying the mesh message type, then a TLV
// field stream. The seed payload itself travels as one JSON bytes field.
package protocol
