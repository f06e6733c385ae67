// Package codec
// Author: momentics <momentics@gmail.com>
//
// Reference api.Codec implementations for the connection bridge.
//
// Every codec here is stateful and belongs to exactly one connection:
// OnData buffers partial frames across calls and reports each complete
// frame to the command listeners, in stream order, before returning.
// Decode faults go to the error listeners; encode faults are returned
// from PrepareCommand.
//
// Includes:
//   - Line: newline-delimited text commands
//   - JSONLines: one JSON document per line
//   - LengthPrefixed: 4-byte big-endian length frames with optional
//     lz4 or zstd payload compression
//   - CBOR: self-delimiting CBOR sequences
package codec
