// Package present holds reference presentation adapters consuming the
// batches of an engine: a navigable tree model, a coloured text stream and
// a JSON Patch stream.
//
// Every adapter implements pipeline.Sink.
package present
