// Package host binds producer functions into wazero as host modules and runs
// guests against them.
//
// A producer implements ABIHost: a namespace plus core wasm functions.
// Registry collects them, Runtime instantiates one host module per namespace
// and loads guests that import them. Host functions see the calling guest's
// memory through the api.Module passed to them.
package host
