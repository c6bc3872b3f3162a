// Package rto implements remote trait-object invocation: two peers connect
// a duplex Transport and each exposes a Dispatch-implementing service
// object that the other can call methods on through a generated proxy,
// symmetrically, in either direction, over the same connection.
//
// A Context wires one Port to one Transport. Generated skeleton/proxy code
// (see package examples/ping for the pattern) is the only part of a real
// service that user code writes by hand; Context, Port, Client and Server
// handle framing, call correlation, dispatch, and handle exchange.
package rto
