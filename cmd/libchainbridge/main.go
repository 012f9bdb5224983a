// Command libchainbridge is built with -buildmode=c-shared and exposes the
// bridge to foreign hosts.
//
// A host registers a post callback, creates transport handles and issues
// queries. Every query returns at once; its outcome is later passed to the
// callback as (port, status code, outcome JSON). The JSON string belongs to
// the host and must be released with chainbridge_free_cstring.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*chainbridge_post_fn)(int64_t port, int32_t status, char *outcome);
*/
import "C"

import (
	"unsafe"

	"github.com/blockberries/chainbridge/bridge"
	"github.com/blockberries/chainbridge/logging"
)

func main() {}

//export chainbridge_set_post_callback
func chainbridge_set_post_callback(fn C.chainbridge_post_fn) {
	if fn == nil {
		instance().setPoster(nil)
		return
	}
	instance().setPoster(cPoster(fn))
}

// chainbridge_create_jsonrpc_transport returns the handle of a new JSON-RPC
// transport, or 0 if endpoint is unusable.
//
//export chainbridge_create_jsonrpc_transport
func chainbridge_create_jsonrpc_transport(endpoint *C.char) C.uint64_t {
	if endpoint == nil {
		return 0
	}
	l := instance()
	h, err := l.createJSONRPCTransport(C.GoString(endpoint))
	if err != nil {
		l.logger.Error("creating transport", logging.Error(err))
		return 0
	}
	return C.uint64_t(h)
}

// chainbridge_destroy_transport releases a handle and returns a status code.
//
//export chainbridge_destroy_transport
func chainbridge_destroy_transport(handle C.uint64_t) C.int32_t {
	l := instance()
	if err := l.destroyTransport(bridge.HandleID(handle)); err != nil {
		l.logger.Warn("destroying transport", logging.Handle(uint64(handle)), logging.Error(err))
		return C.int32_t(bridge.StatusOf(err))
	}
	return C.int32_t(bridge.StatusSuccess)
}

//export get_full_account_state
func get_full_account_state(port C.int64_t, handle C.uint64_t, address *C.char) {
	instance().bridge.GetFullAccountState(int64(port), bridge.HandleID(handle), goString(address))
}

//export get_transactions
func get_transactions(port C.int64_t, handle C.uint64_t, address *C.char, continuation *C.char, limit C.uint8_t) {
	var cont *string
	if continuation != nil {
		s := C.GoString(continuation)
		cont = &s
	}
	instance().bridge.GetTransactions(int64(port), bridge.HandleID(handle), goString(address), cont, uint8(limit))
}

//export chainbridge_free_cstring
func chainbridge_free_cstring(p *C.char) {
	C.free(unsafe.Pointer(p))
}

// goString copies s; NULL reads as the empty string, which fails address
// parsing with an invalid input outcome.
func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}
