package main

/*
#include <stdint.h>

typedef void (*chainbridge_post_fn)(int64_t port, int32_t status, char *outcome);

static void chainbridge_call_post(chainbridge_post_fn fn, int64_t port, int32_t status, char *outcome) {
	fn(port, status, outcome);
}
*/
import "C"

// cPoster returns a poster that calls fn. The outcome string is allocated
// with malloc and owned by the host, which frees it with
// chainbridge_free_cstring.
func cPoster(fn C.chainbridge_post_fn) poster {
	return func(port int64, status int32, outcome string) {
		C.chainbridge_call_post(fn, C.int64_t(port), C.int32_t(status), C.CString(outcome))
	}
}
