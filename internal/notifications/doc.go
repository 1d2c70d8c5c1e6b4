// Package notifications tells operators how a batch run ended.
//
// The ntfy implementation posts one message per finished run, naming the
// documents that landed in the problem folder. With only_failures set, clean
// runs stay silent. An empty topic yields a no-op service.
package notifications
