// Package main implements the shipconf command-line interface.
//
// The CLI runs batch imports of shipment-confirmation documents against the
// order-management service and offers the operator tooling around them:
// resolving identifiers for individual scans, preflight checks of folders,
// imaging binaries and credentials, browsing the run history, and creating or
// validating configuration files.
//
// Commands load configuration lazily through commandContext so helpers such as
// `config init` work before a configuration file exists.
package main
