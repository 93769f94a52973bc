// Package cmd implements the corekv command-line interface: a root
// command plus a serve subcommand that starts the HTTP server.
//
// See corekv --help for the full command list.
package cmd
