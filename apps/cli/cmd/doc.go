// Package cmd implements the openit CLI commands using Cobra.
//
// Available commands:
//   - send: Build one request from flags, send it and print the response
//   - mime: Look up MIME types by extension or file name
//   - options: List the transport options accepted by --option
//   - history: Show or clear requests recorded with --history
//   - init: Write a default config file and an example .env
//   - validate: Check config files without sending anything
//   - completion: Generate shell completion scripts
//   - version: Show openit version information
//
// Exit codes: 0 success, 1 failed check, 3 config error, 4 transport
// error, 64 usage error.
package cmd
