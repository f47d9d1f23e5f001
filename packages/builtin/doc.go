// Package builtin provides the functions available inside {{...}}
// templates on the openit command line.
//
// Available functions:
//   - uuid(): Random UUID v4
//   - now(), date(layout): Current time, UTC
//   - timestamp(), timestampMs(): Unix time in seconds or milliseconds
//   - random(min, max), randomString(length)
//   - base64(value), sha256(value), urlEncode(value)
//   - env(name, fallback): Environment variable value
//   - mime(ext): Content type registered for a file extension
package builtin
