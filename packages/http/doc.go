// Package http builds and sends single HTTP requests.
//
// A Builder collects the URL, method, params, raw body, headers and
// transport options of a request:
//   - Params are sent as the query string for GET and as post fields otherwise
//   - Derived headers and options (Content-Length, post, post-fields,
//     http-header) are recomputed whenever they are read
//   - Options outside the supported set are stored but never applied
//   - Files are attached as multipart parts typed from the mime table
//
// Send hands the options to a Transport and keeps the response body as a
// string. Transport failures are stored in-band as
// `Error: "<message>" - Code: <code>`.
package http
