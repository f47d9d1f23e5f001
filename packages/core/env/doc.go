// Package env handles environment variables and variable resolution for openit.
//
// It provides functionality for:
//   - Loading environment files (.env, .env.local, etc.)
//   - Variable interpolation using {{variable}} syntax in command line values
//   - {{$NAME}} references to the OS environment
//   - Built-in function evaluation (uuid, timestamp, mime, etc.)
package env
