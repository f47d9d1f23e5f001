// Package check inspects responses after they are received.
//
// It provides functionality for:
//   - Selecting values from JSON bodies with gjson paths
//   - Validating bodies against a JSON Schema
//   - Evaluating "subject operator value" expectations, e.g.
//     `status == 200` or `body.items length 3`
package check
