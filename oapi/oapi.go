// Package oapi carries the embedded OpenAPI contract for the service.
package oapi

import "embed"

// SpecPath is the path of the API document inside FS.
const SpecPath = "psn-api-spec.yaml"

//go:embed psn-api-spec.yaml
var FS embed.FS
