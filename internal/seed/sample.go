package seed

import (
	"bytes"
	_ "embed"
)

//go:embed sample.yaml
var sampleCatalogue []byte

// Sample returns the built-in sample catalogue.
func Sample() (*Catalogue, error) {
	return Decode(bytes.NewReader(sampleCatalogue), false)
}
