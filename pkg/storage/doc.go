// Package storage defines the sample storage interface and its shared
// request/response types. Concrete backends live in subpackages.
package storage
