package testutil

import (
	"time"

	"github.com/skosovsky/chatsy"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests.
func NewTestRegistry(tools ...chatsy.Tool) *chatsy.Registry {
	reg := chatsy.NewRegistry(
		chatsy.WithDefaultTimeout(30*time.Second),
		chatsy.WithRecoverPanics(true),
	)
	for _, t := range tools {
		reg.Register(t)
	}
	return reg
}
