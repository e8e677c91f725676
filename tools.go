//go:build tools
// +build tools

// Package talknow tracks tool dependencies (mockgen) so that go generate
// works on a fresh checkout.
package talknow

import (
	_ "go.uber.org/mock/mockgen"
)
