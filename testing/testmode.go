// Package testing switches the stockroom binaries into test mode. Importing
// it for side effects from a main package test keeps main from dialing
// Postgres or Redis.
package testing

import "os"

// EnvVar is the variable app.InTestMode reads.
const EnvVar = "STOCKROOM_TEST_MODE"

func init() {
	_ = os.Setenv(EnvVar, "1")
}
