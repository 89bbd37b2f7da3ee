package config

import "time"

// Timeouts used across cmd.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark / RPC selection
	TxConfirmTimeout = 3 * time.Minute  // transfer confirmation wait
)
