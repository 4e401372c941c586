package config

import "time"

// Timeouts applied by the CLI. The core packages impose none.
const (
	DialTimeout      = 10 * time.Second // provider discovery and first reads
	TxConfirmTimeout = 3 * time.Minute  // per-operation wait for a receipt
)
