// Command walletctl operates a wallet POS bridge deployment: schema
// migrations, the POS credential pair, payload signing, connectivity checks
// and draining the sync outbox.
package main

import (
	"fmt"
	"os"

	"wallet-pos-bridge/internal/bootstrap"
)

func main() {
	cmd := newRootCommand(bootstrap.Build)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "walletctl: %v\n", err)
		os.Exit(1)
	}
}
