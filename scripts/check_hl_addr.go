// Verifies the configured Hyperliquid credentials: derives the API wallet
// address from HYPERLIQUID_PRIVATE_KEY and probes the account state on both
// networks. Run with: go run scripts/check_hl_addr.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"xgate-api/pkg/confkit"
	"xgate-api/pkg/exchange"
	"xgate-api/pkg/exchange/generic/hyperliquid"
)

func main() {
	confkit.LoadDotenvOnce()

	pk := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
	if pk == "" {
		fmt.Println("HYPERLIQUID_PRIVATE_KEY not set in env/.env")
		os.Exit(1)
	}
	signer, err := hyperliquid.NewPrivateKeySigner(pk)
	if err != nil {
		fmt.Printf("decode private key: %v\n", err)
		os.Exit(1)
	}
	apiWallet := signer.Address()
	mainAddr := strings.ToLower(strings.TrimSpace(os.Getenv("HYPERLIQUID_MAIN_ADDRESS")))

	fmt.Printf("API wallet (from private key): %s\n", apiWallet)
	if mainAddr != "" && mainAddr != apiWallet {
		fmt.Printf("Main account:                  %s\n", mainAddr)
		fmt.Println("API wallet mode: the wallet must be registered with the main account under Settings > API on the venue.")
	}

	creds := exchange.Credentials{Secret: pk}
	if mainAddr != "" {
		creds.Extra = map[string]string{"wallet_address": mainAddr}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	probe := func(label string, opts ...hyperliquid.Option) {
		session, err := hyperliquid.New(creds, opts...)
		if err != nil {
			fmt.Printf("%s: build session: %v\n", label, err)
			return
		}
		defer session.Close()
		wallet, err := session.FetchWallet(ctx)
		if err != nil {
			fmt.Printf("%s: %v\n", label, err)
			return
		}
		fmt.Printf("%s: total=%.2f free=%.2f used=%.2f USDC\n",
			label, wallet.Total["USDC"], wallet.Free["USDC"], wallet.Used["USDC"])
	}

	probe("mainnet")
	probe("testnet", hyperliquid.WithTestnet())
}
