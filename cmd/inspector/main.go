// Command inspector checks the relay's upstreams with the same configuration
// the server uses: CLOB reachability and route, server clock skew, and the
// balances of an owner and its Safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/GoPolymarket/polyrelay/internal/app"
	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
)

func main() {
	owner := flag.String("owner", "", "owner address to inspect balances for")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}
	logger.Init("warn", nil)

	deps, err := app.Build(cfg)
	if err != nil {
		fail("build upstreams", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Println("--- CLOB ---")
	fmt.Printf("base url:  %s\n", deps.Clob.BaseURL())
	fmt.Printf("proxy:     %v\n", deps.Router.HasProxy())
	fmt.Printf("l1 signer: %v\n", deps.Clob.HasL1Signer())
	resp, err := deps.Clob.Time(ctx)
	if err != nil {
		fmt.Printf("time:      error: %v\n", err)
	} else {
		fmt.Printf("time:      %s (status %d via %s)\n", string(resp.Body), resp.StatusCode, resp.Route)
	}
	if serverTime, err := deps.Clob.ServerTime(ctx); err == nil {
		fmt.Printf("skew:      %ds\n", time.Now().Unix()-serverTime)
	}

	fmt.Println("\n--- Chain ---")
	for _, ep := range deps.Ladder.Endpoints() {
		fmt.Printf("rpc[%d]:    %s\n", ep.Index, ep.Host())
	}
	if deps.Safe != nil {
		fmt.Printf("owner:     %s\n", deps.Safe.Owner().Hex())
		fmt.Printf("safe:      %s\n", deps.Safe.Safe().Hex())
	}

	if *owner == "" {
		return
	}
	if !common.IsHexAddress(*owner) {
		fail("owner", fmt.Errorf("invalid address %q", *owner))
	}
	wallet, err := deps.Balances.FetchWallet(ctx, common.HexToAddress(*owner))
	if err != nil {
		fail("fetch balances", err)
	}
	out, _ := json.MarshalIndent(wallet, "", "  ")
	fmt.Println("\n--- Balances ---")
	fmt.Println(string(out))
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
