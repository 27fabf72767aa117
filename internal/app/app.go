package app

import (
	"fmt"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/go-resty/resty/v2"

	"github.com/GoPolymarket/polyrelay/internal/chain"
	"github.com/GoPolymarket/polyrelay/internal/clob"
	"github.com/GoPolymarket/polyrelay/internal/cloud"
	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/dispatch"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/signer"
	"github.com/GoPolymarket/polyrelay/internal/swap"
)

// Deps holds every upstream client built from configuration.
type Deps struct {
	Router   *dispatch.Router
	Clob     *clob.Client
	Ladder   *dispatch.Ladder
	Balances *chain.BalanceService
	Safe     *chain.SafeExecutor // nil without chain.owner_private_key
	Swap     *swap.Client
	Cloud    *cloud.Client
	Agent    *cloud.AgentClient
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// NewRouter builds the direct route and, when proxy.base_url is set, the
// proxied fallback.
func NewRouter(cfg *config.Config) *dispatch.Router {
	direct := dispatch.NewDirect(resty.New().SetTimeout(seconds(cfg.Polymarket.TimeoutSeconds)))

	var proxied dispatch.Route
	if cfg.Proxy.BaseURL != "" {
		proxied = dispatch.NewProxied(resty.New().SetTimeout(seconds(cfg.Proxy.TimeoutSeconds)), dispatch.ProxyOptions{
			Endpoint: cfg.Proxy.BaseURL,
			APIKey:   cfg.Proxy.APIKey,
			KeyParam: cfg.Proxy.KeyParam,
			URLParam: cfg.Proxy.URLParam,
		})
	} else {
		logger.Warn("no unlocking proxy configured; blocked CLOB calls will not be retried")
	}
	return dispatch.NewRouter(direct, proxied, dispatch.Config{BlockedStatuses: cfg.Proxy.BlockedStatuses})
}

func Build(cfg *config.Config) (*Deps, error) {
	d := &Deps{Router: NewRouter(cfg)}

	var l1 *signer.ClobAuthSigner
	if cfg.Polymarket.PrivateKey != "" {
		s, err := signer.NewClobAuthSigner(cfg.Polymarket.PrivateKey, cfg.Polymarket.ChainID)
		if err != nil {
			return nil, fmt.Errorf("polymarket.private_key: %w", err)
		}
		l1 = s
		logger.Info("L1 signer loaded", "address", s.Address().Hex())
	}

	fallback := clob.L2Auth{
		Creds: auth.APIKey{
			Key:        cfg.Polymarket.ApiKey,
			Secret:     cfg.Polymarket.ApiSecret,
			Passphrase: cfg.Polymarket.ApiPassphrase,
		},
		Address: cfg.Polymarket.Address,
	}
	if fallback.Address == "" && l1 != nil {
		fallback.Address = l1.Address().Hex()
	}
	d.Clob = clob.NewClient(d.Router, l1, clob.NewCredentialStore(), clob.Config{
		BaseURL:       cfg.Polymarket.ClobURL,
		UseServerTime: cfg.Polymarket.UseServerTime,
		Default:       fallback,
	})

	d.Ladder = dispatch.NewLadder(cfg.Chain.RPCURLs)
	pool := chain.NewClientPool(chain.EthDialer)
	balances, err := chain.NewBalanceService(d.Ladder, pool, chain.BalanceConfig{
		ChainID:      cfg.Chain.ChainID,
		USDCAddress:  cfg.Chain.USDCAddress,
		USDCeAddress: cfg.Chain.USDCeAddress,
		Timeout:      time.Duration(cfg.Chain.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	d.Balances = balances

	if cfg.Chain.OwnerPrivateKey != "" {
		exec, err := chain.NewSafeExecutor(d.Ladder, pool, cfg.Chain.OwnerPrivateKey, cfg.Chain.ChainID, balances.DeriveSafe)
		if err != nil {
			return nil, fmt.Errorf("chain.owner_private_key: %w", err)
		}
		d.Safe = exec
		logger.Info("safe submission enabled", "owner", exec.Owner().Hex(), "safe", exec.Safe().Hex())
	}

	d.Swap = swap.NewClient(swap.Config{
		BaseURL:      cfg.Swap.BaseURL,
		ChainID:      cfg.Swap.ChainID,
		Partner:      cfg.Swap.Partner,
		SlippageBps:  cfg.Swap.SlippageBps,
		USDCAddress:  cfg.Chain.USDCAddress,
		USDCeAddress: cfg.Chain.USDCeAddress,
		Timeout:      seconds(cfg.Swap.TimeoutSeconds),
	})
	d.Cloud = cloud.NewClient(cloud.Config{
		BaseURL:      cfg.Cloud.BaseURL,
		APIKey:       cfg.Cloud.APIKey,
		ChatPath:     cfg.Cloud.ChatPath,
		TTSPath:      cfg.Cloud.TTSPath,
		STTPath:      cfg.Cloud.STTPath,
		ImagePath:    cfg.Cloud.ImagePath,
		DefaultModel: cfg.Cloud.DefaultModel,
		Timeout:      seconds(cfg.Cloud.TimeoutSeconds),
	})
	d.Agent = cloud.NewAgentClient(cloud.AgentConfig{
		BaseURL:      cfg.Agent.BaseURL,
		APIKey:       cfg.Agent.APIKey,
		AllowedPaths: cfg.Agent.AllowedPaths,
		Timeout:      seconds(cfg.Agent.TimeoutSeconds),
	})
	return d, nil
}
