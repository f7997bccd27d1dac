// Package chain reads vault state from Ethereum-compatible networks.
package chain

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/guttosm/histavg/internal/logger"
	"github.com/guttosm/histavg/internal/metrics"
)

// Networks understood by the TVL endpoint. Anything that is not Ethereum is
// read from the Polygon endpoint.
const (
	NetworkEthereum = "ETHEREUM"
	NetworkPolygon  = "POLYGON"
)

//go:embed abi/vault.json
var vaultABIJSON []byte

var vaultABI = mustParseABI(vaultABIJSON)

// ErrNetworkUnavailable is returned when no RPC endpoint is configured for
// the requested network.
var ErrNetworkUnavailable = errors.New("chain: no rpc endpoint configured for network")

// ContractCaller is the read-only slice of ethclient.Client used here.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// VaultReader reads totalAssets() from ERC-4626 style vaults.
type VaultReader struct {
	callers map[string]ContractCaller
}

// NewVaultReader builds a reader over per-network callers. Keys are
// network names (NetworkEthereum, NetworkPolygon).
func NewVaultReader(callers map[string]ContractCaller) *VaultReader {
	m := make(map[string]ContractCaller, len(callers))
	for k, v := range callers {
		if v != nil {
			m[strings.ToUpper(k)] = v
		}
	}
	return &VaultReader{callers: m}
}

// Dial opens JSON-RPC clients for the configured endpoints. Empty URLs are
// skipped. The returned func closes every client.
func Dial(ctx context.Context, ethereumURL, polygonURL string) (*VaultReader, func(), error) {
	clients := make(map[string]*ethclient.Client)
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}
	for network, url := range map[string]string{NetworkEthereum: ethereumURL, NetworkPolygon: polygonURL} {
		if url == "" {
			continue
		}
		c, err := ethclient.DialContext(ctx, url)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial %s rpc: %w", strings.ToLower(network), err)
		}
		clients[network] = c
	}

	callers := make(map[string]ContractCaller, len(clients))
	for k, c := range clients {
		callers[k] = c
	}
	return NewVaultReader(callers), closeAll, nil
}

// ResolveNetwork maps a requested network to the endpoint that serves it.
func ResolveNetwork(network, fallback string) string {
	n := strings.ToUpper(strings.TrimSpace(network))
	if n == "" {
		n = strings.ToUpper(fallback)
	}
	if n == NetworkEthereum {
		return NetworkEthereum
	}
	return NetworkPolygon
}

// TotalAssets calls totalAssets() on the vault at address.
func (r *VaultReader) TotalAssets(ctx context.Context, network, address string) (*big.Int, error) {
	caller, ok := r.callers[strings.ToUpper(network)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNetworkUnavailable, network)
	}

	data, err := vaultABI.Pack("totalAssets")
	if err != nil {
		return nil, fmt.Errorf("pack totalAssets: %w", err)
	}
	to := common.HexToAddress(address)

	start := time.Now()
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	metrics.ObserveUpstream("rpc_"+strings.ToLower(network), err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("call totalAssets on %s: %w", to.Hex(), err)
	}

	values, err := vaultABI.Unpack("totalAssets", out)
	if err != nil {
		return nil, fmt.Errorf("unpack totalAssets: %w", err)
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack totalAssets: unexpected type %T", values[0])
	}

	logger.L().Debug().Str("network", network).Str("vault", to.Hex()).Str("total_assets", total.String()).Msg("vault read")
	return total, nil
}

func mustParseABI(raw []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: parse vault abi: %v", err))
	}
	return parsed
}
