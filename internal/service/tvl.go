package service

import (
	"context"
	"math/big"

	"github.com/guttosm/histavg/internal/chain"
	"github.com/guttosm/histavg/internal/domain/models"
)

// VaultClient reads a vault's totalAssets() on a network.
type VaultClient interface {
	TotalAssets(ctx context.Context, network, address string) (*big.Int, error)
}

// TVLService answers vault TVL jobs.
type TVLService interface {
	TotalValueLocked(ctx context.Context, p models.TVLParams) (*models.VaultTVL, error)
}

type tvlService struct {
	client         VaultClient
	defaultNetwork string
}

func NewTVLService(client VaultClient, defaultNetwork string) TVLService {
	return &tvlService{client: client, defaultNetwork: defaultNetwork}
}

// TotalValueLocked routes ETHEREUM to the Ethereum endpoint and every other
// network name to Polygon.
func (s *tvlService) TotalValueLocked(ctx context.Context, p models.TVLParams) (*models.VaultTVL, error) {
	network := chain.ResolveNetwork(p.Network, s.defaultNetwork)
	total, err := s.client.TotalAssets(ctx, network, p.VaultAddress)
	if err != nil {
		return nil, err
	}
	return &models.VaultTVL{Network: network, Address: p.VaultAddress, TotalAssets: total}, nil
}
