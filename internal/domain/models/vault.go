package models

import "math/big"

// VaultTVL is the total value locked in a vault, in the vault asset's base units.
type VaultTVL struct {
	Network     string
	Address     string
	TotalAssets *big.Int
}
