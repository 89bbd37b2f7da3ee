package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Network modes.
const (
	ModeMainnet = "mainnet"
	ModeTestnet = "testnet"
)

// Chain holds the endpoints and explorers of one EVM network.
type Chain struct {
	Name            string   `json:"name" yaml:"name"`
	DisplayName     string   `json:"display_name" yaml:"display_name"`
	ChainID         int64    `json:"chain_id" yaml:"chain_id"`
	TestnetChainID  int64    `json:"testnet_chain_id" yaml:"testnet_chain_id"`
	TestnetName     string   `json:"testnet_name" yaml:"testnet_name"`
	NativeCurrency  string   `json:"native_currency" yaml:"native_currency"`
	MainnetRPCs     []string `json:"mainnet_rpcs" yaml:"mainnet_rpcs"`
	TestnetRPCs     []string `json:"testnet_rpcs" yaml:"testnet_rpcs"`
	MainnetExplorer string   `json:"mainnet_explorer,omitempty" yaml:"mainnet_explorer,omitempty"`
	TestnetExplorer string   `json:"testnet_explorer,omitempty" yaml:"testnet_explorer,omitempty"`
}

// Registry is the network registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of built-in networks.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, 2*len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
		if c.TestnetChainID != 0 {
			r.byID[c.TestnetChainID] = c
		}
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a network by its slug (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return c, nil
}

// GetByChainID finds a network by a mainnet or testnet chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrChainNotFound, id)
	}
	return c, nil
}

// RPCs returns the public endpoints for mode.
func (c *Chain) RPCs(mode string) []string {
	if mode == ModeTestnet {
		return c.TestnetRPCs
	}
	return c.MainnetRPCs
}

// Explorer returns the block explorer base URL for mode, or "".
func (c *Chain) Explorer(mode string) string {
	if mode == ModeTestnet {
		return c.TestnetExplorer
	}
	return c.MainnetExplorer
}

// ID returns the chain ID for mode.
func (c *Chain) ID(mode string) int64 {
	if mode == ModeTestnet {
		return c.TestnetChainID
	}
	return c.ChainID
}

// Label is the human name for mode, e.g. "Ethereum Sepolia".
func (c *Chain) Label(mode string) string {
	if mode == ModeTestnet && c.TestnetName != "" {
		if strings.HasPrefix(c.TestnetName, c.DisplayName) {
			return c.TestnetName
		}
		return c.DisplayName + " " + c.TestnetName
	}
	return c.DisplayName
}

// TxURL links a transaction on the explorer for mode, or "" if the network
// has none.
func (c *Chain) TxURL(mode, hash string) string {
	base := c.Explorer(mode)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/tx/" + hash
}

// AddressURL links an account or contract on the explorer for mode.
func (c *Chain) AddressURL(mode, addr string) string {
	base := c.Explorer(mode)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/address/" + addr
}

// ValidMode reports whether mode is mainnet or testnet.
func ValidMode(mode string) bool {
	return mode == ModeMainnet || mode == ModeTestnet
}

// --- network data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum", NativeCurrency: "ETH",
			ChainID: 1, TestnetChainID: 11155111, TestnetName: "Sepolia",
			MainnetRPCs:     []string{"https://ethereum-rpc.publicnode.com", "https://eth.llamarpc.com"},
			TestnetRPCs:     []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co"},
			MainnetExplorer: "https://etherscan.io",
			TestnetExplorer: "https://sepolia.etherscan.io",
		},
		{
			Name: "base", DisplayName: "Base", NativeCurrency: "ETH",
			ChainID: 8453, TestnetChainID: 84532, TestnetName: "Base Sepolia",
			MainnetRPCs:     []string{"https://mainnet.base.org", "https://base-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://sepolia.base.org"},
			MainnetExplorer: "https://basescan.org",
			TestnetExplorer: "https://sepolia.basescan.org",
		},
		{
			Name: "polygon", DisplayName: "Polygon", NativeCurrency: "POL",
			ChainID: 137, TestnetChainID: 80002, TestnetName: "Amoy",
			MainnetRPCs:     []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-rpc.com"},
			TestnetRPCs:     []string{"https://rpc-amoy.polygon.technology"},
			MainnetExplorer: "https://polygonscan.com",
			TestnetExplorer: "https://amoy.polygonscan.com",
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum", NativeCurrency: "ETH",
			ChainID: 42161, TestnetChainID: 421614, TestnetName: "Arbitrum Sepolia",
			MainnetRPCs:     []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum-one-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer: "https://arbiscan.io",
			TestnetExplorer: "https://sepolia.arbiscan.io",
		},
		{
			Name: "optimism", DisplayName: "Optimism", NativeCurrency: "ETH",
			ChainID: 10, TestnetChainID: 11155420, TestnetName: "OP Sepolia",
			MainnetRPCs:     []string{"https://mainnet.optimism.io", "https://optimism-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://sepolia.optimism.io"},
			MainnetExplorer: "https://optimistic.etherscan.io",
			TestnetExplorer: "https://sepolia-optimism.etherscan.io",
		},
		{
			Name: "bnb", DisplayName: "BNB Chain", NativeCurrency: "BNB",
			ChainID: 56, TestnetChainID: 97, TestnetName: "BSC Testnet",
			MainnetRPCs:     []string{"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://data-seed-prebsc-1-s1.binance.org:8545"},
			MainnetExplorer: "https://bscscan.com",
			TestnetExplorer: "https://testnet.bscscan.com",
		},
		{
			Name: "avalanche", DisplayName: "Avalanche", NativeCurrency: "AVAX",
			ChainID: 43114, TestnetChainID: 43113, TestnetName: "Fuji",
			MainnetRPCs:     []string{"https://api.avax.network/ext/bc/C/rpc", "https://avalanche-c-chain-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://api.avax-test.network/ext/bc/C/rpc"},
			MainnetExplorer: "https://snowtrace.io",
			TestnetExplorer: "https://testnet.snowtrace.io",
		},
		{
			Name: "linea", DisplayName: "Linea", NativeCurrency: "ETH",
			ChainID: 59144, TestnetChainID: 59141, TestnetName: "Linea Sepolia",
			MainnetRPCs:     []string{"https://rpc.linea.build"},
			TestnetRPCs:     []string{"https://rpc.sepolia.linea.build"},
			MainnetExplorer: "https://lineascan.build",
			TestnetExplorer: "https://sepolia.lineascan.build",
		},
		{
			Name: "gnosis", DisplayName: "Gnosis", NativeCurrency: "xDAI",
			ChainID: 100, TestnetChainID: 10200, TestnetName: "Chiado",
			MainnetRPCs:     []string{"https://rpc.gnosischain.com", "https://gnosis-rpc.publicnode.com"},
			TestnetRPCs:     []string{"https://rpc.chiadochain.net"},
			MainnetExplorer: "https://gnosisscan.io",
			TestnetExplorer: "https://gnosis-chiado.blockscout.com",
		},
		// Local dev node (anvil, hardhat). Both modes point at the same node.
		{
			Name: "local", DisplayName: "Local", NativeCurrency: "ETH",
			ChainID: 31337, TestnetChainID: 31337, TestnetName: "Local",
			MainnetRPCs: []string{"http://127.0.0.1:8545"},
			TestnetRPCs: []string{"http://127.0.0.1:8545"},
		},
	}
}
