package config

// Config holds all tokendesk configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network" yaml:"default_network"`
	NetworkMode    string              `json:"network_mode" yaml:"network_mode"`   // "mainnet" | "testnet"
	RPCAlgorithm   string              `json:"rpc_algorithm" yaml:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	DefaultWallet  string              `json:"default_wallet" yaml:"default_wallet"`
	SignerURL      string              `json:"signer_url,omitempty" yaml:"signer_url,omitempty"` // external signer; empty means local wallets
	LogLevel       string              `json:"log_level" yaml:"log_level"`
	LogFormat      string              `json:"log_format" yaml:"log_format"` // "text" | "json"
	CustomRPCs     map[string][]string `json:"custom_rpcs" yaml:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}
