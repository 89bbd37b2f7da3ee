package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/tokendesk/internal/chain"
	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/rpc"
	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// conn is a token session bound to one network endpoint.
type conn struct {
	chain   *chain.Chain
	mode    string
	rpcURL  string
	client  *ethclient.Client
	session *token.Session
}

// Close releases the subscription and the RPC connection.
func (c *conn) Close() {
	c.session.Close()
	c.client.Close()
}

// label is e.g. "Ethereum Sepolia".
func (c *conn) label() string { return c.chain.Label(c.mode) }

func (c *conn) txURL(hash string) string { return c.chain.TxURL(c.mode, hash) }

// connect resolves the network, picks an endpoint, dials it and opens a
// session with the configured wallet. approve guards local signing.
func connect(ctx context.Context, approve wallet.Approver) (*conn, error) {
	c, mode, err := resolveNetwork()
	if err != nil {
		return nil, err
	}
	url, err := pickRPC(ctx, c, mode)
	if err != nil {
		return nil, err
	}
	client, err := chain.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrConnection, err)
	}
	provider, err := newProvider(approve)
	if err != nil {
		client.Close()
		return nil, err
	}

	sessionLog := log.WithFields(logrus.Fields{"network": c.Name, "mode": mode})
	sess := token.NewSession(client, provider,
		token.WithLogger(sessionLog),
		token.WithConfirmTimeout(config.TxConfirmTimeout),
	)
	sessionLog.WithField("rpc", url).Debug("connected")
	return &conn{chain: c, mode: mode, rpcURL: url, client: client, session: sess}, nil
}

// resolveNetwork returns the --network chain or the configured default.
func resolveNetwork() (*chain.Chain, string, error) {
	name := networkFlag
	if name == "" {
		name = cfg.DefaultNetwork
	}
	c, err := chain.NewRegistry().GetByName(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w (run `tokendesk network list` to see all networks)", err)
	}
	if !chain.ValidMode(cfg.NetworkMode) {
		return nil, "", fmt.Errorf("invalid network mode %q (mainnet|testnet)", cfg.NetworkMode)
	}
	return c, cfg.NetworkMode, nil
}

// candidateRPCs lists endpoints to try: --rpc alone, else custom RPCs
// ahead of the built-in ones.
func candidateRPCs(c *chain.Chain, mode string) []string {
	if rpcFlag != "" {
		return []string{rpcFlag}
	}
	urls := append([]string(nil), cfg.GetRPCs(c.Name)...)
	return append(urls, c.RPCs(mode)...)
}

func pickRPC(ctx context.Context, c *chain.Chain, mode string) (string, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	url, err := rpc.SelectBest(ctx, candidateRPCs(c, mode), c.ID(mode), algo, log)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", token.ErrConnection, c.Label(mode), err)
	}
	return url, nil
}

// newProvider returns the external signer when one is configured, else the
// selected local wallet. No wallet at all yields a nil Provider, which is
// enough for read-only commands.
func newProvider(approve wallet.Approver) (wallet.Provider, error) {
	endpoint := signerFlag
	if endpoint == "" {
		endpoint = cfg.SignerURL
	}
	if endpoint != "" {
		p, err := wallet.DialExternal(endpoint)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	mgr := newWalletManager()
	name := walletFlag
	if name == "" {
		name = cfg.DefaultWallet
	}
	var w *wallet.Wallet
	if name != "" {
		var err error
		if w, err = mgr.Get(name); err != nil {
			return nil, err
		}
	} else {
		w = mgr.Default()
	}
	if w == nil {
		return nil, nil
	}
	return wallet.NewLocalProvider(w, mgr.Keystore(), approve), nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
}
