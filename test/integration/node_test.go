package integration_test

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/tokendesk/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

const nodeChainID = 31337

// node is a JSON-RPC server with one ERC20 contract deployed. It answers
// the calls an ethclient makes for reads, transfers and log queries.
type node struct {
	t     *testing.T
	token common.Address

	mu       sync.Mutex
	head     uint64
	balances map[common.Address]*big.Int
	logs     []types.Log
	sent     []*types.Transaction
	revert   bool
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newNode(t *testing.T) (*node, *httptest.Server) {
	t.Helper()
	n := &node{
		t:        t,
		token:    common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		head:     100,
		balances: make(map[common.Address]*big.Int),
	}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func (n *node) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, rpcErr := n.handle(req)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *node) handle(req rpcRequest) (any, map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch req.Method {
	case "eth_chainId":
		return hexutil.Uint64(nodeChainID), nil
	case "eth_blockNumber":
		return hexutil.Uint64(n.head), nil
	case "eth_getCode":
		var addr common.Address
		n.param(req, 0, &addr)
		if addr == n.token {
			return hexutil.Bytes{0x60, 0x80}, nil
		}
		return hexutil.Bytes{}, nil
	case "eth_call":
		return n.call(req)
	case "eth_estimateGas":
		if n.revert {
			return nil, revertError("insufficient balance")
		}
		return hexutil.Uint64(60000), nil
	case "eth_getTransactionCount":
		return hexutil.Uint64(len(n.sent)), nil
	case "eth_maxPriorityFeePerGas":
		return (*hexutil.Big)(big.NewInt(params.GWei)), nil
	case "eth_gasPrice":
		return (*hexutil.Big)(big.NewInt(2 * params.GWei)), nil
	case "eth_getBlockByNumber":
		return &types.Header{
			Number:     new(big.Int).SetUint64(n.head),
			Difficulty: new(big.Int),
			GasLimit:   30_000_000,
			BaseFee:    big.NewInt(params.GWei),
		}, nil
	case "eth_sendRawTransaction":
		return n.sendRaw(req)
	case "eth_getTransactionReceipt":
		var hash common.Hash
		n.param(req, 0, &hash)
		for _, tx := range n.sent {
			if tx.Hash() == hash {
				return &types.Receipt{
					Type:              tx.Type(),
					Status:            types.ReceiptStatusSuccessful,
					CumulativeGasUsed: 50000,
					GasUsed:           50000,
					Logs:              []*types.Log{},
					TxHash:            hash,
					BlockNumber:       new(big.Int).SetUint64(n.head),
				}, nil
			}
		}
		return nil, nil
	case "eth_getLogs":
		var q struct {
			FromBlock hexutil.Uint64 `json:"fromBlock"`
			ToBlock   hexutil.Uint64 `json:"toBlock"`
		}
		n.param(req, 0, &q)
		out := []types.Log{}
		for _, l := range n.logs {
			if l.BlockNumber >= uint64(q.FromBlock) && l.BlockNumber <= uint64(q.ToBlock) {
				out = append(out, l)
			}
		}
		return out, nil
	}
	return nil, map[string]any{"code": -32601, "message": "method not found: " + req.Method}
}

func (n *node) param(req rpcRequest, i int, v any) {
	n.t.Helper()
	if i >= len(req.Params) {
		n.t.Errorf("%s: missing param %d", req.Method, i)
		return
	}
	if err := json.Unmarshal(req.Params[i], v); err != nil {
		n.t.Errorf("%s: param %d: %v", req.Method, i, err)
	}
}

func (n *node) call(req rpcRequest) (any, map[string]any) {
	var msg struct {
		To    common.Address `json:"to"`
		Data  hexutil.Bytes  `json:"data"`
		Input hexutil.Bytes  `json:"input"`
	}
	n.param(req, 0, &msg)
	data := msg.Input
	if len(data) == 0 {
		data = msg.Data
	}
	if msg.To != n.token || len(data) < 4 {
		return hexutil.Bytes{}, nil
	}
	abi := token.ERC20ABI()
	method, err := abi.MethodById(data[:4])
	if err != nil {
		return nil, map[string]any{"code": -32000, "message": "execution reverted"}
	}
	var out []byte
	switch method.Name {
	case "name":
		out, err = method.Outputs.Pack("Desk Token")
	case "symbol":
		out, err = method.Outputs.Pack("DESK")
	case "decimals":
		out, err = method.Outputs.Pack(uint8(18))
	case "totalSupply":
		out, err = method.Outputs.Pack(new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether)))
	case "balanceOf":
		args, uerr := method.Inputs.Unpack(data[4:])
		if uerr != nil {
			return nil, revertError(uerr.Error())
		}
		out, err = method.Outputs.Pack(n.balanceLocked(args[0].(common.Address)))
	default:
		return nil, revertError("unsupported")
	}
	if err != nil {
		n.t.Errorf("packing %s: %v", method.Name, err)
	}
	return hexutil.Bytes(out), nil
}

func (n *node) sendRaw(req rpcRequest) (any, map[string]any) {
	var raw hexutil.Bytes
	n.param(req, 0, &raw)
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, map[string]any{"code": -32000, "message": err.Error()}
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(nodeChainID)), tx)
	if err != nil {
		return nil, map[string]any{"code": -32000, "message": "invalid sender"}
	}
	erc20 := token.ERC20ABI()
	method, err := erc20.MethodById(tx.Data()[:4])
	if err != nil || method.Name != "transfer" {
		return nil, map[string]any{"code": -32000, "message": "not a transfer"}
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return nil, map[string]any{"code": -32000, "message": err.Error()}
	}
	to, amount := args[0].(common.Address), args[1].(*big.Int)

	n.head++
	n.sent = append(n.sent, tx)
	n.balances[from] = new(big.Int).Sub(n.balanceLocked(from), amount)
	n.balances[to] = new(big.Int).Add(n.balanceLocked(to), amount)
	n.appendLogLocked(from, to, amount, tx.Hash())
	return tx.Hash(), nil
}

// emit mines a block holding one Transfer log.
func (n *node) emit(from, to common.Address, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head++
	n.appendLogLocked(from, to, amount, crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d", n.head))))
}

func (n *node) appendLogLocked(from, to common.Address, amount *big.Int, txHash common.Hash) {
	n.logs = append(n.logs, types.Log{
		Address: n.token,
		Topics: []common.Hash{
			token.TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(amount.Bytes(), 32),
		BlockNumber: n.head,
		TxHash:      txHash,
		Index:       uint(len(n.logs)),
	})
}

func (n *node) balanceLocked(a common.Address) *big.Int {
	if b, ok := n.balances[a]; ok {
		return b
	}
	return new(big.Int)
}

func (n *node) setBalance(a common.Address, v *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[a] = v
}

func (n *node) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func revertError(reason string) map[string]any {
	// Error(string) selector followed by the ABI-encoded reason.
	padded := common.RightPadBytes([]byte(reason), (len(reason)+31)/32*32)
	data := "0x08c379a0" +
		hex.EncodeToString(common.LeftPadBytes([]byte{0x20}, 32)) +
		hex.EncodeToString(common.LeftPadBytes(big.NewInt(int64(len(reason))).Bytes(), 32)) +
		hex.EncodeToString(padded)
	return map[string]any{
		"code":    3,
		"message": "execution reverted: " + reason,
		"data":    strings.ToLower(data),
	}
}
