package token

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// erc20JSON is the subset of EIP-20 the session talks to.
//
// Function selectors:
//
//	name()              → 0x06fdde03
//	symbol()            → 0x95d89b41
//	decimals()          → 0x313ce567
//	totalSupply()       → 0x18160ddd
//	balanceOf(address)  → 0x70a08231
//	transfer(a,u256)    → 0xa9059cbb
//
//go:embed erc20.abi.json
var erc20JSON []byte

var erc20ABI = mustParseABI(erc20JSON)

// TransferTopic is topic[0] of every Transfer(address,address,uint256) log.
var TransferTopic = EventTopic("Transfer(address,address,uint256)")

// knownEventTopics labels the logs a token contract commonly emits.
var knownEventTopics = map[common.Hash]string{
	TransferTopic: "Transfer",
	EventTopic("Approval(address,address,uint256)"): "Approval",
}

// ERC20ABI returns the parsed token ABI.
func ERC20ABI() abi.ABI { return erc20ABI }

// EventTopic computes the keccak-256 topic of an event signature such as
// "Transfer(address,address,uint256)".
func EventTopic(sig string) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return common.BytesToHash(h.Sum(nil))
}

// EventName returns the human name for a log's first topic, or "" when unknown.
func EventName(topic common.Hash) string {
	return knownEventTopics[topic]
}

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("token: parsing embedded ERC20 ABI: %v", err))
	}
	if parsed.Events["Transfer"].ID != EventTopic("Transfer(address,address,uint256)") {
		panic("token: embedded Transfer event does not match its signature")
	}
	return parsed
}
