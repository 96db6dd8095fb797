// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"fmt"
	"strings"

	"github.com/luxfi/geth/accounts/abi"
)

// Call signatures of the contracts the routes submit to.
const (
	erc20ABI = `[
		{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
			{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"type":"bool"}]}
	]`

	tokenBridgeABI = `[
		{"type":"function","name":"transferTokens","stateMutability":"payable","inputs":[
			{"name":"token","type":"address"},{"name":"amount","type":"uint256"},
			{"name":"recipientChain","type":"uint16"},{"name":"recipient","type":"bytes32"},
			{"name":"arbiterFee","type":"uint256"},{"name":"nonce","type":"uint32"}],"outputs":[{"type":"uint64"}]},
		{"type":"function","name":"wrapAndTransferETH","stateMutability":"payable","inputs":[
			{"name":"recipientChain","type":"uint16"},{"name":"recipient","type":"bytes32"},
			{"name":"arbiterFee","type":"uint256"},{"name":"nonce","type":"uint32"}],"outputs":[{"type":"uint64"}]},
		{"type":"function","name":"transferTokensWithPayload","stateMutability":"payable","inputs":[
			{"name":"token","type":"address"},{"name":"amount","type":"uint256"},
			{"name":"recipientChain","type":"uint16"},{"name":"recipient","type":"bytes32"},
			{"name":"nonce","type":"uint32"},{"name":"payload","type":"bytes"}],"outputs":[{"type":"uint64"}]}
	]`

	tokenBridgeRelayerABI = `[
		{"type":"function","name":"transferTokensWithRelay","stateMutability":"payable","inputs":[
			{"name":"token","type":"address"},{"name":"amount","type":"uint256"},
			{"name":"toNativeTokenAmount","type":"uint256"},{"name":"targetChain","type":"uint16"},
			{"name":"targetRecipient","type":"bytes32"},{"name":"batchId","type":"uint32"}],"outputs":[{"type":"uint64"}]},
		{"type":"function","name":"wrapAndTransferEthWithRelay","stateMutability":"payable","inputs":[
			{"name":"toNativeTokenAmount","type":"uint256"},{"name":"targetChain","type":"uint16"},
			{"name":"targetRecipient","type":"bytes32"},{"name":"batchId","type":"uint32"}],"outputs":[{"type":"uint64"}]}
	]`

	cctpABI = `[
		{"type":"function","name":"depositForBurn","stateMutability":"nonpayable","inputs":[
			{"name":"amount","type":"uint256"},{"name":"destinationDomain","type":"uint32"},
			{"name":"mintRecipient","type":"bytes32"},{"name":"burnToken","type":"address"}],"outputs":[{"type":"uint64"}]},
		{"type":"function","name":"transferTokensWithRelay","stateMutability":"payable","inputs":[
			{"name":"token","type":"address"},{"name":"amount","type":"uint256"},
			{"name":"toNativeTokenAmount","type":"uint256"},{"name":"targetChain","type":"uint16"},
			{"name":"targetRecipientWallet","type":"bytes32"}],"outputs":[{"type":"uint64"}]}
	]`

	nttManagerABI = `[
		{"type":"function","name":"transfer","stateMutability":"payable","inputs":[
			{"name":"amount","type":"uint256"},{"name":"recipientChain","type":"uint16"},
			{"name":"recipient","type":"bytes32"},{"name":"refundAddress","type":"bytes32"},
			{"name":"shouldQueue","type":"bool"},{"name":"transceiverInstructions","type":"bytes"}],"outputs":[{"type":"uint64"}]}
	]`

	tbtcGatewayABI = `[
		{"type":"function","name":"sendTbtc","stateMutability":"payable","inputs":[
			{"name":"amount","type":"uint256"},{"name":"recipientChain","type":"uint16"},
			{"name":"recipient","type":"bytes32"},{"name":"arbiterFee","type":"uint256"},
			{"name":"nonce","type":"uint32"}],"outputs":[{"type":"uint64"}]}
	]`
)

var (
	erc20            = mustParseABI(erc20ABI)
	tokenBridge      = mustParseABI(tokenBridgeABI)
	tokenBridgeRelay = mustParseABI(tokenBridgeRelayerABI)
	cctpContracts    = mustParseABI(cctpABI)
	nttManager       = mustParseABI(nttManagerABI)
	tbtcGateway      = mustParseABI(tbtcGatewayABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

func pack(contract abi.ABI, method string, args ...any) ([]byte, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return data, nil
}
