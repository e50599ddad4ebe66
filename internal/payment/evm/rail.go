// Package evm implements the payment rail with ERC-20 token transfers
// signed by the treasury key.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

// transferSelector is the 4-byte selector of transfer(address,uint256).
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

// transferGasLimit covers a standard ERC-20 transfer with headroom for
// tokens that do bookkeeping on transfer.
const transferGasLimit = 100_000

// Rail sends ERC-20 transfers from the treasury account.
type Rail struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// New dials the RPC endpoint and prepares a Rail signing with the given
// hex-encoded private key.
func New(ctx context.Context, rpcURL string, chainID int64, privateKeyHex string) (*Rail, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}

	key, err := gethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("evm: parse private key: %w", err)
	}

	return &Rail{
		client:  client,
		key:     key,
		from:    gethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

// From returns the treasury account address derived from the signing key.
func (r *Rail) From() common.Address {
	return r.from
}

// Close releases the underlying RPC connection.
func (r *Rail) Close() {
	r.client.Close()
}

// TransferOut sends amount of the asset's smallest unit to account and
// returns the transaction hash. The transaction is submitted, not awaited;
// callers treat the hash as the transfer reference.
func (r *Rail) TransferOut(ctx context.Context, asset, account string, amount int64) (string, error) {
	if !common.IsHexAddress(asset) {
		return "", fmt.Errorf("evm: %w: asset %q", domain.ErrInvalidAsset, asset)
	}
	if !common.IsHexAddress(account) {
		return "", fmt.Errorf("evm: invalid account address %q", account)
	}
	if amount <= 0 {
		return "", fmt.Errorf("evm: non-positive amount %d", amount)
	}

	token := common.HexToAddress(asset)
	to := common.HexToAddress(account)

	nonce, err := r.client.PendingNonceAt(ctx, r.from)
	if err != nil {
		return "", fmt.Errorf("evm: pending nonce: %w", err)
	}
	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("evm: suggest gas price: %w", err)
	}

	tx := types.NewTransaction(
		nonce, token, big.NewInt(0), transferGasLimit, gasPrice,
		transferCalldata(to, big.NewInt(amount)),
	)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return "", fmt.Errorf("evm: sign tx: %w", err)
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("evm: send tx: %w", err)
	}

	return signed.Hash().Hex(), nil
}

// transferCalldata ABI-encodes a transfer(address,uint256) call.
func transferCalldata(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, transferSelector...)

	var addr [32]byte
	copy(addr[12:], to.Bytes())
	data = append(data, addr[:]...)

	var amt [32]byte
	amount.FillBytes(amt[:])
	data = append(data, amt[:]...)

	return data
}

// Compile-time interface check.
var _ domain.PaymentRail = (*Rail)(nil)
