// internal/infra/ethereum/sender.go
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Gas limit for a plain ETH value transfer.
const transferGasLimit = uint64(21000)

// Sender implements the transfer executor by signing and broadcasting plain
// value transfers from the pot wallet. Test-mode transfers are routed to a
// separately configured test network endpoint.
type Sender struct {
	privateKey *ecdsa.PrivateKey
	client     *ethclient.Client
	testClient *ethclient.Client // nil when no test endpoint is configured
	logger     *logrus.Logger
}

func NewSender(rpcURL, testRPCURL, privateKeyHex string, logger *logrus.Logger) (*Sender, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	var testClient *ethclient.Client
	if testRPCURL != "" {
		testClient, err = ethclient.Dial(testRPCURL)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to dial test RPC endpoint: %w", err)
		}
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		if testClient != nil {
			testClient.Close()
		}
		return nil, fmt.Errorf("invalid payout private key: %w", err)
	}

	return &Sender{
		privateKey: privateKey,
		client:     client,
		testClient: testClient,
		logger:     logger,
	}, nil
}

// Close releases the underlying RPC connections.
func (s *Sender) Close() {
	s.client.Close()
	if s.testClient != nil {
		s.testClient.Close()
	}
}

// Send transfers amount (denominated in ether) to address and returns the
// transaction hash. The caller bounds the call with a context deadline; a
// timed-out transfer surfaces as an error and is treated as failed.
func (s *Sender) Send(ctx context.Context, address string, amount decimal.Decimal, testMode bool) (string, error) {
	client := s.client
	if testMode {
		if s.testClient == nil {
			return "", fmt.Errorf("test mode requested but ETH_TEST_RPC_URL is not configured")
		}
		client = s.testClient
	}

	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid destination address: %s", address)
	}
	to := common.HexToAddress(address)
	from := crypto.PubkeyToAddress(s.privateKey.PublicKey)

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch pending nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, toWei(amount), transferGasLimit, gasPrice, nil)

	chainID, err := client.NetworkID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch chain ID: %w", err)
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to broadcast transfer: %w", err)
	}

	hash := signedTx.Hash().Hex()
	s.logger.Debugf("Broadcast transfer of %s ETH to %s (tx %s, testMode=%v).", amount, address, hash, testMode)
	return hash, nil
}

// toWei converts an ether-denominated decimal amount to wei, truncating any
// sub-wei precision.
func toWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(18).Truncate(0).BigInt()
}
