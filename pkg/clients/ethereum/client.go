// Package ethereum resolves chain ids to node endpoints and hands out
// connected RPC handles that can be subscribed to and closed.
package ethereum

import (
	"context"
	"math/big"
	"sync"

	"github.com/Layr-Labs/chainwatch/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ChainClient is the subset of a node connection the watchers and the
// transaction builder depend on. *ethclient.Client satisfies it.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

// ClientProvider yields a connected client for a chain. Callers own the
// returned client and must Close it.
type ClientProvider interface {
	Connect(ctx context.Context, chainId uint64) (ChainClient, error)
}

type EthereumClientConfig struct {
	ChainUrls map[uint64]string
}

func ConvertGlobalConfigToEthereumConfig(cfg *config.EthereumRpcConfig) *EthereumClientConfig {
	urls := make(map[uint64]string, len(cfg.ChainUrls))
	for id, url := range cfg.ChainUrls {
		urls[id] = url
	}
	return &EthereumClientConfig{
		ChainUrls: urls,
	}
}

// Client dials a fresh connection for every Connect call.
type Client struct {
	config *EthereumClientConfig
	logger *zap.Logger

	mu sync.Mutex
	// verified holds chain ids whose endpoint already reported the expected id
	verified map[uint64]bool
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	return &Client{
		config:   cfg,
		logger:   l,
		verified: make(map[uint64]bool),
	}
}

// Connect dials the endpoint configured for chainId. The first connection to
// each endpoint checks that the node actually serves that chain.
func (c *Client) Connect(ctx context.Context, chainId uint64) (ChainClient, error) {
	url, ok := c.config.ChainUrls[chainId]
	if !ok {
		return nil, errors.Errorf("no rpc url configured for chain %d", chainId)
	}

	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		c.logger.Sugar().Errorw("Failed to dial ethereum node",
			zap.Uint64("chainId", chainId),
			zap.Error(err),
		)
		return nil, errors.Wrapf(err, "failed to dial chain %d", chainId)
	}
	client := ethclient.NewClient(rpcClient)

	c.mu.Lock()
	alreadyVerified := c.verified[chainId]
	c.mu.Unlock()
	if alreadyVerified {
		return client, nil
	}

	remoteId, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to get chain id for chain %d", chainId)
	}
	if remoteId.Uint64() != chainId {
		client.Close()
		return nil, errors.Errorf("endpoint for chain %d reports chain id %s", chainId, remoteId.String())
	}

	c.mu.Lock()
	c.verified[chainId] = true
	c.mu.Unlock()

	c.logger.Sugar().Debugw("Connected to ethereum node", zap.Uint64("chainId", chainId))
	return client, nil
}
