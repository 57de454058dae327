package tests

import (
	"context"
	"math/big"
	"sync"

	"github.com/Layr-Labs/chainwatch/pkg/clients/ethereum"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// FakeSubscription records Unsubscribe calls on its client.
type FakeSubscription struct {
	name   string
	client *FakeChainClient
	errCh  chan error
	once   sync.Once
}

func (s *FakeSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.record("unsubscribe:" + s.name)
		close(s.errCh)
	})
}

func (s *FakeSubscription) Err() <-chan error {
	return s.errCh
}

// Fail ends the subscription with err.
func (s *FakeSubscription) Fail(err error) {
	s.errCh <- err
}

// FakeChainClient is an in-memory ethereum.ChainClient. Every call is
// appended to Calls so tests can assert on ordering.
type FakeChainClient struct {
	mu    sync.Mutex
	Calls []string

	ChainId       *big.Int
	Blocks        map[uint64]*types.Block
	BlockErr      error
	PendingHeader *types.Header
	Nonce         uint64
	GasEstimate   uint64
	EstimateErr   error
	CallResult    []byte
	CallErr       error
	SendErr       error

	Sent      []*types.Transaction
	CallMsgs  []geth.CallMsg
	Queries   []geth.FilterQuery
	HeadsCh   chan<- *types.Header
	LogsCh    chan<- types.Log
	HeadSub   *FakeSubscription
	LogSub    *FakeSubscription
	Subscribe chan struct{}
}

var _ ethereum.ChainClient = (*FakeChainClient)(nil)

func NewFakeChainClient() *FakeChainClient {
	return &FakeChainClient{
		ChainId:   big.NewInt(1),
		Blocks:    make(map[uint64]*types.Block),
		Calls:     make([]string, 0),
		Subscribe: make(chan struct{}, 2),
	}
}

func (f *FakeChainClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

// CallLog returns a copy of the recorded calls.
func (f *FakeChainClient) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	copy(out, f.Calls)
	return out
}

func (f *FakeChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	f.record("chainId")
	return f.ChainId, nil
}

func (f *FakeChainClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (geth.Subscription, error) {
	f.record("subscribe:heads")
	f.mu.Lock()
	f.HeadsCh = ch
	f.HeadSub = &FakeSubscription{name: "heads", client: f, errCh: make(chan error, 1)}
	sub := f.HeadSub
	f.mu.Unlock()
	f.Subscribe <- struct{}{}
	return sub, nil
}

func (f *FakeChainClient) SubscribeFilterLogs(ctx context.Context, q geth.FilterQuery, ch chan<- types.Log) (geth.Subscription, error) {
	f.record("subscribe:logs")
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.LogsCh = ch
	f.LogSub = &FakeSubscription{name: "logs", client: f, errCh: make(chan error, 1)}
	sub := f.LogSub
	f.mu.Unlock()
	f.Subscribe <- struct{}{}
	return sub, nil
}

func (f *FakeChainClient) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	f.record("block:" + number.String())
	if f.BlockErr != nil {
		return nil, f.BlockErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.Blocks[number.Uint64()]
	if !ok {
		return nil, geth.NotFound
	}
	return block, nil
}

func (f *FakeChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	f.record("header")
	if f.PendingHeader == nil {
		return nil, errors.New("no pending header")
	}
	return f.PendingHeader, nil
}

func (f *FakeChainClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	f.record("nonce")
	return f.Nonce, nil
}

func (f *FakeChainClient) EstimateGas(ctx context.Context, msg geth.CallMsg) (uint64, error) {
	f.record("estimateGas")
	f.mu.Lock()
	f.CallMsgs = append(f.CallMsgs, msg)
	f.mu.Unlock()
	return f.GasEstimate, f.EstimateErr
}

func (f *FakeChainClient) CallContract(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.record("call")
	f.mu.Lock()
	f.CallMsgs = append(f.CallMsgs, msg)
	f.mu.Unlock()
	return f.CallResult, f.CallErr
}

func (f *FakeChainClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.record("send")
	if f.SendErr != nil {
		return f.SendErr
	}
	f.mu.Lock()
	f.Sent = append(f.Sent, tx)
	f.mu.Unlock()
	return nil
}

func (f *FakeChainClient) Close() {
	f.record("close")
}

// FakeClientProvider hands out the same client for every chain.
type FakeClientProvider struct {
	Client     *FakeChainClient
	ConnectErr error
	Connects   int
}

func (p *FakeClientProvider) Connect(ctx context.Context, chainId uint64) (ethereum.ChainClient, error) {
	p.Connects++
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	return p.Client, nil
}
