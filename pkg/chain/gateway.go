// Package chain is the only place that talks to the deployed NFTennis
// contract. Reads are eth_calls; writes are signed locally, preflighted with
// eth_call to surface revert reasons, sent, and awaited until mined.
package chain

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/nftennis/nftennis-backend/pkg/config"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	"github.com/nftennis/nftennis-backend/pkg/metrics"
)

//go:embed nftennis.abi.json
var contractABI string

const (
	defaultGasLimit       = 3_000_000
	defaultReceiptTimeout = 2 * time.Minute
)

// Backend is what the gateway needs from a node connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Params configures a Gateway.
type Params struct {
	Backend        Backend
	Contract       common.Address
	Operator       common.Address
	Keyring        *Keyring
	GasLimit       uint64
	ReceiptTimeout time.Duration
	Metrics        *metrics.ChainMetrics
}

// Gateway wraps the bound NFTennis contract.
type Gateway struct {
	backend        Backend
	abi            abi.ABI
	address        common.Address
	contract       *bind.BoundContract
	operator       common.Address
	keys           *Keyring
	gasLimit       uint64
	receiptTimeout time.Duration
	metrics        *metrics.ChainMetrics
}

func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABI))
}

func New(p Params) (*Gateway, error) {
	if p.Backend == nil {
		return nil, errors.New("chain backend required")
	}
	if p.Contract == (common.Address{}) {
		return nil, errors.New("contract address required")
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	keys := p.Keyring
	if keys == nil {
		keys = NewKeyring(big.NewInt(1))
	}
	gas := p.GasLimit
	if gas == 0 {
		gas = defaultGasLimit
	}
	timeout := p.ReceiptTimeout
	if timeout <= 0 {
		timeout = defaultReceiptTimeout
	}
	return &Gateway{
		backend:        p.Backend,
		abi:            parsed,
		address:        p.Contract,
		contract:       bind.NewBoundContract(p.Contract, parsed, p.Backend, p.Backend, p.Backend),
		operator:       p.Operator,
		keys:           keys,
		gasLimit:       gas,
		receiptTimeout: timeout,
		metrics:        p.Metrics,
	}, nil
}

// Dial connects to the configured RPC endpoint and loads the signing keys.
// It fails when the operator account cannot sign, since minting and
// sweeping both send from it.
func Dial(ctx context.Context, cfg config.ChainConfig, m *metrics.ChainMetrics) (*Gateway, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("read chain id: %w", err)
		}
	}

	keys, err := LoadKeyring(cfg, chainID)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	gw, err := New(Params{
		Backend:        client,
		Contract:       cfg.Contract(),
		Operator:       cfg.Operator(),
		Keyring:        keys,
		GasLimit:       cfg.GasLimit,
		ReceiptTimeout: cfg.ReceiptTimeout,
		Metrics:        m,
	})
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return gw, client, nil
}

func (g *Gateway) Address() common.Address  { return g.address }
func (g *Gateway) Operator() common.Address { return g.operator }

// CanSign reports whether writes can be issued from addr.
func (g *Gateway) CanSign(addr common.Address) bool {
	return g.keys.CanSign(addr)
}

// Ping checks the node is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.backend.HeaderByNumber(ctx, nil)
	return err
}

// LatestBlockTime returns the timestamp of the latest block, the clock
// auction end times are compared against on chain.
func (g *Gateway) LatestBlockTime(ctx context.Context) (time.Time, error) {
	head, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest header: %w", err)
	}
	return time.Unix(int64(head.Time), 0).UTC(), nil
}

func (g *Gateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	start := time.Now()
	var out []any
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		err = asRevert(method, err)
		g.observe(method, err, start)
		return nil, err
	}
	g.observe(method, nil, start)
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func (g *Gateway) TokenCounter(ctx context.Context) (*big.Int, error) {
	out, err := g.call(ctx, "tokenCounter")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (g *Gateway) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	out, err := g.call(ctx, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (g *Gateway) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	out, err := g.call(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Approved returns the address approved to transfer tokenID.
func (g *Gateway) Approved(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	out, err := g.call(ctx, "getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (g *Gateway) RarityName(ctx context.Context, rarity enums.Rarity) (string, error) {
	out, err := g.call(ctx, "getRarityName", uint8(rarity))
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (g *Gateway) ActiveAuctions(ctx context.Context) ([]*big.Int, error) {
	out, err := g.call(ctx, "getActiveAuctions")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

func (g *Gateway) OwnedTokens(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	out, err := g.call(ctx, "getOwnedNFTs", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// Auction reads the auction record for tokenID. Tokens that never had an
// auction come back zero-valued with Open false.
func (g *Gateway) Auction(ctx context.Context, tokenID *big.Int) (Auction, error) {
	out, err := g.call(ctx, "auctions", tokenID)
	if err != nil {
		return Auction{}, err
	}
	if len(out) != 6 {
		return Auction{}, fmt.Errorf("auctions: unexpected %d outputs", len(out))
	}
	return Auction{
		TokenID:       new(big.Int).Set(tokenID),
		Seller:        *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		HighestBid:    *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		HighestBidder: *abi.ConvertType(out[2], new(common.Address)).(*common.Address),
		BuyNowPrice:   *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
		EndTime:       (*abi.ConvertType(out[4], new(*big.Int)).(**big.Int)).Uint64(),
		Open:          *abi.ConvertType(out[5], new(bool)).(*bool),
	}, nil
}

// Mint issues mintNFT from the operator and returns the new token id parsed
// from the ERC-721 Transfer log.
func (g *Gateway) Mint(ctx context.Context, recipient common.Address, uri string, rarity enums.Rarity, media enums.MediaType) (Receipt, error) {
	receipt, err := g.transact(ctx, g.operator, nil, "mintNFT", recipient, uri, uint8(rarity), uint8(media))
	if err != nil {
		return Receipt{}, err
	}
	out := summarize(receipt)
	id, err := g.mintedTokenID(receipt)
	if err != nil {
		return out, err
	}
	out.TokenID = id
	return out, nil
}

// Approve lets the contract itself transfer tokenID, which startAuction requires.
func (g *Gateway) Approve(ctx context.Context, from common.Address, tokenID *big.Int) (Receipt, error) {
	receipt, err := g.transact(ctx, from, nil, "approve", g.address, tokenID)
	if err != nil {
		return Receipt{}, err
	}
	return summarize(receipt), nil
}

func (g *Gateway) StartAuction(ctx context.Context, from common.Address, tokenID *big.Int, duration time.Duration, buyNowPrice *big.Int) (Receipt, error) {
	if buyNowPrice == nil {
		buyNowPrice = new(big.Int)
	}
	secs := big.NewInt(int64(duration / time.Second))
	receipt, err := g.transact(ctx, from, nil, "startAuction", tokenID, secs, buyNowPrice)
	if err != nil {
		return Receipt{}, err
	}
	return summarize(receipt), nil
}

func (g *Gateway) Bid(ctx context.Context, from common.Address, tokenID, value *big.Int) (Receipt, error) {
	receipt, err := g.transact(ctx, from, value, "bid", tokenID)
	if err != nil {
		return Receipt{}, err
	}
	return summarize(receipt), nil
}

func (g *Gateway) BuyNow(ctx context.Context, from common.Address, tokenID, value *big.Int) (Receipt, error) {
	receipt, err := g.transact(ctx, from, value, "buyNow", tokenID)
	if err != nil {
		return Receipt{}, err
	}
	return summarize(receipt), nil
}

func (g *Gateway) EndAuction(ctx context.Context, from common.Address, tokenID *big.Int) (Receipt, error) {
	receipt, err := g.transact(ctx, from, nil, "endAuction", tokenID)
	if err != nil {
		return Receipt{}, err
	}
	return summarize(receipt), nil
}

// transact preflights the call, signs and sends it, then waits for the
// receipt. No retries: a failure at any step is returned to the caller.
func (g *Gateway) transact(ctx context.Context, from common.Address, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	start := time.Now()
	s, ok := g.keys.lookup(from)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownAccount, from.Hex())
		g.observe(method, err, start)
		return nil, err
	}

	input, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{From: from, To: &g.address, Gas: g.gasLimit, Value: value, Data: input}
	if _, err := g.backend.CallContract(ctx, msg, nil); err != nil {
		err = asRevert(method, err)
		g.observe(method, err, start)
		return nil, err
	}

	opts := &bind.TransactOpts{
		From:     from,
		Signer:   s.fn,
		Value:    value,
		GasLimit: g.gasLimit,
		Context:  ctx,
	}
	s.send.Lock()
	tx, err := g.contract.RawTransact(opts, input)
	s.send.Unlock()
	if err != nil {
		err = asRevert(method, err)
		g.observe(method, err, start)
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, g.backend, tx)
	if err != nil {
		g.observe(method, err, start)
		return nil, fmt.Errorf("wait for %s %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err := &RevertError{Method: method, TxHash: tx.Hash()}
		g.observe(method, err, start)
		return receipt, err
	}
	g.observe(method, nil, start)
	return receipt, nil
}

func (g *Gateway) mintedTokenID(receipt *types.Receipt) (*big.Int, error) {
	event := g.abi.Events["Transfer"]
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != g.address || len(lg.Topics) != 4 || lg.Topics[0] != event.ID {
			continue
		}
		if common.BytesToAddress(lg.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[3].Bytes()), nil
	}
	return nil, fmt.Errorf("mint %s: no Transfer log in receipt", receipt.TxHash.Hex())
}

func (g *Gateway) observe(method string, err error, start time.Time) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsRevert(err):
		outcome = "reverted"
	default:
		outcome = "error"
	}
	g.metrics.Observe(method, outcome, time.Since(start))
}

func summarize(r *types.Receipt) Receipt {
	out := Receipt{TxHash: r.TxHash, GasUsed: r.GasUsed}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
