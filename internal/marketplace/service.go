// Package marketplace assembles read views from contract state and token
// metadata. Listings tolerate per-item failures: an unreadable token is
// logged and left out rather than failing the whole response.
package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/nftennis/nftennis-backend/internal/metadata"
	"github.com/nftennis/nftennis-backend/pkg/chain"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	DefaultLimit       = 50
	MaxLimit           = 200
	defaultConcurrency = 8
)

type gateway interface {
	TokenCounter(ctx context.Context) (*big.Int, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	Auction(ctx context.Context, tokenID *big.Int) (chain.Auction, error)
	ActiveAuctions(ctx context.Context) ([]*big.Int, error)
	OwnedTokens(ctx context.Context, owner common.Address) ([]*big.Int, error)
}

type fetcher interface {
	Fetch(ctx context.Context, uri string) (*metadata.Document, error)
}

type Service interface {
	ListTokens(ctx context.Context, offset, limit int) (*TokenPage, error)
	ActiveAuctions(ctx context.Context) ([]AuctionView, error)
	Collection(ctx context.Context, owner common.Address) ([]CollectionItem, error)
	Token(ctx context.Context, tokenID *big.Int) (*TokenDetail, error)
}

type TokenView struct {
	TokenID *big.Int
	URI     string
	Owner   common.Address
}

type TokenPage struct {
	Total  *big.Int
	Offset int
	Limit  int
	Tokens []TokenView
}

type AuctionView struct {
	TokenView
	Auction  chain.Auction
	Metadata *metadata.Document
}

type CollectionItem struct {
	TokenView
	Metadata  *metadata.Document
	InAuction bool
}

type TokenDetail struct {
	TokenView
	Auction *chain.Auction
	// Metadata is nil when the document could not be fetched.
	Metadata *metadata.Document
}

type service struct {
	chain       gateway
	fetcher     fetcher
	logg        *logger.Logger
	concurrency int
}

func NewService(chain gateway, fetcher fetcher, concurrency int, logg *logger.Logger) (Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain gateway required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("metadata fetcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &service{chain: chain, fetcher: fetcher, logg: logg, concurrency: concurrency}, nil
}

// ListTokens pages through token ids [offset, offset+limit) below the token
// counter.
func (s *service) ListTokens(ctx context.Context, offset, limit int) (*TokenPage, error) {
	if offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset cannot be negative")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	total, err := s.chain.TokenCounter(ctx)
	if err != nil {
		return nil, chain.ToAPIError(err, "token counter read failed")
	}

	var ids []*big.Int
	start := big.NewInt(int64(offset))
	end := new(big.Int).Add(start, big.NewInt(int64(limit)))
	if end.Cmp(total) > 0 {
		end = total
	}
	for id := new(big.Int).Set(start); id.Cmp(end) < 0; id.Add(id, big.NewInt(1)) {
		ids = append(ids, new(big.Int).Set(id))
	}

	tokens, err := fanOut(ctx, s, "marketplace.token_skipped", ids, s.tokenView)
	if err != nil {
		return nil, err
	}
	return &TokenPage{Total: total, Offset: offset, Limit: limit, Tokens: tokens}, nil
}

func (s *service) ActiveAuctions(ctx context.Context) ([]AuctionView, error) {
	ids, err := s.chain.ActiveAuctions(ctx)
	if err != nil {
		return nil, chain.ToAPIError(err, "active auctions read failed")
	}
	return fanOut(ctx, s, "marketplace.auction_skipped", ids, func(ctx context.Context, id *big.Int) (AuctionView, error) {
		auction, err := s.chain.Auction(ctx, id)
		if err != nil {
			return AuctionView{}, err
		}
		view, err := s.tokenView(ctx, id)
		if err != nil {
			return AuctionView{}, err
		}
		doc, err := s.fetcher.Fetch(ctx, view.URI)
		if err != nil {
			return AuctionView{}, err
		}
		return AuctionView{TokenView: view, Auction: auction, Metadata: doc}, nil
	})
}

func (s *service) Collection(ctx context.Context, owner common.Address) ([]CollectionItem, error) {
	ids, err := s.chain.OwnedTokens(ctx, owner)
	if err != nil {
		return nil, chain.ToAPIError(err, "owned tokens read failed")
	}
	return fanOut(ctx, s, "marketplace.collection_item_skipped", ids, func(ctx context.Context, id *big.Int) (CollectionItem, error) {
		uri, err := s.chain.TokenURI(ctx, id)
		if err != nil {
			return CollectionItem{}, err
		}
		doc, err := s.fetcher.Fetch(ctx, uri)
		if err != nil {
			return CollectionItem{}, err
		}
		auction, err := s.chain.Auction(ctx, id)
		if err != nil {
			return CollectionItem{}, err
		}
		return CollectionItem{
			TokenView: TokenView{TokenID: id, URI: uri, Owner: owner},
			Metadata:  doc,
			InAuction: auction.Open,
		}, nil
	})
}

// Token reads a single token. Contract failures propagate; a metadata failure
// only leaves Metadata empty.
func (s *service) Token(ctx context.Context, tokenID *big.Int) (*TokenDetail, error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tokenId is required")
	}
	view, err := s.tokenView(ctx, tokenID)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "token not found")
		}
		return nil, chain.ToAPIError(err, "token read failed")
	}
	detail := &TokenDetail{TokenView: view}

	auction, err := s.chain.Auction(ctx, tokenID)
	if err != nil {
		return nil, chain.ToAPIError(err, "auction read failed")
	}
	if auction.Seller != (common.Address{}) {
		detail.Auction = &auction
	}

	doc, err := s.fetcher.Fetch(ctx, view.URI)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"token_id": tokenID.String(), "error": err.Error()}), "marketplace.metadata_unavailable")
	} else {
		detail.Metadata = doc
	}
	return detail, nil
}

func (s *service) tokenView(ctx context.Context, id *big.Int) (TokenView, error) {
	uri, err := s.chain.TokenURI(ctx, id)
	if err != nil {
		return TokenView{}, err
	}
	owner, err := s.chain.OwnerOf(ctx, id)
	if err != nil {
		return TokenView{}, err
	}
	return TokenView{TokenID: id, URI: uri, Owner: owner}, nil
}

// fanOut runs fn for every id with bounded concurrency. Results keep the
// order of ids; failed items are logged under msg and dropped.
func fanOut[T any](ctx context.Context, s *service, msg string, ids []*big.Int, fn func(context.Context, *big.Int) (T, error)) ([]T, error) {
	results := make([]T, len(ids))
	ok := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			item, err := fn(ctx, id)
			if err != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"token_id": id.String(), "error": err.Error()}), msg)
				return nil
			}
			results[i] = item
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out, nil
}
