package enums

// AuctionEventType names a write this backend observed for an auction.
type AuctionEventType string

const (
	AuctionEventStarted AuctionEventType = "started"
	AuctionEventBid     AuctionEventType = "bid"
	AuctionEventBought  AuctionEventType = "bought"
	AuctionEventEnded   AuctionEventType = "ended"
	AuctionEventSwept   AuctionEventType = "swept"
	AuctionEventMinted  AuctionEventType = "minted"
)

func (t AuctionEventType) String() string {
	return string(t)
}
