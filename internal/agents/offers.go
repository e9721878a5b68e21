// Offer board: per-step, per-seller, per-product buy offers.
package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/merchant-network/internal/economy"
)

// Board lifecycle errors.
var (
	ErrBoardSealed = errors.New("offer board is sealed")
	ErrBoardOpen   = errors.New("offer board is still open")
)

// BuyOffer is a bid from Buyer for one unit of Product at Price.
type BuyOffer struct {
	Buyer   MerchantID      `json:"buyer"`
	Product economy.Product `json:"product"`
	Price   float64         `json:"price"`
}

// OfferBoard collects the bids of one step. Buyers post while it is open;
// sellers read only after it has been sealed, so acceptance never sees a
// partial set of offers.
type OfferBoard struct {
	numProducts int
	inboxes     map[MerchantID][][]BuyOffer
	sealed      bool
	posted      int
}

// NewOfferBoard creates an open, empty board.
func NewOfferBoard(numProducts int) *OfferBoard {
	return &OfferBoard{
		numProducts: numProducts,
		inboxes:     make(map[MerchantID][][]BuyOffer),
	}
}

// Post appends an offer to the seller's inbox for the offer's product.
func (b *OfferBoard) Post(seller MerchantID, o BuyOffer) error {
	if b.sealed {
		return ErrBoardSealed
	}
	if int(o.Product) < 0 || int(o.Product) >= b.numProducts {
		return fmt.Errorf("offer for unknown product %d", o.Product)
	}
	inbox, ok := b.inboxes[seller]
	if !ok {
		inbox = make([][]BuyOffer, b.numProducts)
		b.inboxes[seller] = inbox
	}
	inbox[o.Product] = append(inbox[o.Product], o)
	b.posted++
	return nil
}

// Seal closes the board to new offers.
func (b *OfferBoard) Seal() {
	b.sealed = true
}

// Sealed reports whether the board is closed.
func (b *OfferBoard) Sealed() bool {
	return b.sealed
}

// Len returns the number of offers posted this step.
func (b *OfferBoard) Len() int {
	return b.posted
}

// Offers returns the seller's offers for p in posting order.
func (b *OfferBoard) Offers(seller MerchantID, p economy.Product) ([]BuyOffer, error) {
	if !b.sealed {
		return nil, ErrBoardOpen
	}
	inbox, ok := b.inboxes[seller]
	if !ok {
		return nil, nil
	}
	return inbox[p], nil
}

// Best returns the highest-priced offer for p. Ties go to the earliest
// posted offer, which follows the seeded activation order.
func (b *OfferBoard) Best(seller MerchantID, p economy.Product) (BuyOffer, bool, error) {
	offers, err := b.Offers(seller, p)
	if err != nil || len(offers) == 0 {
		return BuyOffer{}, false, err
	}
	best := offers[0]
	for _, o := range offers[1:] {
		if o.Price > best.Price {
			best = o
		}
	}
	return best, true, nil
}
