package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MaxDealTitleLen = 100
)

var (
	ErrDealNotFound   = errors.New("deal not found")
	ErrSellerAssigned = errors.New("seller already assigned")
	ErrTitleEmpty     = errors.New("deal title empty")
	ErrTitleTooLong   = errors.New("deal title too long")
)

type DealID string

type DealStatus string

const (
	DealPending    DealStatus = "pending"
	DealInProgress DealStatus = "in_progress"
	DealCompleted  DealStatus = "completed"
	DealCancelled  DealStatus = "cancelled"
)

// Deal is the negotiation context that scopes a room. Seller stays empty
// until one is assigned, so participation must always be re-derived from
// the current record rather than cached.
type Deal struct {
	ID            DealID     `json:"id"`
	Title         string     `json:"title"`
	Buyer         UserID     `json:"buyer"`
	Seller        UserID     `json:"seller,omitempty"`
	ProposedPrice int64      `json:"proposed_price"`
	CurrentPrice  int64      `json:"current_price"`
	Status        DealStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewDeal(title string, buyer UserID, price int64) (*Deal, error) {
	if len(title) == 0 {
		return nil, ErrTitleEmpty
	}
	if len(title) > MaxDealTitleLen {
		return nil, ErrTitleTooLong
	}
	return &Deal{
		ID:            DealID(uuid.NewString()),
		Title:         title,
		Buyer:         buyer,
		ProposedPrice: price,
		CurrentPrice:  price,
		Status:        DealPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Participant reports whether id is the deal's buyer or its currently
// assigned seller.
func (d *Deal) Participant(id UserID) bool {
	if id == "" {
		return false
	}
	return d.Buyer == id || (d.Seller != "" && d.Seller == id)
}

// Live reports whether the deal still accepts room traffic.
func (d *Deal) Live() bool {
	return d.Status != DealCancelled
}
