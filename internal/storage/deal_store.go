package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

const dealKeyPrefix = "deal:"

// DealStore owns the deal records. The realtime core consults it on every
// join and send, so seller assignments made after a deal is created take
// effect immediately.
type DealStore struct {
	db *badger.DB
}

func NewDealStore(db *badger.DB) *DealStore {
	return &DealStore{db: db}
}

func dealKey(id domain.DealID) []byte {
	return []byte(dealKeyPrefix + string(id))
}

func (s *DealStore) Create(deal *domain.Deal) error {
	data, err := json.Marshal(deal)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dealKey(deal.ID), data)
	})
	if err != nil {
		return fmt.Errorf("store deal: %w", err)
	}
	log.Info().Str("module", "storage.deals").Str("deal", string(deal.ID)).Str("buyer", string(deal.Buyer)).Msg("deal created")
	return nil
}

func (s *DealStore) Get(id domain.DealID) (*domain.Deal, error) {
	var deal domain.Deal
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dealKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &deal)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrDealNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load deal: %w", err)
	}
	return &deal, nil
}

// AssignSeller fills the seller slot of a pending deal and moves it to
// in_progress. Fails if a seller is already assigned.
func (s *DealStore) AssignSeller(id domain.DealID, seller domain.UserID) error {
	return s.update(id, func(deal *domain.Deal) error {
		if deal.Seller != "" {
			return domain.ErrSellerAssigned
		}
		deal.Seller = seller
		deal.Status = domain.DealInProgress
		return nil
	})
}

// UpdatePrice records a counter-offer.
func (s *DealStore) UpdatePrice(id domain.DealID, price int64) error {
	return s.update(id, func(deal *domain.Deal) error {
		deal.CurrentPrice = price
		return nil
	})
}

func (s *DealStore) SetStatus(id domain.DealID, status domain.DealStatus) error {
	return s.update(id, func(deal *domain.Deal) error {
		deal.Status = status
		return nil
	})
}

func (s *DealStore) update(id domain.DealID, mutate func(*domain.Deal) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(dealKey(id))
		if err != nil {
			return err
		}
		var deal domain.Deal
		if err := item.Value(func(v []byte) error {
			return json.Unmarshal(v, &deal)
		}); err != nil {
			return err
		}
		if err := mutate(&deal); err != nil {
			return err
		}
		data, err := json.Marshal(&deal)
		if err != nil {
			return err
		}
		return txn.Set(dealKey(id), data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrDealNotFound
	}
	return err
}

// Authorize reports whether user is a current participant of a live deal.
// A missing deal is indistinguishable from a denied one: both return false
// without error, which is what the fail-closed core expects.
func (s *DealStore) Authorize(id domain.DealID, user domain.UserID) (bool, error) {
	deal, err := s.Get(id)
	if errors.Is(err, domain.ErrDealNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return deal.Live() && deal.Participant(user), nil
}
