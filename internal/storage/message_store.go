package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

const (
	msgKeyPrefix  = "msg:"
	readKeyPrefix = "read:"
	seqBandwidth  = 64
)

// MessageStore is the durable chat log. Keys are prefix-ordered by deal
// and a store-assigned sequence, so iteration over one deal's prefix
// yields its messages in persistence order.
type MessageStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewMessageStore(db *badger.DB) (*MessageStore, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageStore{db: db, seq: seq}, nil
}

// Close releases the sequence lease. Call it before closing the database.
func (s *MessageStore) Close() error {
	return s.seq.Release()
}

func msgKey(dealID domain.DealID, seq uint64, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", msgKeyPrefix, dealID, seq, id))
}

// Append durably stores a message and returns it with the server-assigned
// id, sequence and timestamp. The caller must not broadcast anything
// unless Append returned without error.
func (s *MessageStore) Append(dealID domain.DealID, sender domain.UserID, content string) (domain.Message, error) {
	seq, err := s.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("next seq: %w", err)
	}
	msg := domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		DealID:    dealID,
		Sender:    sender,
		Content:   content,
		Seq:       seq,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return domain.Message{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(dealID, seq, msg.ID), data)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	log.Debug().Str("module", "storage.messages").Str("deal", string(dealID)).Uint64("seq", seq).Msg("message appended")
	return msg, nil
}

// History returns up to limit most recent messages of a deal, oldest
// first. limit <= 0 means no limit.
func (s *MessageStore) History(dealID domain.DealID, limit int) ([]domain.Message, error) {
	prefix := []byte(msgKeyPrefix + string(dealID) + ":")
	var out []domain.Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts just past the prefix and walks newest
		// to oldest, so the limit trims the oldest messages.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var msg domain.Message
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &msg)
			})
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func readKey(dealID domain.DealID, msgID domain.MessageID, user domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", readKeyPrefix, dealID, msgID, user))
}

// MarkRead records a read receipt. Idempotent: re-reading keeps the first
// receipt's timestamp.
func (s *MessageStore) MarkRead(dealID domain.DealID, msgID domain.MessageID, user domain.UserID) error {
	key := readKey(dealID, msgID, user)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		}
		data, err := json.Marshal(domain.Receipt{User: user, ReadAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Receipts lists who has read a message.
func (s *MessageStore) Receipts(dealID domain.DealID, msgID domain.MessageID) ([]domain.Receipt, error) {
	prefix := []byte(fmt.Sprintf("%s%s:%s:", readKeyPrefix, dealID, msgID))
	var out []domain.Receipt
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r domain.Receipt
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &r)
			})
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
