package realtime

import (
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/domain"
)

var validate = validator.New()

// MessageStore is the persistence collaborator. Append must be durable
// before it returns: the relay never broadcasts an unpersisted message.
type MessageStore interface {
	Append(dealID domain.DealID, sender domain.UserID, content string) (domain.Message, error)
}

// MessageRelay validates, persists and fans out chat messages. Access is
// re-checked on every send through the room manager, so a connection
// whose participation was revoked after joining cannot keep posting.
type MessageRelay struct {
	rooms  *RoomManager
	typing *TypingAggregator
	store  MessageStore
}

func NewMessageRelay(rooms *RoomManager, typing *TypingAggregator, store MessageStore) *MessageRelay {
	return &MessageRelay{rooms: rooms, typing: typing, store: store}
}

// Send persists content and broadcasts the stored message, with its
// server-assigned id and timestamp, to the whole room including the
// sender. Unauthorized or invalid sends are dropped silently; a
// persistence failure suppresses the broadcast and acknowledges the
// failure to the sender only.
func (r *MessageRelay) Send(s *Session, dealID domain.DealID, content string) {
	if err := validate.Var(content, "required,max=1000"); err != nil {
		log.Debug().Str("module", "realtime.relay").Str("user", string(s.User.ID)).Msg("invalid content")
		return
	}
	if !r.rooms.Authorize(dealID, s.User.ID) {
		log.Debug().Str("module", "realtime.relay").Str("deal", string(dealID)).Str("user", string(s.User.ID)).Msg("send denied")
		return
	}

	msg, err := r.store.Append(dealID, s.User.ID, content)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.relay").Str("deal", string(dealID)).Msg("persist failed, broadcast suppressed")
		_ = s.Send(messageFailedFrame(dealID))
		return
	}

	r.rooms.Broadcast(dealID, "", newMessageFrame(msg))

	// Sending implies no longer typing.
	r.typing.Stop(dealID, s)
}
