package telegram

import (
	"context"

	"github.com/gotd/td/constant"
	"github.com/gotd/td/tg"
)

// PollEvent describes a newly posted poll in the watched conversation.
type PollEvent struct {
	MessageID int
	Question  string
	Options   []string
}

type PollHandler func(PollEvent)

type subscription struct {
	sourceID constant.TDLibPeerID
	handler  PollHandler
}

// SubscribePolls registers the single poll handler, scoped to the source
// conversation. Registration resolves the source reference once; later
// updates are matched by chat ID.
func (c *Conn) SubscribePolls(ctx context.Context, source string, fn PollHandler) error {
	peer, err := c.resolvePeer(ctx, source)
	if err != nil {
		return err
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.sub != nil {
		return ErrSubscriptionActive
	}
	c.sub = &subscription{sourceID: peer.TDLibPeerID(), handler: fn}
	return nil
}

// UnsubscribePolls removes the handler. No-op when none is registered.
func (c *Conn) UnsubscribePolls() {
	c.subMu.Lock()
	c.sub = nil
	c.subMu.Unlock()
}

func (c *Conn) dispatchMessage(m tg.MessageClass) {
	msg, ok := m.(*tg.Message)
	if !ok {
		return
	}

	c.subMu.Lock()
	sub := c.sub
	c.subMu.Unlock()
	if sub == nil {
		return
	}
	if tdlibPeerID(msg.PeerID) != sub.sourceID {
		return
	}

	ev, ok := pollEventFromMessage(msg)
	if !ok {
		return
	}
	sub.handler(ev)
}

// pollEventFromMessage classifies a message. Only poll media qualifies;
// everything else is ignored without side effects. Quizzes are polls too.
func pollEventFromMessage(msg *tg.Message) (PollEvent, bool) {
	media, ok := msg.Media.(*tg.MessageMediaPoll)
	if !ok {
		return PollEvent{}, false
	}
	options := make([]string, 0, len(media.Poll.Answers))
	for _, answer := range media.Poll.Answers {
		options = append(options, answer.Text.Text)
	}
	return PollEvent{
		MessageID: msg.ID,
		Question:  media.Poll.Question.Text,
		Options:   options,
	}, true
}
