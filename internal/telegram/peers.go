package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gotd/td/constant"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"
)

// resolvePeer turns a chat reference into a concrete peer. Accepted forms:
// ""/"me"/"self" (saved messages), @username or bare username, and numeric
// TDLib chat IDs (e.g. -1001234567890). The peers manager caches access
// hashes, so repeated references are cheap.
func (c *Conn) resolvePeer(ctx context.Context, ref string) (peers.Peer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, "me") || strings.EqualFold(ref, "self") {
		self, err := c.peers.Self(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve self: %w", err)
		}
		return self, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		peer, err := c.peers.ResolveTDLibID(ctx, constant.TDLibPeerID(id))
		if err != nil {
			return nil, fmt.Errorf("resolve chat id %d: %w", id, err)
		}
		return peer, nil
	}
	domain := strings.TrimPrefix(ref, "@")
	peer, err := c.peers.ResolveDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return peer, nil
}

// tdlibPeerID maps an update's raw peer to the canonical TDLib ID used for
// source-chat matching.
func tdlibPeerID(peer tg.PeerClass) constant.TDLibPeerID {
	var id constant.TDLibPeerID
	switch v := peer.(type) {
	case *tg.PeerUser:
		id.User(v.UserID)
	case *tg.PeerChat:
		id.Chat(v.ChatID)
	case *tg.PeerChannel:
		id.Channel(v.ChannelID)
	}
	return id
}
