package telegram

import (
	"context"
	"fmt"
)

// ForwardMessage forwards one message verbatim between conversations.
func (c *Conn) ForwardMessage(ctx context.Context, from, to string, msgID int) error {
	src, err := c.resolvePeer(ctx, from)
	if err != nil {
		return err
	}
	dst, err := c.resolvePeer(ctx, to)
	if err != nil {
		return err
	}
	if _, err := c.sender.To(dst.InputPeer()).ForwardIDs(src.InputPeer(), msgID).Send(ctx); err != nil {
		return fmt.Errorf("forward message %d: %w", msgID, err)
	}
	return nil
}

// SendText sends a plain-text message to a conversation.
func (c *Conn) SendText(ctx context.Context, to, text string) error {
	dst, err := c.resolvePeer(ctx, to)
	if err != nil {
		return err
	}
	if _, err := c.sender.To(dst.InputPeer()).Text(ctx, text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}
