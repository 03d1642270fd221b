package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tgerr"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// Challenge is one provider-issued login code, rendered as a scannable PNG.
// It lives for a single login attempt and is never persisted.
type Challenge struct {
	URL       string
	PNG       []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SignInWithLoginCode runs the QR login handshake. Every token Telegram
// issues is rendered and delivered through onChallenge; tokens expire and are
// reissued, so the callback may fire several times before the handshake
// settles. Accounts with a cloud password fail with ErrSecondFactorRequired:
// there is no prompt path here.
func (c *Conn) SignInWithLoginCode(ctx context.Context, onChallenge func(Challenge)) error {
	_, err := c.client.QR().Auth(ctx, c.loggedIn, func(_ context.Context, token qrlogin.Token) error {
		url := token.URL()
		png, encErr := qrcode.Encode(url, qrcode.Medium, qrImageSize)
		if encErr != nil {
			// Keep the handshake alive; the next token gets another chance.
			c.logger.Error("qr_encode_error", "error", encErr.Error())
			return nil
		}
		c.logger.Info("qr_challenge_issued", "expires_at", token.Expires().UTC().Format(time.RFC3339))
		onChallenge(Challenge{
			URL:       url,
			PNG:       png,
			IssuedAt:  time.Now(),
			ExpiresAt: token.Expires(),
		})
		return nil
	})
	if err != nil {
		if tgerr.Is(err, "SESSION_PASSWORD_NEEDED") {
			return ErrSecondFactorRequired
		}
		return fmt.Errorf("qr login: %w", err)
	}
	return nil
}
