package session

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	// Length of order and check tokens.
	tokenLength = 32
	// Status polls allowed per check token. The counter is decremented
	// before each check, so a fresh token allows nine polls.
	checkAttempts = 10
)

var ErrNoSession = errors.New("no session state")

// Store keeps per-visitor payment tokens. Implementations are keyed by an
// opaque session id owned by the host; state lives as long as the browser
// session.
type Store interface {
	// IssueOrderToken binds a fresh single-use token to the order for
	// return-URL verification. It replaces any previous order token.
	IssueOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error)
	// ConsumeOrderToken reports whether the pair matches the stored token
	// and clears it regardless of the outcome.
	ConsumeOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID, token string) (bool, error)
	// IssueCheckToken binds a fresh status-poll token to the order with a
	// bounded attempt counter.
	IssueCheckToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error)
	// CheckOrderID returns the order bound to the given check token.
	CheckOrderID(ctx context.Context, sessionID string, token string) (snowflake.ID, bool, error)
	// ConsumeCheckAttempt decrements the attempt counter and reports
	// whether polling may continue. Once exhausted it stays false.
	ConsumeCheckAttempt(ctx context.Context, sessionID string) (bool, error)
}

const tokenCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewToken returns a random alphanumeric token.
func NewToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenCharset[int(b)%len(tokenCharset)]
	}
	return string(buf), nil
}
