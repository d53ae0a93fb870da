// Package admin gates administrative overrides behind a shared password.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

// DefaultPassword is the stock admin password of the game.
const DefaultPassword = "RealybyIsEpic"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrDisabled     = errors.New("admin disabled")
)

// Config holds the admin credentials. PasswordDigest wins over Password.
type Config struct {
	// Password is the plain admin password.
	Password string `yaml:"password"`
	// PasswordDigest is the hex blake3 digest of the admin password.
	PasswordDigest string `yaml:"password_digest"`
}

// DefaultConfig returns a Config with the stock password.
func DefaultConfig() Config {
	return Config{Password: DefaultPassword}
}

// Crediter adds cash to the player balance.
type Crediter interface {
	CreditCash(ctx context.Context, amount float64) error
}

// Digest returns the hex blake3 digest of password.
func Digest(password string) string {
	sum := blake3.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Gate authorizes admin requests and forwards them to the market.
type Gate struct {
	digest  []byte
	target  Crediter
	logger  *slog.Logger
	denials atomic.Int64
}

// NewGate creates a Gate. With neither a password nor a digest configured
// every request fails with ErrDisabled.
func NewGate(cfg Config, target Crediter, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{target: target, logger: logger}

	switch {
	case cfg.PasswordDigest != "":
		d, err := hex.DecodeString(cfg.PasswordDigest)
		if err != nil || len(d) != 32 {
			return nil, errors.New("invalid password digest")
		}
		g.digest = d
	case cfg.Password != "":
		sum := blake3.Sum256([]byte(cfg.Password))
		g.digest = sum[:]
	}
	return g, nil
}

// Authorize checks password in constant time.
func (g *Gate) Authorize(password string) error {
	if g.digest == nil {
		return ErrDisabled
	}
	sum := blake3.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(sum[:], g.digest) != 1 {
		g.denials.Add(1)
		g.logger.Warn("admin authorization denied")
		return ErrUnauthorized
	}
	return nil
}

// CreditCash adds amount to the player's cash once password is verified.
func (g *Gate) CreditCash(ctx context.Context, password string, amount float64) error {
	if err := g.Authorize(password); err != nil {
		return err
	}
	if err := g.target.CreditCash(ctx, amount); err != nil {
		return fmt.Errorf("credit cash: %w", err)
	}
	g.logger.Info("admin credited cash", slog.Float64("amount", amount))
	return nil
}

// Denials returns the number of rejected passwords.
func (g *Gate) Denials() int64 {
	return g.denials.Load()
}
