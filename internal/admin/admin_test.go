package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/zappabad/coinsim/internal/market/core"
)

type fakeMarket struct {
	credited []float64
}

func (f *fakeMarket) CreditCash(_ context.Context, amount float64) error {
	if amount <= 0 {
		return core.ErrInvalidAmount
	}
	f.credited = append(f.credited, amount)
	return nil
}

func TestGateCreditCash(t *testing.T) {
	m := &fakeMarket{}
	g, err := NewGate(DefaultConfig(), m, nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	if err := g.CreditCash(context.Background(), DefaultPassword, 500); err != nil {
		t.Fatalf("CreditCash: %v", err)
	}
	if len(m.credited) != 1 || m.credited[0] != 500 {
		t.Fatalf("expected one credit of 500, got %v", m.credited)
	}
}

func TestGateRejectsWrongPassword(t *testing.T) {
	m := &fakeMarket{}
	g, _ := NewGate(DefaultConfig(), m, nil)

	for _, pw := range []string{"", "realybyisepic", DefaultPassword + " "} {
		if err := g.CreditCash(context.Background(), pw, 500); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("password %q: expected ErrUnauthorized, got %v", pw, err)
		}
	}
	if len(m.credited) != 0 {
		t.Fatal("unauthorized request reached the market")
	}
	if g.Denials() != 3 {
		t.Fatalf("expected 3 denials, got %d", g.Denials())
	}
}

func TestGatePropagatesInvalidAmount(t *testing.T) {
	g, _ := NewGate(DefaultConfig(), &fakeMarket{}, nil)
	if err := g.CreditCash(context.Background(), DefaultPassword, -1); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGateDigestConfig(t *testing.T) {
	digest := Digest("hunter2")
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}

	g, err := NewGate(Config{Password: "ignored", PasswordDigest: digest}, &fakeMarket{}, nil)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	if err := g.Authorize("hunter2"); err != nil {
		t.Fatalf("expected digest password accepted: %v", err)
	}
	if err := g.Authorize("ignored"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("digest must take precedence, got %v", err)
	}

	if _, err := NewGate(Config{PasswordDigest: "zz"}, &fakeMarket{}, nil); err == nil {
		t.Fatal("expected invalid digest error")
	}
}

func TestGateDisabled(t *testing.T) {
	g, _ := NewGate(Config{}, &fakeMarket{}, nil)
	if err := g.Authorize(DefaultPassword); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
