package session

import (
	"context"

	"aircraftconsole/internal/logging"
)

// Sealer encrypts values at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// Sealed encrypts the auth token before it reaches Inner. A token that no longer opens
// (rotated secret, tampering) reads as absent.
type Sealed struct {
	Inner  Storage
	Sealer Sealer
}

func (s *Sealed) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.Inner.GetItem(ctx, key)
	if err != nil || !ok || key != KeyAuthToken {
		return v, ok, err
	}
	plain, err := s.Sealer.Open(v)
	if err != nil {
		logging.From(ctx).Warn("session.token_unsealable", "error", err)
		return "", false, nil
	}
	return plain, true, nil
}

func (s *Sealed) SetItem(ctx context.Context, key, value string) error {
	if key == KeyAuthToken {
		sealed, err := s.Sealer.Seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	return s.Inner.SetItem(ctx, key, value)
}

func (s *Sealed) RemoveItem(ctx context.Context, key string) error {
	return s.Inner.RemoveItem(ctx, key)
}
