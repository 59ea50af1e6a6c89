// Package credentials persists the bearer token together with the minimal
// user identity that came with it.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tictactoe-client/internal/models"
)

var ErrEmptyToken = errors.New("credentials: token required")

// Record is saved and loaded as a unit; a token is never observable without
// its identity.
type Record struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (r Record) complete() bool {
	return strings.TrimSpace(r.Token) != "" && (r.User.ID != 0 || r.User.Email != "")
}

// Store is the credential capability. Load reports ok=false when nothing
// usable is stored; it does not return errors for missing or unreadable
// records.
type Store interface {
	Save(ctx context.Context, token string, user models.User) error
	Load(ctx context.Context) (Record, bool)
	Clear(ctx context.Context) error
}

func newRecord(token string, user models.User) (Record, error) {
	if strings.TrimSpace(token) == "" {
		return Record{}, ErrEmptyToken
	}
	return Record{Token: token, User: user}, nil
}

func marshalSealed(s *Sealer, rec Record) ([]byte, error) {
	plain, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	return s.Seal(plain)
}

func unmarshalSealed(s *Sealer, sealed []byte) (Record, error) {
	plain, err := s.Open(sealed)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return Record{}, fmt.Errorf("decode credentials: %w", err)
	}
	return rec, nil
}
