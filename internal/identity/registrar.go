// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bcem/threadintel/internal/lock"
	"github.com/bcem/threadintel/internal/models"
	"github.com/bcem/threadintel/internal/store"
)

// ErrInvalidAddress is returned for header values without a usable address.
var ErrInvalidAddress = errors.New("identity: invalid address")

// Registrar turns raw header values into EmailStrings, resolving each one
// to a contact exactly once.
type Registrar struct {
	store    Store
	resolver *Resolver
	locker   lock.Locker
}

// NewRegistrar creates a Registrar. A nil locker uses an in-process
// lock.KeyedMutex.
func NewRegistrar(st Store, resolver *Resolver, locker lock.Locker) *Registrar {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Registrar{store: st, resolver: resolver, locker: locker}
}

// Register returns the EmailString for raw, creating it and resolving its
// contact on first sighting.
func (r *Registrar) Register(ctx context.Context, raw string) (*models.EmailString, error) {
	if es, err := r.lookup(ctx, raw); es != nil || err != nil {
		return es, err
	}

	addr := Normalize(raw)
	if !validEmail(addr.Email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	release, err := r.locker.Acquire(ctx, "email_string:"+raw)
	if err != nil {
		return nil, fmt.Errorf("lock email string: %w", err)
	}
	defer release()

	// another writer may have won while we waited
	if es, err := r.lookup(ctx, raw); es != nil || err != nil {
		return es, err
	}

	releaseName, err := r.locker.Acquire(ctx, "contact_name:"+addr.Name)
	if err != nil {
		return nil, fmt.Errorf("lock contact name: %w", err)
	}
	defer releaseName()

	address, err := r.store.GetOrCreateEmailAddress(ctx, addr.Email, IsGenericAddress(addr.Email))
	if err != nil {
		return nil, fmt.Errorf("email address %q: %w", addr.Email, err)
	}
	res, err := r.resolver.ResolveAddress(ctx, addr, address.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", raw, err)
	}

	es := &models.EmailString{
		OriginalString: raw,
		Name:           addr.Name,
		Email:          addr.Email,
		EmailAddressID: address.ID,
		ContactID:      res.Contact.ID,
	}
	if err := r.store.CreateEmailString(ctx, es); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return r.store.GetEmailString(ctx, raw)
		}
		return nil, fmt.Errorf("create email string %q: %w", raw, err)
	}

	slog.Info("registered email string",
		"original", raw,
		"contact_id", res.Contact.ID,
		"match", res.Match,
	)
	return es, nil
}

func (r *Registrar) lookup(ctx context.Context, raw string) (*models.EmailString, error) {
	es, err := r.store.GetEmailString(ctx, raw)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email string: %w", err)
	}
	return es, nil
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n<>,;")
}
