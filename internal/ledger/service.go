/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ledger is the referral reward and virtual currency engine. It owns
// the referral graph rules, reward math, checkout settlement, voids and
// anonymization, and drives a store.Store for persistence.
package ledger

import (
	"time"

	"referral-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

const defaultLockTimeout = 3 * time.Second

var hundred = decimal.NewFromInt(100)

type Service struct {
	store store.Store
	locks *pairLocks
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces the wall clock used for entry timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLockTimeout bounds how long an operation waits for a (user, restaurant)
// lock before failing with store.ErrBusy.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.locks.timeout = d
		}
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		locks: newPairLocks(defaultLockTimeout),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// percentOf returns amount * percent / 100 rounded to cents.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred).Round(2)
}

func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
