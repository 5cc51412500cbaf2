/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package teller

import (
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/teller/model"
)

// AmountSource supplies the kind and magnitude of a simulated transaction.
type AmountSource interface {
	Next() (model.TransactionKind, decimal.Decimal)
}

// RandomSource draws deposits and withdrawals with equal probability and a
// magnitude uniformly from [min, max], rounded to cents. A zero seed is
// seeded from crypto/rand by gofakeit.
type RandomSource struct {
	mu       sync.Mutex
	faker    *gofakeit.Faker
	min, max float64
}

func NewRandomSource(min, max float64, seed int64) *RandomSource {
	if max < min {
		max = min
	}
	return &RandomSource{faker: gofakeit.New(seed), min: min, max: max}
}

func (s *RandomSource) Next() (model.TransactionKind, decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := model.KindWithdrawal
	if s.faker.Bool() {
		kind = model.KindDeposit
	}
	amount := s.min
	if s.max > s.min {
		amount = s.faker.Float64Range(s.min, s.max)
	}
	return kind, model.RoundMoney(decimal.NewFromFloat(amount))
}

// Duration returns a uniformly random duration in [min, max].
func (s *RandomSource) Duration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.faker.IntRange(int(min), int(max)))
}

// Latency adapts Duration to a LatencyFunc. It returns nil when the range is
// empty so accounts skip the hook entirely.
func (s *RandomSource) Latency(min, max time.Duration) LatencyFunc {
	if max <= 0 {
		return nil
	}
	return func() time.Duration { return s.Duration(min, max) }
}

// Index returns a random index in [0, n).
func (s *RandomSource) Index(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faker.IntRange(0, n-1)
}
