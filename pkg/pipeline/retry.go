// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// llmRetryAttempts and llmBackoffBase bound ordinary stage invocations:
	// 3 attempts with delays of 2s then 4s.
	llmRetryAttempts = 3
	llmBackoffBase   = 2 * time.Second

	// simplifierAttempts and simplifierBackoffBase bound the directory
	// simplifier: 5 attempts with delays growing linearly, 5s then 10s...
	simplifierAttempts    = 5
	simplifierBackoffBase = 5 * time.Second
)

// linearBackOff grows the delay by base each retry.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func llmPolicy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = llmBackoffBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(policy, llmRetryAttempts-1), ctx)
}

func simplifierPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: simplifierBackoffBase}, simplifierAttempts-1),
		ctx)
}
