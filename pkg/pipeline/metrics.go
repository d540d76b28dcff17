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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rde",
		Subsystem: "pipeline",
		Name:      "stage_attempts_total",
		Help:      "Stage executions, including retries.",
	}, []string{"stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rde",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Stage executions that failed after exhausting retries.",
	}, []string{"stage"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rde",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per completed stage.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
	}, []string{"stage"})
)
