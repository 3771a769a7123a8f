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

package batch

import (
	"context"
	"log/slog"
	"time"
)

// Poller runs the batch runner on a fixed interval.
type Poller struct {
	runner   *Runner
	interval time.Duration
	req      Request
}

// NewPoller creates a poller that runs req every interval.
func NewPoller(runner *Runner, interval time.Duration, req Request) *Poller {
	return &Poller{
		runner:   runner,
		interval: interval,
		req:      req,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("summary poller starting",
		"interval", p.interval,
		"label", p.req.Label,
		"limit", p.req.Limit,
	)

	// Do an initial poll immediately
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("summary poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	res, err := p.runner.Run(ctx, p.req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("summary poll failed", "error", err)
		}
		return
	}
	if len(res.Threads) == 0 {
		slog.Debug("no threads need a summary")
	}
}
