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

package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// PromptLog records every prompt and reply as a JSON line.
type PromptLog struct {
	next   Generator
	logger *slog.Logger
}

// NewPromptLog wraps next and writes one record per call to w.
func NewPromptLog(next Generator, w io.Writer) *PromptLog {
	return &PromptLog{
		next:   next,
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

// OpenPromptLogFile opens path for appending.
func OpenPromptLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open prompt log: %w", err)
	}
	return f, nil
}

// Generate implements Generator.
func (p *PromptLog) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	reply, err := p.next.Generate(ctx, prompt)

	attrs := []any{
		"prompt_name", PromptName(ctx),
		"prompt", prompt,
		"reply", reply,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		p.logger.Error("llm call failed", append(attrs, "error", err.Error())...)
		return reply, err
	}
	p.logger.Info("llm call", attrs...)
	return reply, nil
}
