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

// Package llm is the boundary to the language model. Everything above it
// sees a Generator: a prompt goes in, an opaque reply string comes out.
// Decorators add rate limiting, per-call timeouts and prompt logging.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyPrompt is returned when Generate is called without a prompt.
var ErrEmptyPrompt = errors.New("llm: empty prompt")

// Generator is the interface for LLM text generation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type promptNameKey struct{}

// WithPromptName labels the prompt sent under ctx for logging.
func WithPromptName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, promptNameKey{}, name)
}

// PromptName returns the label set by WithPromptName, if any.
func PromptName(ctx context.Context) string {
	name, _ := ctx.Value(promptNameKey{}).(string)
	return name
}
