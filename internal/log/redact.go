// Copyright 2025 Tom Barlow
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

package log

import (
	"context"
	"log/slog"

	"github.com/tombee/flowsmith/pkg/secrets"
)

// RedactingHandler rewrites every string in a record through the secret
// patterns and an optional masker before passing it on.
type RedactingHandler struct {
	next   slog.Handler
	masker *secrets.Masker
}

// NewRedactingHandler wraps next. A nil masker applies the patterns only.
func NewRedactingHandler(next slog.Handler, masker *secrets.Masker) *RedactingHandler {
	if h, ok := next.(*RedactingHandler); ok {
		next = h.next
	}
	return &RedactingHandler{next: next, masker: masker}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted), masker: h.masker}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), masker: h.masker}
}

func (h *RedactingHandler) redact(s string) string {
	if h.masker != nil {
		s = h.masker.Mask(s)
	}
	return secrets.Redact(s)
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch val := v.Any().(type) {
		case error:
			return slog.String(a.Key, h.redact(val.Error()))
		case map[string]any, []any, []string, map[string]string:
			if h.masker != nil {
				return slog.Any(a.Key, secrets.RedactValue(h.masker.MaskValue(val)))
			}
			return slog.Any(a.Key, secrets.RedactValue(val))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
