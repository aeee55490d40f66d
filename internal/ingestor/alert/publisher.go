// Package alert formats and emits notifications to the external pub/sub
// channel. Publish failures are reported to the caller but are never a
// reason to retry or roll back the originating operation.
package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// PublishResult is the outcome of one publish attempt.
type PublishResult int

const (
	PublishOK PublishResult = iota
	PublishFailed
)

// Message is the structured alert payload.
type Message struct {
	ErrorMessage string
	Context      map[string]string
}

// Render produces the notification body: the error message followed by the
// context entries, one per line, in stable key order.
func (m Message) Render() string {
	var b strings.Builder
	b.WriteString(m.ErrorMessage)

	keys := make([]string, 0, len(m.Context))
	for k := range m.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s: %s", k, m.Context[k]))
	}

	return b.String()
}

// Publisher emits one notification per call.
type Publisher interface {
	Publish(ctx context.Context, subject string, msg Message) PublishResult
}
