// Package template renders the personalized message body sent to each
// audience member, using the Liquid template language.
package template

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/crm-engine/internal/domain"
)

// DefaultMessage is the greeting used when no template is configured.
const DefaultMessage = "Hi {{ name }}, here is 10% off on your next order"

// Renderer renders one Liquid template against customer bindings. The
// parsed template is cached after first use; Render is safe for concurrent
// use.
type Renderer struct {
	source string

	once sync.Once
	tpl  *liquid.Template
	err  error
}

// NewRenderer creates a renderer for the given template source. An empty
// source falls back to DefaultMessage.
func NewRenderer(source string) *Renderer {
	if source == "" {
		source = DefaultMessage
	}
	return &Renderer{source: source}
}

// Render produces the message body for one customer. Parse and render
// failures are returned to the caller, which treats them as that
// recipient's delivery failure.
func (r *Renderer) Render(c domain.Customer) (string, error) {
	r.once.Do(func() {
		r.tpl, r.err = liquid.NewEngine().ParseString(r.source)
	})
	if r.err != nil {
		return "", fmt.Errorf("parse message template: %w", r.err)
	}

	bindings := map[string]any{
		"name":        c.Name,
		"email":       c.Email,
		"totalspends": c.TotalSpends,
		"totalvisits": c.TotalVisits,
		"lastvisit":   c.LastVisit,
	}
	out, err := r.tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render message template: %w", err)
	}
	return out, nil
}
