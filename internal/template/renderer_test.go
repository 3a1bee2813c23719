package template

import (
	"strings"
	"testing"

	"github.com/ignite/crm-engine/internal/domain"
)

func TestRenderDefaultMessage(t *testing.T) {
	r := NewRenderer("")
	out, err := r.Render(domain.Customer{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hi Ada, here is 10% off on your next order" {
		t.Errorf("unexpected message: %q", out)
	}
}

func TestRenderCustomTemplate(t *testing.T) {
	r := NewRenderer("{{ name }} has visited {{ totalvisits }} times")
	out, err := r.Render(domain.Customer{Name: "Bob", TotalVisits: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Bob has visited 7 times" {
		t.Errorf("unexpected message: %q", out)
	}
}

func TestRenderBadTemplateFails(t *testing.T) {
	r := NewRenderer("{{ name ")
	_, err := r.Render(domain.Customer{Name: "Ada"})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "template") {
		t.Errorf("error should mention the template: %v", err)
	}
}
