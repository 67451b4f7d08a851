package cron

import (
	"context"
	"strings"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(nil, &stubJob{name: "queue_depth"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	extra := &stubJob{name: "audit_probe"}
	if err := registry.Register(extra); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := strings.Join(registry.Names(), ","); got != "queue_depth,audit_probe" {
		t.Fatalf("unexpected names %q", got)
	}
	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("Jobs must return a copy")
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "queue_depth"}, &stubJob{name: "queue_depth"}); err == nil {
		t.Fatalf("expected duplicate name error")
	}

	var registry Registry
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatalf("expected blank name error")
	}
	if err := registry.Register(&stubJob{name: "queue_depth"}); err != nil {
		t.Fatalf("zero registry should accept jobs: %v", err)
	}
}
