package application

import (
	"errors"
	"testing"
	"time"

	"throttle-gateway/middleware/throttle/domain"
)

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow() bool { return f.allow }

type fakeRegistry struct {
	lim      domain.Limiter
	resolved []domain.Key
}

func (r *fakeRegistry) Resolve(k domain.Key) domain.Limiter {
	r.resolved = append(r.resolved, k)
	return r.lim
}

func TestService_Admit_AllowsWhenNoRegistry(t *testing.T) {
	svc := Service{}
	dec := svc.Admit("/api/a")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Admit_ResolvesRouteOnEveryCall(t *testing.T) {
	reg := &fakeRegistry{lim: fakeLimiter{allow: true}}
	svc := Service{Registry: reg}

	svc.Admit("/api/a")
	svc.Admit("/api/a")

	// o threshold vigente é relido a cada requisição via resolve
	if len(reg.resolved) != 2 {
		t.Fatalf("expected 2 resolves, got %d", len(reg.resolved))
	}
}

func TestService_Admit_AllowsWhenLimiterAllows(t *testing.T) {
	svc := Service{Registry: &fakeRegistry{lim: fakeLimiter{allow: true}}, RetryAfter: 5 * time.Second}
	dec := svc.Admit("/api/a")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
}

func TestService_Admit_BlocksWithRetryAfterDefault(t *testing.T) {
	svc := Service{Registry: &fakeRegistry{lim: fakeLimiter{allow: false}}}
	dec := svc.Admit("/api/a")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 1*time.Second {
		t.Fatalf("expected default RetryAfter=1s, got %s", dec.RetryAfter)
	}
}

func TestService_Admit_BlocksWithConfiguredRetryAfter(t *testing.T) {
	svc := Service{Registry: &fakeRegistry{lim: fakeLimiter{allow: false}}, RetryAfter: 2500 * time.Millisecond}
	dec := svc.Admit("/api/a")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 2500*time.Millisecond {
		t.Fatalf("expected RetryAfter=2.5s, got %s", dec.RetryAfter)
	}
}

func TestService_Check_ReturnsThrottledErrorKind(t *testing.T) {
	svc := Service{Registry: &fakeRegistry{lim: fakeLimiter{allow: false}}}

	err := svc.Check("/api/a")
	if !errors.Is(err, domain.ErrRequestThrottled) {
		t.Fatalf("expected ErrRequestThrottled, got %v", err)
	}
}

func TestService_Check_NilWhenAdmitted(t *testing.T) {
	svc := Service{Registry: &fakeRegistry{lim: fakeLimiter{allow: true}}}

	if err := svc.Check("/api/a"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
