package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// memorySink records every forwarded parameter write, keeping plain
// and secure writes apart.
type memorySink struct {
	params       map[string]string
	secureParams map[string]string
	err          error
}

func newMemorySink() *memorySink {
	return &memorySink{
		params:       make(map[string]string),
		secureParams: make(map[string]string),
	}
}

func (s *memorySink) Put(_ context.Context, path, value string) error {
	if s.err != nil {
		return s.err
	}
	s.params[path] = value
	return nil
}

func (s *memorySink) PutSecure(_ context.Context, path, value string) error {
	if s.err != nil {
		return s.err
	}
	s.secureParams[path] = value
	return nil
}

func TestOutputRegistry_WriteRead(t *testing.T) {
	reg := NewOutputRegistry("dev", "/options-strategy/dev", nil)
	ctx := context.Background()

	if err := reg.Write(ctx, "networking", "vpc/id", "vpc-123"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := reg.Read("networking", "vpc/id")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "vpc-123" {
		t.Errorf("Read() = %q, want %q", got, "vpc-123")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestOutputRegistry_DuplicateWrite(t *testing.T) {
	reg := NewOutputRegistry("dev", "/options-strategy/dev", nil)
	ctx := context.Background()

	if err := reg.Write(ctx, "networking", "vpc/id", "vpc-123"); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}

	err := reg.Write(ctx, "networking", "vpc/id", "vpc-456")
	if !IsDuplicateOutput(err) {
		t.Fatalf("IsDuplicateOutput(%v) = false", err)
	}

	// The original value survives the rejected write.
	got, readErr := reg.Read("networking", "vpc/id")
	if readErr != nil {
		t.Fatalf("Read() error = %v", readErr)
	}
	if got != "vpc-123" {
		t.Errorf("Read() after duplicate = %q, want %q", got, "vpc-123")
	}
}

func TestOutputRegistry_MissingRead(t *testing.T) {
	reg := NewOutputRegistry("dev", "/options-strategy/dev", nil)

	_, err := reg.Read("networking", "vpc/id")
	if !IsMissingOutput(err) {
		t.Fatalf("IsMissingOutput(%v) = false", err)
	}

	var se *SynthError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a *SynthError", err)
	}
	if se.Module != "networking" {
		t.Errorf("SynthError.Module = %q, want %q", se.Module, "networking")
	}
}

func TestOutputRegistry_ReadAll(t *testing.T) {
	reg := NewOutputRegistry("dev", "/options-strategy/dev", nil)
	ctx := context.Background()

	outputs := map[string]string{
		"vpc/id":          "vpc-123",
		"vpc/cidr":        "10.0.0.0/16",
		"subnets/private": "subnet-a,subnet-b",
	}
	for name, value := range outputs {
		if err := reg.Write(ctx, "networking", name, value); err != nil {
			t.Fatalf("Write(%q) error = %v", name, err)
		}
	}

	got := reg.ReadAll("networking")
	if !reflect.DeepEqual(got, outputs) {
		t.Errorf("ReadAll() = %v, want %v", got, outputs)
	}

	// Mutating the returned view must not touch the registry.
	got["vpc/id"] = "vpc-tampered"
	value, err := reg.Read("networking", "vpc/id")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if value != "vpc-123" {
		t.Errorf("Read() after view mutation = %q, want %q", value, "vpc-123")
	}

	if other := reg.ReadAll("security"); len(other) != 0 {
		t.Errorf("ReadAll(security) = %v, want empty", other)
	}
}

func TestOutputRegistry_SinkForwarding(t *testing.T) {
	sink := newMemorySink()
	reg := NewOutputRegistry("prod", "/options-strategy/prod", sink)
	ctx := context.Background()

	if err := reg.Write(ctx, "networking", "vpc/id", "vpc-prod"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := map[string]string{"/options-strategy/prod/networking/vpc/id": "vpc-prod"}
	if !reflect.DeepEqual(sink.params, want) {
		t.Errorf("sink params = %v, want %v", sink.params, want)
	}
}

func TestOutputRegistry_SecureWriteForwarding(t *testing.T) {
	sink := newMemorySink()
	reg := NewOutputRegistry("prod", "/options-strategy/prod", sink)
	ctx := context.Background()

	if err := reg.WriteSecure(ctx, "configuration", "secure/api/trading-api-key", "k-123"); err != nil {
		t.Fatalf("WriteSecure() error = %v", err)
	}

	path := "/options-strategy/prod/configuration/secure/api/trading-api-key"
	if got := sink.secureParams[path]; got != "k-123" {
		t.Errorf("secure params[%s] = %q, want %q", path, got, "k-123")
	}
	if _, leaked := sink.params[path]; leaked {
		t.Errorf("secure value leaked into the plain parameter hierarchy")
	}

	// Secure outputs stay readable like any other registry entry.
	got, err := reg.Read("configuration", "secure/api/trading-api-key")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "k-123" {
		t.Errorf("Read() = %q, want %q", got, "k-123")
	}

	// Write and WriteSecure share the duplicate-output discipline.
	err = reg.Write(ctx, "configuration", "secure/api/trading-api-key", "k-456")
	if !IsDuplicateOutput(err) {
		t.Fatalf("IsDuplicateOutput(%v) = false", err)
	}
}

func TestOutputRegistry_SinkFailure(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("parameter store unavailable")
	reg := NewOutputRegistry("prod", "/options-strategy/prod", sink)

	err := reg.Write(context.Background(), "networking", "vpc/id", "vpc-prod")
	if err == nil {
		t.Fatal("Write() expected sink failure, got nil")
	}
	var se *SynthError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a *SynthError", err)
	}
	if se.Code != ErrCodeSinkFailed {
		t.Errorf("SynthError.Code = %q, want %q", se.Code, ErrCodeSinkFailed)
	}
}

func TestOutputRegistry_Paths(t *testing.T) {
	reg := NewOutputRegistry("dev", "/options-strategy/dev", nil)
	ctx := context.Background()

	_ = reg.Write(ctx, "security", "security-groups/alb", "sg-1")
	_ = reg.Write(ctx, "networking", "vpc/id", "vpc-123")

	want := []string{"dev/networking/vpc/id", "dev/security/security-groups/alb"}
	if got := reg.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}
