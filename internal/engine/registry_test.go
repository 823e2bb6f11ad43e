package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/sqldrill/sqldrill/internal/model"
)

// fakeEngine counts lifecycle calls for registry tests.
type fakeEngine struct {
	connected    bool
	disconnected int
	failConnect  bool
}

func (f *fakeEngine) Connect(cfg ConnectionConfig) error {
	if f.failConnect {
		return errors.New("boom")
	}
	f.connected = true
	return nil
}

func (f *fakeEngine) Disconnect() error {
	f.disconnected++
	return nil
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }
func (f *fakeEngine) DB() *sqlx.DB                   { return nil }

func (f *fakeEngine) Execute(ctx context.Context, stmt string) (*model.QueryResult, error) {
	return &model.QueryResult{}, nil
}

func (f *fakeEngine) InspectSchema(ctx context.Context) (*model.SchemaSnapshot, error) {
	return &model.SchemaSnapshot{}, nil
}

func (f *fakeEngine) DriverName() string               { return "fake" }
func (f *fakeEngine) QuoteIdentifier(name string) string { return `"` + name + `"` }

func TestRegistryOpenAndGet(t *testing.T) {
	r := NewRegistry()
	fake := &fakeEngine{}
	r.RegisterDriver("fake", func() Engine { return fake })

	eng, err := r.Open("sess-1", ConnectionConfig{Driver: "fake"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !fake.connected {
		t.Error("expected engine to be connected")
	}

	got, err := r.Get("sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != eng {
		t.Error("expected Get to return the opened engine")
	}
}

func TestRegistryOpenUnknownDriver(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Open("sess-1", ConnectionConfig{Driver: "nope"}); err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}

func TestRegistryReopenDisconnectsPrevious(t *testing.T) {
	r := NewRegistry()
	first := &fakeEngine{}
	engines := []*fakeEngine{first, {}}
	i := 0
	r.RegisterDriver("fake", func() Engine {
		e := engines[i]
		i++
		return e
	})

	if _, err := r.Open("sess-1", ConnectionConfig{Driver: "fake"}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := r.Open("sess-1", ConnectionConfig{Driver: "fake"}); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if first.disconnected != 1 {
		t.Errorf("expected first engine disconnected once, got %d", first.disconnected)
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	fake := &fakeEngine{}
	r.RegisterDriver("fake", func() Engine { return fake })

	if _, err := r.Open("sess-1", ConnectionConfig{Driver: "fake"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Close("sess-1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fake.disconnected != 1 {
		t.Errorf("expected one disconnect, got %d", fake.disconnected)
	}
	if _, err := r.Get("sess-1"); err == nil {
		t.Error("expected Get to fail after Close")
	}
	if err := r.Close("sess-1"); err == nil {
		t.Error("expected second Close to fail")
	}
}

func TestNormalizeValue(t *testing.T) {
	if got := NormalizeValue([]byte("abc")); got != "abc" {
		t.Errorf("expected []byte to normalize to string, got %T %v", got, got)
	}
	if got := NormalizeValue(int64(7)); got != int64(7) {
		t.Errorf("expected int64 to pass through, got %T %v", got, got)
	}
	if got := NormalizeValue(nil); got != nil {
		t.Errorf("expected nil to pass through, got %v", got)
	}
}

func TestWrapExec(t *testing.T) {
	ee := &ExecError{Message: "syntax error"}
	if WrapExec(ee) != ee {
		t.Error("expected ExecError to pass through unchanged")
	}
	wrapped := WrapExec(errors.New("no such table: users"))
	if wrapped.Message != "no such table: users" {
		t.Errorf("unexpected message: %q", wrapped.Message)
	}
	if WrapExec(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
