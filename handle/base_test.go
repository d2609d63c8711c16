package handle_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/momentics/hioload-signals/api"
	"github.com/momentics/hioload-signals/emitter"
	"github.com/momentics/hioload-signals/fake"
	"github.com/momentics/hioload-signals/handle"
	"github.com/momentics/hioload-signals/loop"
)

func newLoop(t *testing.T) (*loop.Loop, *fake.Source) {
	t.Helper()
	src := fake.NewSource()
	lp, err := loop.New(loop.WithSource(src))
	if err != nil {
		t.Fatalf("loop.New: %v", err)
	}
	return lp, src
}

func noopCB(*loop.Resource, int) {}

func TestInitExactlyOnce(t *testing.T) {
	lp, _ := newLoop(t)
	b := handle.Make(lp, nil)

	if err := b.Init("test_init"); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if b.State() != api.Initialized {
		t.Fatalf("expected initialized, got %v", b.State())
	}

	err := b.Init("test_init")
	if !errors.Is(err, api.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if !api.IsUsage(err) {
		t.Error("re-init should classify as usage error")
	}
	if got := lp.Stats()["resources"]; got != 1 {
		t.Errorf("resource allocated %v times, expected exactly once", got)
	}
}

func TestInvokeBeforeInit(t *testing.T) {
	lp, _ := newLoop(t)
	b := handle.Make(lp, nil)

	err := b.Invoke("test_op", func(*loop.Resource) error { return nil })
	if !errors.Is(err, api.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	lp, _ := newLoop(t)
	b := handle.Make(lp, nil)
	if err := b.Init("test_init"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if b.State() != api.Closed {
		t.Fatalf("expected closed, got %v", b.State())
	}

	for name, err := range map[string]error{
		"invoke": b.Invoke("test_op", func(*loop.Resource) error { return nil }),
		"arm":    b.Arm("test_arm", func(*loop.Resource) error { return nil }),
		"disarm": b.Disarm("test_disarm", func(*loop.Resource) error { return nil }),
		"init":   b.Init("test_init"),
	} {
		if !errors.Is(err, api.ErrClosed) {
			t.Errorf("%s after close: expected ErrClosed, got %v", name, err)
		}
	}

	// Close itself stays idempotent.
	if err := b.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestArmDisarmCycle(t *testing.T) {
	lp, src := newLoop(t)
	b := handle.Make(lp, nil)
	if err := b.Init("test_init"); err != nil {
		t.Fatal(err)
	}

	// Disarm before any arm is a no-op in Initialized.
	if err := b.Disarm("test_disarm", func(r *loop.Resource) error { return r.Disarm() }); err != nil {
		t.Fatalf("disarm before arm: %v", err)
	}
	if b.State() != api.Initialized {
		t.Fatalf("expected initialized, got %v", b.State())
	}

	for i := 0; i < 3; i++ {
		if err := b.Arm("test_arm", func(r *loop.Resource) error { return r.Arm(10, noopCB) }); err != nil {
			t.Fatal(err)
		}
		if !b.Active() {
			t.Fatal("expected active after arm")
		}
		if err := b.Disarm("test_disarm", func(r *loop.Resource) error { return r.Disarm() }); err != nil {
			t.Fatal(err)
		}
		if b.State() != api.Stopped {
			t.Fatalf("expected stopped, got %v", b.State())
		}
	}
	if src.Watching(10) {
		t.Error("source still watching after final disarm")
	}
}

func TestNativeFailureKeepsState(t *testing.T) {
	lp, src := newLoop(t)
	b := handle.Make(lp, nil)
	if err := b.Init("test_init"); err != nil {
		t.Fatal(err)
	}

	var published []handle.ErrorEvent
	emitter.On(b.Emitter(), func(ev handle.ErrorEvent) { published = append(published, ev) })

	src.FailWatch = fmt.Errorf("native arm rejected")
	err := b.Arm("test_arm", func(r *loop.Resource) error { return r.Arm(10, noopCB) })
	if err == nil {
		t.Fatal("expected native failure")
	}
	if api.CodeOf(err) != api.ErrCodeNative {
		t.Errorf("expected native classification, got %v", api.CodeOf(err))
	}
	if b.State() != api.Initialized {
		t.Errorf("state changed on failed arm: %v", b.State())
	}
	if len(published) != 1 || published[0].Op != "test_arm" {
		t.Errorf("expected one ErrorEvent for test_arm, got %+v", published)
	}
}

func TestCloseEventDelivery(t *testing.T) {
	lp, _ := newLoop(t)
	b := handle.Make(lp, nil)
	if err := b.Init("test_init"); err != nil {
		t.Fatal(err)
	}

	closed := 0
	emitter.On(b.Emitter(), func(handle.CloseEvent) { closed++ })

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if closed != 1 {
		t.Errorf("expected one CloseEvent, got %d", closed)
	}
	if !b.Emitter().Empty() {
		t.Error("listeners should be cleared after close")
	}
}

// Closing while Active must transition straight to Closed and release the
// native resource.
func TestCloseWhileActive(t *testing.T) {
	lp, src := newLoop(t)
	b := handle.Make(lp, nil)
	if err := b.Init("test_init"); err != nil {
		t.Fatal(err)
	}
	if err := b.Arm("test_arm", func(r *loop.Resource) error { return r.Arm(10, noopCB) }); err != nil {
		t.Fatal(err)
	}
	res := b.Resource()

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if b.State() != api.Closed {
		t.Fatalf("expected closed, got %v", b.State())
	}
	if src.Watching(10) {
		t.Error("source still watching after close")
	}
	if res.Data() != nil {
		t.Error("back-pointer not cleared on close")
	}
	if got := lp.Stats()["resources"]; got != 0 {
		t.Errorf("native resource not released: %v remaining", got)
	}
}
