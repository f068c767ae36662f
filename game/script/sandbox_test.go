package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func newSandbox(t *testing.T) *Sandbox {
	t.Helper()
	return NewSandbox(2, 200*time.Millisecond, nop())
}

func TestSandbox_BasicArithmetic(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestSandbox_ReturnString(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), `"hello"`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestSandbox_NullAndUndefined(t *testing.T) {
	sb := newSandbox(t)
	for _, src := range []string{"null", "undefined"} {
		out, err := sb.Eval(context.Background(), src, nil)
		require.NoError(t, err, src)
		assert.Nil(t, out, src)
	}
}

func TestSandbox_SyntaxError(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), "{{{{ broken", nil)
	assert.Error(t, err)
}

func TestSandbox_RuntimeException(t *testing.T) {
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), `throw new Error("boom")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSandbox_Timeout(t *testing.T) {
	sb := NewSandbox(1, 50*time.Millisecond, nop())
	_, err := sb.Eval(context.Background(), `while(true){}`, nil)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)

	// The interrupted VM was replaced; the pool still works.
	out, err := sb.Eval(context.Background(), "1 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out)
}

func TestSandbox_CancelledContext(t *testing.T) {
	sb := newSandbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sb.Eval(ctx, "1+1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSandbox_ContextCancelInterruptsScript(t *testing.T) {
	sb := NewSandbox(1, 5*time.Second, nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := sb.Eval(ctx, `while(true){}`, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestSandbox_BlockedGlobals(t *testing.T) {
	sb := newSandbox(t)
	for _, src := range []string{"require('fs')", "process.exit(0)", "eval('1+1')", "Function('return 1')()"} {
		_, err := sb.Eval(context.Background(), src, nil)
		assert.Error(t, err, src)
	}
}

func TestSandbox_MathAvailable(t *testing.T) {
	sb := newSandbox(t)
	out, err := sb.Eval(context.Background(), "Math.max(3, Math.floor(7.9))", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 7, out)
}

func TestSandbox_ActorBinding(t *testing.T) {
	sb := newSandbox(t)
	b := &Bindings{Actor: map[string]interface{}{"id": "goblin-1", "health": 6.0}}
	out, err := sb.Eval(context.Background(), `actor.id + ":" + actor.health`, b)
	require.NoError(t, err)
	assert.Equal(t, "goblin-1:6", out)
}

func TestSandbox_BindingsResetBetweenRuns(t *testing.T) {
	sb := NewSandbox(1, 200*time.Millisecond, nop())
	_, err := sb.Eval(context.Background(), `actor.id`, &Bindings{Actor: map[string]interface{}{"id": "a"}})
	require.NoError(t, err)

	out, err := sb.Eval(context.Background(), `actor.id`, nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = sb.Eval(context.Background(), `cvars.get("x")`, nil)
	assert.Error(t, err, "cvars is unset without bindings")
}

func TestSandbox_CVars(t *testing.T) {
	cv := NewCVars()
	cv.Set("hits", 2)
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), `cvars.set("hits", cvars.get("hits") + 3)`, &Bindings{CVars: cv})
	require.NoError(t, err)
	assert.Equal(t, 5.0, cv.Get("hits"))
	assert.Equal(t, 0.0, cv.Get("missing"))
}

func TestSandbox_Log(t *testing.T) {
	var got []string
	sb := newSandbox(t)
	_, err := sb.Eval(context.Background(), `log("ouch"); log("again")`, &Bindings{
		Log: func(msg string) { got = append(got, msg) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ouch", "again"}, got)
}

func TestSandbox_VMPool_Concurrent(t *testing.T) {
	sb := NewSandbox(4, 200*time.Millisecond, nop())
	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := sb.Eval(context.Background(), "1+1", nil)
			done <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}
}

func TestNewVMPool_Defaults(t *testing.T) {
	p := NewVMPool(0, 0, nil)
	assert.Equal(t, defaultPoolSize, p.Size())
	assert.Equal(t, defaultTimeout, p.timeout)
}
