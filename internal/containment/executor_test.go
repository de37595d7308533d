package containment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinActions(t *testing.T) {
	e := NewExecutor(time.Second)

	assert.Equal(t, []string{
		"block_egress",
		"block_source_ips",
		"disable_api_keys",
		"isolate_host",
		"lockdown_affected_accounts",
		"revoke_sessions",
		"scan_adjacent_hosts",
		"snapshot_volume",
	}, e.Actions())

	assert.True(t, e.Known("isolate_host"))
	assert.False(t, e.Known("launch_countermeasures"))
}

func TestExecuteBuiltin(t *testing.T) {
	e := NewExecutor(time.Second)

	result, err := e.Execute(context.Background(), "isolate_host", "web-04", map[string]any{"vlan": "quarantine"})
	require.NoError(t, err)

	assert.Equal(t, "host_isolated", result["outcome"])
	assert.Equal(t, "web-04", result["target"])
	assert.Equal(t, map[string]any{"vlan": "quarantine"}, result["parameters"])

	_, err = time.Parse(time.RFC3339, result["executed_at"].(string))
	assert.NoError(t, err)
}

func TestExecuteUnknownAction(t *testing.T) {
	e := NewExecutor(time.Second)

	_, err := e.Execute(context.Background(), "unregistered", "web-04", nil)
	assert.Error(t, err)
}

func TestRegisterReplacesHandler(t *testing.T) {
	e := NewExecutor(time.Second)
	e.Register("isolate_host", func(_ context.Context, target string, _ map[string]any) (map[string]any, error) {
		return map[string]any{"outcome": "edr_isolation", "target": target}, nil
	})

	result, err := e.Execute(context.Background(), "isolate_host", "web-04", nil)
	require.NoError(t, err)
	assert.Equal(t, "edr_isolation", result["outcome"])
}

func TestExecuteCancellation(t *testing.T) {
	e := NewExecutor(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "isolate_host", "web-04", nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestExecuteTimeout(t *testing.T) {
	e := NewExecutor(20 * time.Millisecond)
	e.Register("slow_action", func(ctx context.Context, _ string, _ map[string]any) (map[string]any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return map[string]any{}, nil
		}
	})

	_, err := e.Execute(context.Background(), "slow_action", "web-04", nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestExecuteHandlerError(t *testing.T) {
	e := NewExecutor(time.Second)
	handlerErr := errors.New("firewall api rejected the rule")
	e.Register("block_source_ips", func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
		return nil, handlerErr
	})

	_, err := e.Execute(context.Background(), "block_source_ips", "203.0.113.0/24", nil)
	assert.ErrorIs(t, err, handlerErr)
	assert.NotErrorIs(t, err, ErrCancelled)
}
