package containment

import (
	"context"
	"time"
)

// registerBuiltins wires the in-process action set. Deployments replace
// these with handlers that call real enforcement points (IdP, EDR,
// firewall); the built-ins record intent so the response trail is
// complete even without integrations.
func (e *Executor) registerBuiltins() {
	e.Register("lockdown_affected_accounts", stamp("accounts_locked"))
	e.Register("revoke_sessions", stamp("sessions_revoked"))
	e.Register("isolate_host", stamp("host_isolated"))
	e.Register("block_source_ips", stamp("ips_blocked"))
	e.Register("block_egress", stamp("egress_blocked"))
	e.Register("scan_adjacent_hosts", stamp("scan_scheduled"))
	e.Register("disable_api_keys", stamp("api_keys_disabled"))
	e.Register("snapshot_volume", stamp("snapshot_taken"))
}

// stamp returns a handler that records the operation and target without
// side effects.
func stamp(outcome string) Handler {
	return func(ctx context.Context, target string, params map[string]any) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := map[string]any{
			"outcome":     outcome,
			"target":      target,
			"executed_at": time.Now().UTC().Format(time.RFC3339),
		}
		if len(params) > 0 {
			result["parameters"] = params
		}
		return result, nil
	}
}
