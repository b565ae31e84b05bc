package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"multilend/internal/domain/events"
	"multilend/internal/infrastructure/mq"
	"multilend/internal/usecase/identity"
)

type Activator interface {
	Activate(ctx context.Context, email, accountID string, now time.Time) identity.ActivationResult
}

// AccountHandlers maps auth-service routing keys to sentinel activation.
// Every delivery is acked: a degraded activation is finished later by the
// reconciler's sentinel sweep, and a malformed body will never parse.
func AccountHandlers(act Activator, log *slog.Logger) map[string]mq.Handler {
	h := func(ctx context.Context, body []byte) bool {
		var ev events.AccountEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			log.Warn("account event dropped", "reason", "malformed body", "error", err)
			return true
		}
		if strings.TrimSpace(ev.AccountID) == "" || strings.TrimSpace(ev.Email) == "" {
			log.Warn("account event dropped", "reason", "missing account_id or email")
			return true
		}
		res := act.Activate(ctx, ev.Email, ev.AccountID, time.Now().UTC())
		if res.IsDegraded() {
			log.Warn("activation degraded", "account_id", ev.AccountID, "reason", res.Reason)
			return true
		}
		if res.ParticipantsMigrated > 0 || res.InvitationsActivated > 0 {
			log.Info("account activated", "account_id", ev.AccountID,
				"participants_migrated", res.ParticipantsMigrated, "invitations_activated", res.InvitationsActivated)
		}
		return true
	}
	return map[string]mq.Handler{
		events.AccountRegistered: h,
		events.AccountLoggedIn:   h,
	}
}
