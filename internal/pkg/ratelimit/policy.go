package ratelimit

import "time"

// Ações com orçamento próprio.
const (
	ActionLogin          = "login"
	ActionRegister       = "register"
	ActionWatchlistRead  = "watchlist_read"
	ActionWatchlistWrite = "watchlist_write"
	ActionAdmin          = "admin"
)

// Actions lista as ações conhecidas, na ordem usada pela configuração.
var Actions = []string{ActionLogin, ActionRegister, ActionWatchlistRead, ActionWatchlistWrite, ActionAdmin}

// DefaultPolicies devolve os orçamentos padrão. Login é o mais restrito;
// escritas são mais restritas que leituras.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionLogin:          {Action: ActionLogin, Limit: 5, Window: time.Minute},
		ActionRegister:       {Action: ActionRegister, Limit: 10, Window: time.Hour},
		ActionWatchlistRead:  {Action: ActionWatchlistRead, Limit: 60, Window: time.Minute},
		ActionWatchlistWrite: {Action: ActionWatchlistWrite, Limit: 20, Window: time.Minute},
		ActionAdmin:          {Action: ActionAdmin, Limit: 30, Window: time.Minute},
	}
}
