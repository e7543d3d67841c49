package backend

import (
	"log"

	"provdesk/internal/config"
	"provdesk/pkg/database"
)

// Select probes the environment once at startup and returns the concrete
// adapter everything else is wired against. An unreachable configured backend
// fails over to the local demo store deterministically, and never silently.
func Select(cfg *config.Config) Adapter {
	switch cfg.BackendKind() {
	case config.BackendSupabase:
		pool, err := database.NewPool(cfg.SupabaseDBURL)
		if err != nil {
			log.Printf("WARN: supabase backend unavailable, falling back to local store: %v", err)
			return NewLocalAdapter(cfg.DemoAutoApprove)
		}
		log.Printf("Backend selected: supabase")
		return NewSupabaseAdapter(pool)

	case config.BackendFirebase:
		log.Printf("Backend selected: firebase (project %s)", cfg.FirebaseProjectID)
		return NewFirebaseAdapter(cfg.FirebaseProjectID, cfg.FirebaseAPIKey, nil)

	default:
		log.Printf("WARN: no backend configured, using local demo store")
		return NewLocalAdapter(cfg.DemoAutoApprove)
	}
}
