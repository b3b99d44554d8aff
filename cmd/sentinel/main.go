package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rawblock/isa-sentinel/internal/audit"
	"github.com/rawblock/isa-sentinel/internal/entropy"
	"github.com/rawblock/isa-sentinel/internal/fixedthree"
	"github.com/rawblock/isa-sentinel/internal/ingest"
	"github.com/rawblock/isa-sentinel/internal/policy"
	"github.com/rawblock/isa-sentinel/internal/ring"
	"github.com/rawblock/isa-sentinel/internal/state"
	"github.com/rawblock/isa-sentinel/internal/store"
	"github.com/rawblock/isa-sentinel/internal/transport/api"
)

func main() {
	log.Println("Starting integrity-state sentinel...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All secrets and seed material MUST come from the environment. No
	// fallback defaults for security-sensitive values.
	// ────────────────────────────────────────────────────────────────────

	masterSeed := requireSeed("MASTER_SEED_HEX")
	n := getEnvIntOrDefault("DIMENSION_COUNT", 3)

	var st *store.Store
	var err error
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		st, err = store.Connect(context.Background(), dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persistence: %v", err)
		} else {
			defer st.Close()
			if err := st.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
		}
	}

	live := newLiveState(masterSeed, n, st)
	reference := live.Snapshot()

	policies, err := defaultPolicySet(n)
	if err != nil {
		log.Fatalf("FATAL: invalid default policy configuration: %v", err)
	}
	constraints, err := policy.NewConstraintSet(n, nil)
	if err != nil {
		log.Fatalf("FATAL: invalid default constraint configuration: %v", err)
	}

	quarantineReg := policy.NewQuarantineRegistry()
	auditMgr := audit.NewManager()
	entropySrc := entropy.NewSource()

	wsHub := api.NewHub()
	go wsHub.Run()

	broadcaster := api.NewVerdictBroadcaster(wsHub)

	handler := api.NewHandler(live, reference, policies, constraints, quarantineReg, auditMgr, broadcaster, entropySrc, st, wsHub)

	if shadowPolicies, err := loadShadowPolicySet(n); err != nil {
		log.Printf("Warning: invalid shadow policy configuration, shadow comparison disabled: %v", err)
	} else if shadowPolicies != nil {
		cmp, err := policy.NewShadowComparator(policies, shadowPolicies)
		if err != nil {
			log.Printf("Warning: failed to construct shadow comparator: %v", err)
		} else {
			handler.SetShadow(cmp)
			log.Println("Shadow policy comparison enabled against SHADOW_THRESHOLD_HEX")
		}
	}

	router := api.SetupRouter(handler)

	if st != nil {
		go runPeriodicSnapshots(context.Background(), st, live)
	}
	if feedURL := os.Getenv("INGEST_FEED_URL"); feedURL != "" {
		poller := ingest.NewPoller(ingest.NewHTTPSource(feedURL), handler, entropySrc)
		interval := time.Duration(getEnvIntOrDefault("INGEST_POLL_INTERVAL_SECONDS", 5)) * time.Second
		go poller.Run(context.Background(), interval)
	}

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Sentinel running on :%s (%d dimensions)\n", port, n)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runPeriodicSnapshots persists the live state on a fixed interval so a
// restart can resume near where it left off instead of re-deriving a
// fresh state from the master seed.
func runPeriodicSnapshots(ctx context.Context, st *store.Store, live *state.Locked) {
	interval := time.Duration(getEnvIntOrDefault("SNAPSHOT_INTERVAL_SECONDS", 60)) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.SaveStateSnapshot(ctx, time.Now(), live.Snapshot(), live.Counters()); err != nil {
				log.Printf("Warning: failed to persist state snapshot: %v", err)
			}
		}
	}
}

// newLiveState constructs the live, lockable state. If st holds a
// previously persisted snapshot for n axes, that snapshot is resumed
// instead of re-deriving a fresh state from masterSeed. Otherwise, at
// the canonical N=3 layout it goes through internal/fixedthree so the
// finance/time/hardware axis naming stays the boot-time default; any
// other dimension count falls back to the generic N-dimensional state.
func newLiveState(masterSeed [32]byte, n int, st *store.Store) *state.Locked {
	if st != nil {
		snapshot, counters, takenAt, err := st.LoadLatestStateSnapshot(context.Background(), n)
		if err != nil {
			log.Printf("Warning: failed to load persisted snapshot, starting fresh: %v", err)
		} else if snapshot != nil {
			log.Printf("Resuming live state from snapshot taken at %s", takenAt)
			return state.NewLocked(state.NewFromSnapshot(snapshot, counters))
		}
	}

	if n == 3 {
		fx := fixedthree.New(masterSeed)
		log.Printf("Using canonical fixed-three axis layout: finance=%d time=%d hardware=%d",
			fx.FinanceAxis(), fx.TimeAxis(), fx.HardwareAxis())
		return fixedthree.NewLocked(fx).Locked
	}
	return state.NewLocked(state.NewFixed(masterSeed, n))
}

// defaultPolicySet builds a MonitorOnly threshold for every axis at a
// shared threshold read from DEFAULT_THRESHOLD_HEX (32 bytes, hex-encoded
// in the ring's canonical little-endian byte order, per ring.FromBytes),
// or the ring's maximum magnitude if unset — i.e. no axis alarms until a
// caller supplies its own policy configuration.
func defaultPolicySet(n int) (*policy.PolicySet, error) {
	threshold := ring.Max
	if raw := os.Getenv("DEFAULT_THRESHOLD_HEX"); raw != "" {
		b, err := hex.DecodeString(raw)
		if err != nil || len(b) != ring.Size {
			log.Fatalf("FATAL: DEFAULT_THRESHOLD_HEX must be a 64-character hex string (32 bytes)")
		}
		threshold = ring.FromBytes(b)
	}

	policies := make([]policy.DimensionPolicy, n)
	for i := 0; i < n; i++ {
		policies[i] = policy.DimensionPolicy{
			Axis:      i,
			Name:      "axis-" + strconv.Itoa(i),
			Threshold: threshold,
			Strategy:  policy.MonitorOnly,
			Weight:    1.0,
		}
	}
	return policy.NewPolicySet(n, policies)
}

// loadShadowPolicySet builds an optional candidate PolicySet from
// SHADOW_THRESHOLD_HEX (same 32-byte little-endian encoding as
// DEFAULT_THRESHOLD_HEX), for observing a threshold change against live
// traffic before promoting it into defaultPolicySet. Returns (nil, nil)
// when the env var is unset.
func loadShadowPolicySet(n int) (*policy.PolicySet, error) {
	raw := os.Getenv("SHADOW_THRESHOLD_HEX")
	if raw == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != ring.Size {
		return nil, fmt.Errorf("SHADOW_THRESHOLD_HEX must be a 64-character hex string (32 bytes)")
	}
	threshold := ring.FromBytes(b)

	policies := make([]policy.DimensionPolicy, n)
	for i := 0; i < n; i++ {
		policies[i] = policy.DimensionPolicy{
			Axis:      i,
			Name:      "shadow-axis-" + strconv.Itoa(i),
			Threshold: threshold,
			Strategy:  policy.MonitorOnly,
			Weight:    1.0,
		}
	}
	return policy.NewPolicySet(n, policies)
}

// requireSeed reads a required 32-byte hex-encoded environment variable
// and exits if it is missing or malformed.
func requireSeed(key string) [32]byte {
	raw := os.Getenv(key)
	if raw == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != 32 {
		log.Fatalf("FATAL: %s must be a 64-character hex string (32 bytes), got %d decoded bytes (err=%v)", key, len(b), err)
	}
	var seed [32]byte
	copy(seed[:], b)
	return seed
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
