package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"baseplan.ai/internal/persistence/indexdb"
	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	WriteReport(r reconcile.Report) error
	WriteAudit(e plog.AuditEntry) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Close() error
}

// catalogIndex is implemented by backends that keep a catalog table.
type catalogIndex interface {
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
}

func openRuntimeIndex(dataDir, plannerID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BP_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "reports.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "remote":
		endpoint := strings.TrimSpace(os.Getenv("BP_INDEX_REMOTE_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("BP_INDEX_BACKEND=remote but BP_INDEX_REMOTE_URL is empty")
		}
		idx, err := indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("BP_INDEX_REMOTE_TOKEN")),
			PlannerID:     plannerID,
			BatchSize:     envInt("BP_INDEX_REMOTE_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("BP_INDEX_REMOTE_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported BP_INDEX_BACKEND: %s", backend)
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
