package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"baseplan.ai/internal/persistence/mirror"
)

// buildSnapshotMirror returns nil when BP_MIRROR is off.
func buildSnapshotMirror(dataDir, plannerID string, logger *log.Logger) (*mirror.Mirror, error) {
	if !envBool("BP_MIRROR", false) {
		return nil, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("BP_MIRROR_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("BP_MIRROR_BUCKET"))
	accessKeyID := strings.TrimSpace(os.Getenv("BP_MIRROR_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("BP_MIRROR_SECRET_ACCESS_KEY"))
	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("BP_MIRROR=true but BP_MIRROR_ENDPOINT/BP_MIRROR_BUCKET/BP_MIRROR_ACCESS_KEY_ID/BP_MIRROR_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := mirror.NewClient(mirror.ClientConfig{
		Endpoint:        endpoint,
		Bucket:          bucket,
		Region:          strings.TrimSpace(os.Getenv("BP_MIRROR_REGION")),
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSpace(os.Getenv("BP_MIRROR_PREFIX"))
	if prefix == "" {
		prefix = plannerID
	}
	return mirror.New(client, dataDir, mirror.Options{
		Prefix:  prefix,
		Workers: envInt("BP_MIRROR_WORKERS", 2),
		Logger:  logger,
	}), nil
}
