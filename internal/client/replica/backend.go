package replica

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/zkvault/internal/client/config"
)

// NewBackend builds the backend selected by cfg.Kind. It returns (nil, nil)
// when replication is not configured.
func NewBackend(ctx context.Context, cfg config.Replica) (Backend, error) {
	switch cfg.Kind {
	case "":
		return nil, nil
	case "couch":
		return NewCouchBackend(ctx, cfg.CouchURL, cfg.CouchDB)
	case "s3":
		return NewS3Backend(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown replica kind %q", cfg.Kind)
	}
}
