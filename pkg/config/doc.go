// Package config provides application configuration management from environment variables.
//
// Configuration is loaded from HUBCAP_* environment variables with sensible
// defaults and validated before the server starts.
//
// Server settings:
//
//	HUBCAP_HOST="0.0.0.0"
//	HUBCAP_PORT="8080"
//	HUBCAP_HEALTH_PORT="9090"
//	HUBCAP_MAX_UPLOAD_BYTES="209715200"
//
// Database and blob storage:
//
//	HUBCAP_POSTGRES_URL="postgres://localhost/hubcap"
//	HUBCAP_BLOBSTORE_TYPE="s3"  # filesystem or s3
//	HUBCAP_S3_ENDPOINT="http://minio:9000"
//	HUBCAP_S3_PRIVATE_BUCKET="hubcap-private"
//	HUBCAP_S3_PUBLIC_BUCKET="hubcap-public"
//
// Cache settings:
//
//	HUBCAP_CACHE_ENABLED="true"
//	HUBCAP_REDIS_ADDR="localhost:6379"
//	HUBCAP_L1_CACHE_SIZE="4096"
//
// Signing and events:
//
//	HUBCAP_SIGNING_ENDPOINT="http://signer:8000/sign"
//	HUBCAP_EVENTS_WEBHOOK_URL="http://notifier:8000/hooks"
//
// Observability settings:
//
//	HUBCAP_LOG_LEVEL="info"  # debug, info, warn, error
//	HUBCAP_OTEL_ENABLED="true"
//	HUBCAP_OTEL_ENDPOINT="otel-collector:4317"
package config
