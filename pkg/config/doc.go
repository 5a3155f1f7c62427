// Package config loads tasklist configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// TASKLIST_CONFIG_FILE, then TASKLIST_* environment variables. Section and
// field names map to variables by upper-casing and joining words with
// underscores:
//
//	TASKLIST_SERVER_PORT=8080
//	TASKLIST_SERVER_HEALTH_PORT=9090
//	TASKLIST_STORAGE_TYPE=postgres            # memory, postgres, sqlite
//	TASKLIST_STORAGE_URL=postgres://...
//	TASKLIST_STORAGE_REPLICA_URLS=postgres://r1,postgres://r2
//	TASKLIST_REDIS_URL=redis://localhost:6379/0
//	TASKLIST_AUTH_SIGNING_KEY=<at least 32 bytes>
//	TASKLIST_AUTH_ISSUER=tasklist
//	TASKLIST_AUTH_AUDIENCE=tasklist-clients
//	TASKLIST_SEED_ADMIN_PASSWORD=...
//	TASKLIST_RATE_LIMIT_AUTH_REQUESTS=10
//	TASKLIST_OBSERVABILITY_LOG_LEVEL=debug
//
// The same settings in YAML:
//
//	server:
//	  port: "8080"
//	storage:
//	  type: sqlite
//	  url: file:tasklist.db
//	auth:
//	  signing_key: ...
package config
