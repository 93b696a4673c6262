// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort       - port for the UI, /sync, /ping and /metrics (default 6969)
//   - StaticDir      - directory for the front-end assets; empty uses the embedded copy
//   - SampleInterval - pause between host reads (default 200ms)
//   - LogLevel       - debug|info|warn|error (default info)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) re-runs Load on every write with fsnotify;
// SampleInterval and LogLevel are applied live by the server binary.
package config
