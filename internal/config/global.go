package config

import "sync"

var (
	globalCfg *Config      //nolint:gochecknoglobals // One effective config per CLI invocation.
	globalMu  sync.RWMutex //nolint:gochecknoglobals // Protects globalCfg.
)

// SetGlobalConfig installs the effective configuration for this invocation.
// Called once from the root command's PersistentPreRunE.
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}

// GetGlobalConfig returns the effective configuration, initializing a
// defaults-only Config when none has been installed yet.
func GetGlobalConfig() *Config {
	globalMu.RLock()
	cfg := globalCfg
	globalMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		globalCfg = New()
	}
	return globalCfg
}

// ResetGlobalConfig clears the installed configuration. Test hook.
func ResetGlobalConfig() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = nil
}
