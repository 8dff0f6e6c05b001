package launcher

import (
	"path/filepath"
	"time"
)

// defaultConfig returns the baseline configuration before file and CLI
// overrides. Schedule crons are left empty so the selected preset's cadence
// applies unless explicitly overridden.
func defaultConfig() Config {
	return Config{
		Node: NodeConfig{
			DataDir: filepath.Join(GuessHomeDir(), ".lpvault"),
			Logging: LoggingConfig{
				Verbosity: 4,
				Format:    "text",
			},
		},
		Vault: VaultConfig{
			Preset:     "fake",
			RPCURL:     "http://127.0.0.1:8545",
			RPCTimeout: 30 * time.Second,
		},
	}
}
