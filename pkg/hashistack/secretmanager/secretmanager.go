package secretmanager

import (
	"os"
	"time"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the vault client config reads secrets through. It is only
// added to the app when Enabled reports true.
var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

const requestTimeout = 10 * time.Second

// Enabled reports whether a vault address is configured in the environment.
func Enabled() bool {
	return os.Getenv("VAULT_ADDR") != ""
}

// ProvideVault builds a client from the VAULT_* environment variables.
func ProvideVault() (*vault.Client, error) {
	client, err := vault.New(
		vault.WithEnvironment(),
		vault.WithRequestTimeout(requestTimeout),
	)
	if err != nil {
		return nil, err
	}

	zap.L().Info("vault client configured", zap.String("addr", os.Getenv("VAULT_ADDR")))
	return client, nil
}
