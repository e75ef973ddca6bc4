package pkg

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/soins-plus/training-service/internal/config"
)

// InitRollbar configures the global Rollbar notifier. Reporting stays off without a token.
func InitRollbar(cfg *config.Config) bool {
	if cfg.Rollbar.Token == "" {
		rollbar.SetEnabled(false)
		return false
	}

	host, _ := os.Hostname()

	rollbar.SetToken(cfg.Rollbar.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.Rollbar.CodeVersion)
	rollbar.SetServerHost(host)
	rollbar.SetServerRoot("github.com/soins-plus/training-service")
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(true)
	return true
}
