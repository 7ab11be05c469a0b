package utils

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables that configure the CLI. A flag named
// --admin-database-url maps to STORELENS_ADMIN_DATABASE_URL.
const EnvPrefix = "STORELENS"

// BindFlagsToEnv binds the command's flags, inherited ones included, to prefixed environment
// variables. Precedence is flag, then environment, then flag default.
func BindFlagsToEnv(cmd *cobra.Command) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags of command %s: %w", cmd.Name(), err)
	}
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return fmt.Errorf("binding inherited flags of command %s: %w", cmd.Name(), err)
	}
	return nil
}
