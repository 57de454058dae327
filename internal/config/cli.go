package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// InitViper makes viper read CHAINWATCH_ prefixed environment variables, with
// dots and dashes in keys mapped to underscores.
func InitViper() {
	viper.SetEnvPrefix(ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// BindFlags binds every flag of the given set to its snake cased viper key and
// to the matching environment variable.
func BindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key := KebabToSnakeCase(f.Name)
		if err := viper.BindPFlag(key, f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(key); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}

// BindCommandFlags binds both the local and inherited persistent flags of cmd.
func BindCommandFlags(cmd *cobra.Command) {
	BindFlags(cmd.Flags())
	BindFlags(cmd.InheritedFlags())
}
