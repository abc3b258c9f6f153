package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "wasmrepl"

// applyEnv sets every flag the user did not pass from WASMREPL_<FLAG>,
// with dashes in the flag name replaced by underscores.
func applyEnv(cmd *cobra.Command) error {
	var errs []string
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if f.Changed || !v.IsSet(key) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(key))); err != nil {
			errs = append(errs, err.Error())
		}
	})
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
}
