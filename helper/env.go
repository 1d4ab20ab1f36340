package helper

import (
	"fmt"
	"strings"

	"github.com/relloyd/campaignpipe/constants"
)

// GetPrefixedEnvVarName converts name to upper case with dashes and dots converted to underscores
// and prefixes it with constants.EnvVarPrefix.
func GetPrefixedEnvVarName(name string) string {
	n := strings.TrimSpace(strings.ToUpper(name))
	n = strings.NewReplacer("-", "_", ".", "_").Replace(n)
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}

// GetDsnEnvVarName returns the name of the environment variable that may hold a DSN for connectionName.
func GetDsnEnvVarName(connectionName string) string {
	return GetPrefixedEnvVarName(connectionName + "_DSN")
}
