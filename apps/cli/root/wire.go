package root

import (
	migratecmd "github.com/assessio/assessio-backend/apps/cli/cmd/migrate"
	orgcmd "github.com/assessio/assessio-backend/apps/cli/cmd/org"
)

func init() {
	rootCmd.AddCommand(migratecmd.Command())
	rootCmd.AddCommand(orgcmd.Command())
}
