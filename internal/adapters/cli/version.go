package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			p := a.print()
			p.Header("collectorkit")
			fmt.Fprintf(p.w, "Version:     %s\n", a.cfg.AppVersion)
			fmt.Fprintf(p.w, "API:         %s\n", a.cfg.APIVersion)
			fmt.Fprintf(p.w, "Go Version:  %s\n", runtime.Version())
			fmt.Fprintf(p.w, "Platform:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(p.w, "Languages:   %s\n", strings.Join(a.tr.AvailableLanguages(), ", "))
			fmt.Fprintf(p.w, "Storage:     %s\n", a.cfg.Storage.Backend)
		},
	}
}
