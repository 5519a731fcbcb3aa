// Package banner prints startup information.
package banner

import (
	"fmt"
	"os"
)

// Print writes the startup banner with build info and effective settings.
func Print(version, addr, dbPath, cfgSource string) {
	fmt.Fprintf(os.Stdout, "minuteman %s\n", version)
	fmt.Fprintf(os.Stdout, "  listen:  %s\n", addr)
	fmt.Fprintf(os.Stdout, "  store:   %s\n", dbPath)
	fmt.Fprintf(os.Stdout, "  config:  %s\n", cfgSource)
}
