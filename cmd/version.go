package cmd

import (
	"fmt"
	"io"
	"os"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version information.
func runVersion() {
	writeVersion(os.Stdout)
}

func writeVersion(w io.Writer) {
	fmt.Fprintf(w, "Aftercare %s\n", Version)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)

	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hint: GEMINI_API_KEY is not set")
		fmt.Fprintln(w, "  export GEMINI_API_KEY=your-api-key")
	}
}
