package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// PrintError prints err prefixed with a bold red "Error: ".
func PrintError(w io.Writer, err error) {
	//nolint:errcheck
	color.New(color.Bold, color.FgRed).Fprint(w, "Error: ")
	//nolint:errcheck
	fmt.Fprintln(w, err)
}
