package backend

import (
	"errors"
	"fmt"
	"strings"
)

// logOptions are the only git log options accepted from callers. Any other
// option can change the record format or make git write files (--output).
var logOptions = map[string]bool{
	"--all":               true,
	"--branches":          true,
	"--remotes":           true,
	"--tags":              true,
	"--topo-order":        true,
	"--date-order":        true,
	"--author-date-order": true,
}

// CheckLogArg accepts a commit selector for Log: one of the selector options
// above or a revision, which must not start with "-".
func CheckLogArg(arg string) error {
	if arg == "" {
		return errors.New("empty log argument")
	}
	if strings.HasPrefix(arg, "-") && !logOptions[arg] {
		return fmt.Errorf("unsupported log argument %q", arg)
	}
	return nil
}

func CheckLogArgs(args []string) error {
	for _, arg := range args {
		if err := CheckLogArg(arg); err != nil {
			return err
		}
	}
	return nil
}
