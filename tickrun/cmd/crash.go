package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// writeCrashReport writes the panic value and the stack of a crashed run into
// crash_<id>.log under dir and returns the path of the file.
func writeCrashReport(dir, id string, r any, stack []byte) (string, error) {
	path := filepath.Join(dir, "crash_"+id+".log")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create crash report: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "run: %s\n", id)
	fmt.Fprintf(f, "time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(f, "version: %s (%s)\n", version(), runtime.Version())
	fmt.Fprintf(f, "panic: %v\n\n", r)

	if _, err := f.Write(stack); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}

	return path, nil
}
