package main

import (
	"log"
	"os"
	"strings"

	"listfiles/cmd"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	app := cmd.NewApp(os.Stdin, os.Stdout, os.Stderr)
	err := app.Execute(os.Args[1:])

	if logger := app.Logger(); logger != nil {
		syncLogger(logger)
	}
	os.Exit(cmd.ExitCode(err))
}

// syncLogger flushes the logger when stderr can actually be synced.
func syncLogger(logger *zap.Logger) {
	if !term.IsTerminal(int(os.Stderr.Fd())) && !isRegularFile(os.Stderr) {
		return
	}
	if syncErr := logger.Sync(); syncErr != nil {
		lowerErr := strings.ToLower(syncErr.Error())
		if !strings.Contains(lowerErr, "invalid argument") && !strings.Contains(lowerErr, "inappropriate ioctl") {
			log.Printf("Logger sync failed: %v", syncErr)
		}
	}
}

// isRegularFile checks if the given file is a regular file.
func isRegularFile(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
