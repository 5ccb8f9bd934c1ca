package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/tothovalab/tcga-processor/internal/config"
)

// Check if output is to terminal
func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func colorEnabled() bool {
	return !noColor && isTerminal() && os.Getenv("NO_COLOR") == ""
}

// Print error message in user-friendly format
func printError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if colorEnabled() {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.Red.Sprint("✗"), msg)
		return
	}
	fmt.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// Print success message
func printSuccess(format string, args ...interface{}) {
	if quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if colorEnabled() {
		fmt.Printf("%s %s\n", color.Green.Sprint("✓"), msg)
		return
	}
	fmt.Printf("✓ %s\n", msg)
}

// Print info message
func printInfo(format string, args ...interface{}) {
	if quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if colorEnabled() {
		fmt.Println(color.Cyan.Sprint(msg))
		return
	}
	fmt.Println(msg)
}

// Print warning message
func printWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if colorEnabled() {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.Yellow.Sprint("⚠"), msg)
		return
	}
	fmt.Fprintf(os.Stderr, "⚠ %s\n", msg)
}

// Print debug message
func printDebug(format string, args ...interface{}) {
	if !debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if colorEnabled() {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.Gray.Sprint("[DEBUG]"), msg)
		return
	}
	fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)
}

// loadConfig resolves and loads the pipeline configuration.
func loadConfig() (*config.Config, error) {
	path := config.GetConfigPath(cfgFile)
	if path != "" {
		printDebug("Using config file %s", path)
	}
	return config.Load(path)
}
