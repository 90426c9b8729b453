//go:build ignore

// build.go - statementcheck build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, analyze, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const contractsPkg = "statementcheck/pkg/contracts"

var (
	distDir = "dist"

	// key = directory under cmd/, value = output binary name
	executables = map[string]string{
		"web":     "statementcheck-web",
		"analyze": "statementcheck",
	}

	// release matrix
	platforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	var err error
	switch *target {
	case "all":
		err = buildAll(*verbose)
	case "web", "analyze":
		err = buildExecutable(*target, runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = clean(*verbose)
	case "release":
		err = buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "       statementcheck - Build System       " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(verbose bool) error {
	printInfo("Building all executables...")
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", distDir, err)
	}
	for name := range executables {
		if err := buildExecutable(name, runtime.GOOS, runtime.GOARCH, verbose); err != nil {
			return err
		}
	}
	return nil
}

// buildExecutable compiles cmd/<name> for one platform into dist/.
func buildExecutable(name, goos, goarch string, verbose bool) error {
	binName, ok := executables[name]
	if !ok {
		return fmt.Errorf("unknown executable: %s", name)
	}

	outDir := distDir
	if goos != runtime.GOOS || goarch != runtime.GOARCH {
		outDir = filepath.Join(distDir, goos+"_"+goarch)
	}
	if goos == "windows" {
		binName += ".exe"
	}
	outputPath := filepath.Join(outDir, binName)

	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, goos, goarch))

	ldflags := fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		contractsPkg, time.Now().UTC().Format(time.RFC3339), contractsPkg, gitCommit())

	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", outputPath, "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
		fmt.Printf("  go %s\n", strings.Join(args, " "))
	}

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS="+goos, "GOARCH="+goarch)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", outputPath, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go tests failed: %w", err)
	}
	printSuccess("All tests passed")
	return nil
}

func buildRelease(verbose bool) error {
	printInfo("Building release binaries...")
	if err := clean(verbose); err != nil {
		return err
	}
	for _, platform := range platforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		for name := range executables {
			if err := buildExecutable(name, goos, goarch, verbose); err != nil {
				return err
			}
		}
	}
	return nil
}

func clean(verbose bool) error {
	printInfo("Cleaning build artifacts and logs...")
	if err := os.RemoveAll(distDir); err != nil {
		return fmt.Errorf("failed to clean %s: %w", distDir, err)
	}

	logs, _ := filepath.Glob(filepath.Join("logs", "*.log"))
	for _, logFile := range logs {
		if verbose {
			fmt.Printf("  Removing: %s\n", logFile)
		}
		if err := os.Remove(logFile); err != nil {
			printWarning(fmt.Sprintf("Failed to remove %s: %v", logFile, err))
		}
	}
	printSuccess("Build artifacts cleaned")
	return nil
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       Build both executables for this platform (default)")
	fmt.Println("  web       Build the HTTP server")
	fmt.Println("  analyze   Build the command line analyzer")
	fmt.Println("  test      Run all tests with the race detector")
	fmt.Println("  clean     Remove dist/ and log files")
	fmt.Println("  release   Cross-compile both executables for " + strings.Join(platforms, ", "))
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v        Verbose output")
}
