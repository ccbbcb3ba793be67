package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpegForEnvironment reports the FFmpeg binary the inference program
// will execute.
//
// Python tooling inside the environment resolves "ffmpeg" from PATH with the
// environment's bin directory first, so a binary installed there wins over
// the system one. This mirrors that lookup.
func CheckFFmpegForEnvironment(binDir string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by inference to mux audio into the output video",
	}

	if candidate, ok := InEnvironment(binDir, "ffmpeg"); ok {
		result.Command = candidate
		result.Available = true
		return result
	}

	if ffmpegPath, err := lookPath("ffmpeg"); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = "ffmpeg"
	result.Detail = fmt.Sprintf("binary %q not found", "ffmpeg")
	return result
}

// InEnvironment returns the path of name inside binDir when it exists there
// as an executable.
func InEnvironment(binDir, name string) (string, bool) {
	dir := strings.TrimSpace(binDir)
	if dir == "" {
		return "", false
	}
	candidate := filepath.Join(dir, executableName(name))
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate, true
	}
	return "", false
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
