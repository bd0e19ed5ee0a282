package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/VoiceDNA/pkg/utils"
)

const defaultTranscodeTimeout = 2 * time.Minute

// transcodeToMonoWAV runs ffmpeg to turn any container ffmpeg understands into
// a mono 16-bit PCM WAV inside tempDir. A zero sampleRate keeps the source
// rate. The caller removes the returned file.
func transcodeToMonoWAV(ctx context.Context, ffmpeg, inputPath, tempDir string, sampleRate int) (string, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpeg); err != nil {
		return "", fmt.Errorf("ffmpeg not available (%s): %w", ffmpeg, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTranscodeTimeout)
		defer cancel()
	}

	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := utils.MakeDir(tempDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(tempDir, base+"-"+strconv.FormatInt(time.Now().UnixNano(), 36)+".wav")
	tmpPath := outputPath + ".tmp.wav"
	defer utils.DeleteFile(tmpPath)

	args := []string{
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
	}
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	args = append(args, "-c:a", "pcm_s16le", tmpPath)

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}
