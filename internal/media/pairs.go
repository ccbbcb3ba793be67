package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	videoExt     = ".mp4"
	audioExt     = ".mp3"
	outputSuffix = "-output.mp4"
)

// Pair is a video and audio file sharing a base name.
type Pair struct {
	Name   string
	Video  string
	Audio  string
	Output string
	// Done reports that Output already exists; inference skips the pair.
	Done bool
}

// Scan is the result of inspecting one folder.
type Scan struct {
	Folder string
	Pairs  []Pair
	// UnmatchedVideos and UnmatchedAudio hold base names without a partner.
	UnmatchedVideos []string
	UnmatchedAudio  []string
}

// Pending returns the pairs inference will process.
func (s Scan) Pending() []Pair {
	out := make([]Pair, 0, len(s.Pairs))
	for _, p := range s.Pairs {
		if !p.Done {
			out = append(out, p)
		}
	}
	return out
}

// FindPairs lists the top level of folder. Extensions match case-insensitively;
// base names match exactly.
func FindPairs(folder string) (Scan, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Scan{}, fmt.Errorf("folder %s does not exist", folder)
		}
		return Scan{}, fmt.Errorf("read folder: %w", err)
	}

	videos := make(map[string]string)
	audios := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		switch strings.ToLower(ext) {
		case videoExt:
			// Previous results are never listed as inputs, even when a
			// matching x-output.mp3 exists. batch_inference.py would still
			// pick such a pair up, so the plan may list fewer pairs.
			if strings.HasSuffix(strings.ToLower(name), outputSuffix) {
				continue
			}
			videos[base] = filepath.Join(folder, name)
		case audioExt:
			audios[base] = filepath.Join(folder, name)
		}
	}

	scan := Scan{Folder: folder}
	for base, video := range videos {
		audio, ok := audios[base]
		if !ok {
			scan.UnmatchedVideos = append(scan.UnmatchedVideos, base)
			continue
		}
		output := strings.TrimSuffix(video, filepath.Ext(video)) + outputSuffix
		_, statErr := os.Stat(output)
		scan.Pairs = append(scan.Pairs, Pair{
			Name:   base,
			Video:  video,
			Audio:  audio,
			Output: output,
			Done:   statErr == nil,
		})
	}
	for base := range audios {
		if _, ok := videos[base]; !ok {
			scan.UnmatchedAudio = append(scan.UnmatchedAudio, base)
		}
	}

	sort.Slice(scan.Pairs, func(i, j int) bool { return scan.Pairs[i].Name < scan.Pairs[j].Name })
	sort.Strings(scan.UnmatchedVideos)
	sort.Strings(scan.UnmatchedAudio)
	return scan, nil
}

// PadSeconds returns the silence prepended to center audio inside the video,
// or 0 when the audio is not shorter.
func PadSeconds(videoSeconds, audioSeconds float64) float64 {
	if audioSeconds <= 0 || videoSeconds <= audioSeconds {
		return 0
	}
	return (videoSeconds - audioSeconds) / 2
}
