// Package ffprobe reads container durations with ffprobe so a run preview can
// show how much silence audio padding will add to each pair.
package ffprobe
