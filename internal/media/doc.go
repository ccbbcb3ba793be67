// Package media previews the work a batch inference run will do: it pairs
// video and audio files by base name the same way the inference program does
// and reports which pairs already have output.
package media
