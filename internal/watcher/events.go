// Package watcher turns filesystem notifications on the three watched roots
// into jobs and debounce registrations.
package watcher

import (
	"path/filepath"
	"strings"
)

// Root identifies which watched directory an event originated from.
type Root int

const (
	// RootAudio is the flat audio inbox.
	RootAudio Root = iota
	// RootText is the flat text inbox, doubling as the retry directory.
	RootText
	// RootKnowledge is the recursive knowledge output tree.
	RootKnowledge
)

// Op is the reduced set of filesystem operations the router cares about.
type Op int

const (
	// OpCreated covers creation and moves into a watched root.
	OpCreated Op = iota
	// OpModified covers writes to an existing file.
	OpModified
)

// Event is one tagged filesystem notification.
type Event struct {
	Root Root
	Op   Op
	Path string
}

// IsAudioArtifact reports whether name has a recognized audio extension.
func IsAudioArtifact(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m4a", ".mp3", ".wav":
		return true
	}
	return false
}

// IsTextArtifact reports whether name has a recognized text extension.
func IsTextArtifact(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// IsKnowledgeDocument reports whether name is a markdown knowledge document.
func IsKnowledgeDocument(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".md"
}
