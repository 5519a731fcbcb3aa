// Package classify decides whether uploaded content looks like a meeting
// transcript (minutes-worthy) or a general document. Deliberately a keyword
// heuristic; anything smarter belongs behind the inference service.
package classify

import (
	"strings"

	"minuteman/pkg/models"
)

var transcriptMarkers = []string{
	"agenda",
	"attendees",
	"action items",
	"minutes",
	"meeting",
	"follow-up",
	"next steps",
}

// Classify returns the artifact kind for content.
func Classify(content string) models.ArtifactKind {
	lc := strings.ToLower(content)
	hits := 0
	for _, m := range transcriptMarkers {
		if strings.Contains(lc, m) {
			hits++
		}
	}
	if hits >= 2 {
		return models.KindTranscript
	}
	return models.KindDocument
}
