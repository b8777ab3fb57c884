package builder

import (
	"strconv"
	"strings"
)

// seasonText renders the resolved season text for a task. Season zero is
// labelled "Specials" when the default format is in effect.
func seasonText(task *Task) string {
	if task.Resolved.HideSeasonText {
		return ""
	}
	text := task.Resolved.SeasonText
	if task.Episode.Season == 0 && strings.Contains(text, "{season}") {
		return "Specials"
	}
	return expandTokens(text, task)
}

// episodeText renders the resolved episode text for a task.
func episodeText(task *Task) string {
	if task.Resolved.HideEpisodeText {
		return ""
	}
	return expandTokens(task.Resolved.EpisodeTextFormat, task)
}

// expandTokens substitutes the supported placeholders in a text format:
// {season}, {number}, {abs_number}, and {title}. {abs_number} falls back
// to the episode number when the library assigns no absolute numbering.
func expandTokens(format string, task *Task) string {
	absolute := task.Episode.AbsoluteNumber
	if absolute <= 0 {
		absolute = task.Episode.Number
	}
	replacer := strings.NewReplacer(
		"{season}", strconv.Itoa(task.Episode.Season),
		"{number}", strconv.Itoa(task.Episode.Number),
		"{abs_number}", strconv.Itoa(absolute),
		"{title}", task.Episode.Title,
	)
	return replacer.Replace(format)
}
