package notify

import (
	"fmt"
	"strings"

	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/model"
)

// Medals decorate the top three leaderboard places.
var Medals = []string{"🥇", "🥈", "🥉"}

// Legend describes how points are earned.
func Legend(priorityPoints map[string]int, leadPerWeek, memberPerWeek int) string {
	return fmt.Sprintf(
		"_scores - %s for urgent, %s for high, %s for medium, %s for low, "+
			"1pt per merged PR, 1pt per PR review, %dpts/week for completed cycle project leads, "+
			"%dpts/week for completed cycle project members_",
		pts(priorityPoints[model.CategoryUrgent]),
		pts(priorityPoints[model.CategoryHigh]),
		pts(priorityPoints[model.CategoryMedium]),
		pts(priorityPoints[model.CategoryLow]),
		leadPerWeek, memberPerWeek,
	)
}

func pts(n int) string {
	if n == 1 {
		return "1pt"
	}
	return fmt.Sprintf("%dpts", n)
}

// Placing is one podium line.
type Placing struct {
	Who   string
	Score int
}

// Podium returns up to len(Medals) placings. Directory people are addressed
// by chat mention, everyone else by display name.
func Podium(entries []model.ScoreEntry, snap *directory.Snapshot) []Placing {
	n := min(len(entries), len(Medals))
	out := make([]Placing, 0, n)
	for _, e := range entries[:n] {
		who := e.DisplayName
		if snap != nil && !e.External {
			if p, ok := snap.Person(e.Slug); ok {
				who = p.Mention()
			}
		}
		out = append(out, Placing{Who: who, Score: e.Score})
	}
	return out
}

// FormatLeaderboard renders the podium, the legend and a link to the
// dashboard for the same window.
func FormatLeaderboard(podium []Placing, days int, legend, appURL string) string {
	var b strings.Builder
	b.WriteString("*Weekly Leaderboard*\n\n")
	if len(podium) == 0 {
		b.WriteString("No contributions recorded.\n")
	}
	for i, p := range podium {
		if i >= len(Medals) {
			break
		}
		fmt.Fprintf(&b, "%s %s: %d\n", Medals[i], p.Who, p.Score)
	}
	b.WriteString("\n\n")
	if legend != "" {
		b.WriteString(legend)
		b.WriteString("\n\n")
	}
	if appURL != "" {
		fmt.Fprintf(&b, "<%s/dashboard?days=%d|View Leaderboard>", strings.TrimRight(appURL, "/"), days)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSupport renders the support roster for date.
func FormatSupport(date string, mentions []string) string {
	if len(mentions) == 0 {
		return fmt.Sprintf("*Support for %s*\n\nNobody is free for support today.", date)
	}
	return fmt.Sprintf("*Support for %s*\n\n%s", date, strings.Join(mentions, " "))
}
