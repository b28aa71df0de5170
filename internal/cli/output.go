package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/notify"
)

type sprintFunc func(a ...interface{}) string

// palette returns colorizers for the podium, or plain formatting when
// colors are disabled.
func palette(enabled bool) (gold, silver, bronze, dim sprintFunc) {
	if !enabled {
		return fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint
	}
	gold = color.New(color.FgYellow, color.Bold).SprintFunc()
	silver = color.New(color.FgWhite, color.Bold).SprintFunc()
	bronze = color.New(color.FgRed).SprintFunc()
	dim = color.New(color.Faint).SprintFunc()
	return gold, silver, bronze, dim
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// leaderboardHeader is the rank and name columns followed by one column per
// scoring category and the total.
func leaderboardHeader() []string {
	header := []string{"#", "Name"}
	header = append(header, model.Categories...)
	return append(header, "Total")
}

func leaderboardRows(entries []model.ScoreEntry, colors bool) [][]string {
	gold, silver, bronze, dim := palette(colors)
	rankColors := []sprintFunc{gold, silver, bronze}

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rank := strconv.Itoa(i + 1)
		name := e.DisplayName
		if i < len(notify.Medals) {
			rank = notify.Medals[i]
			name = rankColors[i](name)
		}
		if e.External {
			name += dim(" (external)")
		}
		row := []string{rank, name}
		for _, c := range model.Categories {
			row = append(row, strconv.Itoa(e.Breakdown[c]))
		}
		rows = append(rows, append(row, strconv.Itoa(e.Score)))
	}
	return rows
}

func writeLeaderboard(w io.Writer, entries []model.ScoreEntry, colors bool) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no contributions in this window")
		return err
	}

	table := tablewriter.NewWriter(w)
	defer table.Close()

	table.Header(leaderboardHeader())
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(leaderboardRows(entries, colors)); err != nil {
		return err
	}
	return table.Render()
}

func writeRoster(w io.Writer, roster *service.Roster, colors bool) error {
	_, _, _, dim := palette(colors)
	if _, err := fmt.Fprintf(w, "Support for %s\n", roster.Date); err != nil {
		return err
	}
	if len(roster.People) == 0 {
		_, err := fmt.Fprintln(w, dim("nobody is available"))
		return err
	}

	table := tablewriter.NewWriter(w)
	defer table.Close()

	table.Header([]string{"Slug", "Name", "Team", "Mention"})
	rows := make([][]string, 0, len(roster.People))
	for _, p := range roster.People {
		rows = append(rows, []string{p.Slug, p.DisplayName(), p.Team, p.Mention()})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if roster.Degraded {
		_, err := fmt.Fprintln(w, dim("warning: some sources were unavailable; the roster may include busy people"))
		return err
	}
	return nil
}
