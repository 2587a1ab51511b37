package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fineplay-930/apply/internal/application"
)

// TimestampLayout formats creation times as YYYYMMDD_HHMMSS (UTC).
const TimestampLayout = "20060102_150405"

// Roster row types.
const (
	TypeStarter = "starter"
	TypeSub     = "sub"
)

// Sheet (and CSV role) names.
const (
	SummarySheet = "summary"
	PlayersSheet = "players"
)

// SummaryColumns is the fixed column order of the summary table.
var SummaryColumns = []string{
	"created_at_utc",
	"plan",
	"match_date",
	"kickoff_time",
	"location",
	"home_team",
	"away_team",
	"representative_name",
	"representative_contact",
	"video_url_1",
	"video_url_2",
	"formation",
	"players_count",
	"substitutes_count",
	"total_count",
}

// RosterColumns is the fixed column order of the roster table.
var RosterColumns = []string{"type", "name", "position", "number"}

// Table is a header plus data rows. Cells are strings or ints.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Summary returns the one-row submission summary.
func Summary(app *application.Application, createdAt time.Time) Table {
	return Table{
		Name:    SummarySheet,
		Columns: SummaryColumns,
		Rows: [][]any{{
			Timestamp(createdAt),
			app.Plan,
			app.MatchDate,
			app.KickoffTime,
			app.Location,
			app.HomeTeam,
			app.AwayTeam,
			app.RepresentativeName,
			app.RepresentativeContact,
			app.VideoURL1,
			app.VideoURL2,
			app.Formation,
			len(app.Players),
			len(app.Substitutes),
			app.TotalPlayers(),
		}},
	}
}

// Roster lists starters then substitutes, each in submission order.
func Roster(app *application.Application) Table {
	rows := make([][]any, 0, app.TotalPlayers())
	for _, p := range app.Players {
		rows = append(rows, []any{TypeStarter, p.Name, p.Position, p.Number})
	}
	for _, p := range app.Substitutes {
		rows = append(rows, []any{TypeSub, p.Name, p.Position, p.Number})
	}
	return Table{Name: PlayersSheet, Columns: RosterColumns, Rows: rows}
}

// Timestamp formats t in UTC with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SanitizeTeam makes a team name safe for a filename segment.
// Empty names become "HOME"; "/" becomes "_".
func SanitizeTeam(team string) string {
	if team == "" {
		team = "HOME"
	}
	return strings.ReplaceAll(team, "/", "_")
}

// formatCell renders a cell for text output.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// record renders a row for encoding/csv.
func record(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = formatCell(v)
	}
	return out
}
