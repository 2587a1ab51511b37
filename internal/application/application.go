// Package application defines a team's match-analysis application, how it is
// decoded and validated from a request body, and the roster rule that gates
// every export and email.
package application

import (
	"errors"
	"fmt"
)

// MinRosterSize is the smallest accepted starters plus substitutes count.
const MinRosterSize = 11

// ErrRosterTooSmall is returned when an application lists fewer than
// MinRosterSize players across the lineup and the bench.
var ErrRosterTooSmall = errors.New("at least 11 starting players required")

// MaxCellChars is the longest text a workbook cell holds, in characters.
const MaxCellChars = 32767

// ValidCellText reports whether every character of s can be stored in a
// workbook cell. XML 1.0 forbids most control characters; tab, newline and
// carriage return are allowed.
func ValidCellText(s string) bool {
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

// Player is one roster entry. Number is free-form ("10", "GK", "").
type Player struct {
	Name     string
	Position string
	Number   string
}

// Application is a validated submission. It lives for one request.
type Application struct {
	Plan        string
	MatchDate   string
	KickoffTime string
	Location    string
	HomeTeam    string
	AwayTeam    string

	RepresentativeName    string
	RepresentativeContact string

	VideoURL1 string
	VideoURL2 string

	Formation string

	// Players is the starting lineup in submission order.
	Players []Player
	// Substitutes is the bench in submission order.
	Substitutes []Player
}

// TotalPlayers returns the starters plus substitutes count.
func (a *Application) TotalPlayers() int {
	return len(a.Players) + len(a.Substitutes)
}

// CheckRoster enforces MinRosterSize.
func (a *Application) CheckRoster() error {
	if total := a.TotalPlayers(); total < MinRosterSize {
		return fmt.Errorf("%w: got %d starters and %d substitutes",
			ErrRosterTooSmall, len(a.Players), len(a.Substitutes))
	}
	return nil
}
