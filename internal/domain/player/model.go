package player

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Handedness is the side a player bats from.
type Handedness string

const (
	HandednessLeft  Handedness = "left"
	HandednessRight Handedness = "right"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// Player is a registered participant at a show.
type Player struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	Handedness   Handedness
	SignedWaiver bool
	IsFinalist   bool
	TeamID       string
	ActiveGameID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Player) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("player first name is required")
	}
	if p.MobileNumber != "" && !e164Pattern.MatchString(p.MobileNumber) {
		return fmt.Errorf("player mobile number must be E.164 formatted")
	}
	switch p.Handedness {
	case "", HandednessLeft, HandednessRight:
	default:
		return fmt.Errorf("invalid player handedness: %s", p.Handedness)
	}
	return nil
}

// HasMobileNumber gates every SMS side effect.
func (p Player) HasMobileNumber() bool {
	return strings.TrimSpace(p.MobileNumber) != ""
}

func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Filter narrows player listings. Nil pointers mean "any".
type Filter struct {
	TeamID       string
	IsFinalist   *bool
	SignedWaiver *bool
	Handedness   Handedness
}

func (f Filter) Match(p Player) bool {
	if f.TeamID != "" && p.TeamID != f.TeamID {
		return false
	}
	if f.IsFinalist != nil && p.IsFinalist != *f.IsFinalist {
		return false
	}
	if f.SignedWaiver != nil && p.SignedWaiver != *f.SignedWaiver {
		return false
	}
	if f.Handedness != "" && p.Handedness != f.Handedness {
		return false
	}
	return true
}
