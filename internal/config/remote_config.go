package config

import "time"

const (
	// Room settings bounds
	MinQuestions     = 5
	MaxQuestions     = 20
	DefaultQuestions = 10
	MinTimeLimit     = 10 * time.Second
	MaxTimeLimit     = 120 * time.Second
	DefaultTimeLimit = 60 * time.Second

	// Room codes
	RoomCodeAttempts = 5

	// Lifecycle sweep
	SweepSchedule     = "@every 10m"
	WaitingRoomTTL    = 1 * time.Hour
	ActiveRoomTTL     = 3 * time.Hour
	TerminalRetention = 24 * time.Hour

	// Reports
	ReportEscalationThreshold = 3
	ReportEscalationWindow    = 24 * time.Hour

	// Share links handed back by createRoom
	ShareURLBase = "https://whobible.app/community.html"
)

var ReportCategoryWeights = map[string]int{
	"profanity":  50,
	"harassment": 100,
	"cheating":   25,
	"spam":       10,
}
