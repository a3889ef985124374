package domain

// RoundConfig is resolved once per round from the schedule.
type RoundConfig struct {
	CardsRequired int    `json:"cardsRequired"`
	PointValue    int    `json:"pointValue"`
	Label         string `json:"label"`
}

// DefaultRoundConfig applies to rounds no schedule phase covers.
var DefaultRoundConfig = RoundConfig{CardsRequired: 1, PointValue: 1}

// SchedulePhase groups rounds that share a combo size and point value.
type SchedulePhase struct {
	Rounds        []int  `yaml:"rounds"`
	CardsRequired int    `yaml:"cards_required"`
	Points        int    `yaml:"points"`
	Label         string `yaml:"label"`
}

// Schedule is the static point/label-per-round table.
type Schedule struct {
	TotalRounds int             `yaml:"total_rounds"`
	Phases      []SchedulePhase `yaml:"phases"`
}

// For returns the configuration of the given 1-based round.
func (s *Schedule) For(round int) RoundConfig {
	if s == nil {
		return DefaultRoundConfig
	}
	for _, phase := range s.Phases {
		for _, n := range phase.Rounds {
			if n == round {
				return RoundConfig{
					CardsRequired: phase.CardsRequired,
					PointValue:    phase.Points,
					Label:         phase.Label,
				}
			}
		}
	}
	return DefaultRoundConfig
}

// Rules holds the game tunables shared by every room.
type Rules struct {
	MinPlayers    int
	MaxPlayers    int
	HandSize      int
	ExtraPerCombo int

	// RequireFullReveal rejects pick_winner until every submission has been revealed.
	RequireFullReveal bool
}

// HandTarget is the hand size players are dealt up to for a round.
func (r Rules) HandTarget(cardsRequired int) int {
	return r.HandSize + cardsRequired*r.ExtraPerCombo
}
