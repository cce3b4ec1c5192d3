package oddsapi

import "time"

// DTOs raw de The Odds API v4. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// apiEvent es un elemento de GET /sports/{sport}/events.
type apiEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	SportTitle   string    `json:"sport_title"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

// apiEventOdds es la respuesta de GET /sports/{sport}/events/{id}/odds.
type apiEventOdds struct {
	apiEvent
	Bookmakers []apiBookmaker `json:"bookmakers"`
}

type apiBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []apiMarket `json:"markets"`
}

type apiMarket struct {
	Key      string       `json:"key"` // h2h | totals | spreads | btts | draw_no_bet | double_chance
	Outcomes []apiOutcome `json:"outcomes"`
}

type apiOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}
