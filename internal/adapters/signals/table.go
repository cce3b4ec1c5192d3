// Package signals implementa el SignalProvider: una tabla YAML de ritmos
// goleadores y ratings Elo, con caché opcional en Redis.
package signals

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alejandrodnm/valuebot/internal/domain"
	"gopkg.in/yaml.v3"
)

// tableFile es el formato YAML de la tabla.
type tableFile struct {
	Competitions map[string]map[string]teamRow `yaml:"competitions"`
}

type teamRow struct {
	ScoringRate float64 `yaml:"scoring_rate"`
	Rating      float64 `yaml:"rating"`
}

// Table es un SignalProvider en memoria. Solo lectura tras cargarse.
type Table struct {
	byCompetition map[string]map[string]domain.TeamSignal // claves normalizadas
	byTeam        map[string]domain.TeamSignal            // primera aparición de cada equipo
}

// LoadTable lee la tabla desde un archivo YAML.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signals.LoadTable: read %q: %w", path, err)
	}
	return ParseTable(data)
}

// ParseTable interpreta una tabla YAML ya leída.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("signals.ParseTable: parse YAML: %w", err)
	}

	t := &Table{
		byCompetition: make(map[string]map[string]domain.TeamSignal, len(f.Competitions)),
		byTeam:        make(map[string]domain.TeamSignal),
	}
	for comp, teams := range f.Competitions {
		m := make(map[string]domain.TeamSignal, len(teams))
		for team, row := range teams {
			if row.ScoringRate < 0 || row.Rating < 0 {
				return nil, fmt.Errorf("signals.ParseTable: %s/%s: negative signal", comp, team)
			}
			sig := domain.TeamSignal{ScoringRate: row.ScoringRate, StrengthRating: row.Rating}
			m[normalize(team)] = sig
			if _, ok := t.byTeam[normalize(team)]; !ok {
				t.byTeam[normalize(team)] = sig
			}
		}
		t.byCompetition[normalize(comp)] = m
	}
	return t, nil
}

// GetSignal busca el equipo en la competición y, si no está, en cualquier otra.
// Un equipo desconocido devuelve la señal cero.
func (t *Table) GetSignal(_ context.Context, team, competition string) (domain.TeamSignal, error) {
	key := normalize(team)
	if teams, ok := t.byCompetition[normalize(competition)]; ok {
		if sig, ok := teams[key]; ok {
			return sig, nil
		}
	}
	return t.byTeam[key], nil
}

// Len devuelve el número de equipos distintos de la tabla.
func (t *Table) Len() int {
	return len(t.byTeam)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
