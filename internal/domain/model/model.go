// Package model convierte señales de equipo (ritmo goleador y rating Elo) en
// probabilidades para cada regla del catálogo de mercados.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// ErrInvalidConfig indica constantes del modelo incoherentes.
var ErrInvalidConfig = errors.New("invalid model config")

// weightTolerance es la holgura al comprobar que los pesos del 1X2 suman 1.
const weightTolerance = 1e-6

// Config contiene las constantes del modelo. Todas son heurísticas documentadas,
// no calibradas empíricamente.
type Config struct {
	// Mezcla del 1X2: ScoringWeight + RatingWeight + PriorWeight = 1.
	ScoringWeight float64
	RatingWeight  float64
	PriorWeight   float64
	HomePrior     float64 // probabilidad fija de ventaja de campo

	ResultFloor float64 // banda del strength share
	ResultCeil  float64
	DrawShare   float64 // empate máximo cuando los equipos están igualados

	DefaultScoringRate float64 // ritmo por equipo cuando falta la señal

	TotalsOffset float64 // over(L) = total / (L + offset)
	TotalsCap    float64

	BTTSDivisor float64
	BTTSFloor   float64
	BTTSCap     float64

	DoubleChanceCap float64
	HandicapDecay   float64 // factor por cada gol extra de margen
	CleanSheetCap   float64

	CornersBase    float64
	CornersPerGoal float64
	CornersScale   float64
	CardsBase      float64
	CardsCloseness float64
	CardsScale     float64
	PropFloor      float64 // banda de corners/tarjetas
	PropCeil       float64
}

// DefaultConfig devuelve las constantes por defecto.
func DefaultConfig() Config {
	return Config{
		ScoringWeight: 0.45,
		RatingWeight:  0.35,
		PriorWeight:   0.20,
		HomePrior:     0.55,

		ResultFloor: 0.25,
		ResultCeil:  0.75,
		DrawShare:   0.28,

		DefaultScoringRate: 1.25,

		TotalsOffset: 0.6, // 2.5 → divisor 3.1
		TotalsCap:    0.78,

		BTTSDivisor: 2.2,
		BTTSFloor:   0.25,
		BTTSCap:     0.75,

		DoubleChanceCap: 0.95,
		HandicapDecay:   0.6,
		CleanSheetCap:   0.60,

		CornersBase:    7.0,
		CornersPerGoal: 1.2,
		CornersScale:   2.0,
		CardsBase:      3.2,
		CardsCloseness: 1.8,
		CardsScale:     1.5,
		PropFloor:      0.30,
		PropCeil:       0.70,
	}
}

// Inputs son las señales de ambos equipos de un evento.
type Inputs struct {
	Home domain.TeamSignal
	Away domain.TeamSignal
}

// Model es el modelo de probabilidad. Sin estado mutable: seguro para uso concurrente.
type Model struct {
	cfg Config
}

// New crea un Model. Los campos a 0 toman el valor por defecto y el resultado
// se valida: unos pesos que no suman 1 devuelven ErrInvalidConfig.
func New(cfg Config) (*Model, error) {
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Default crea un Model con las constantes por defecto.
func Default() *Model {
	return &Model{cfg: DefaultConfig()}
}

// Validate comprueba la coherencia de las constantes ya completadas.
func (c Config) Validate() error {
	sum := c.ScoringWeight + c.RatingWeight + c.PriorWeight
	if c.ScoringWeight < 0 || c.RatingWeight < 0 || c.PriorWeight < 0 || math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("model.Config.Validate: %w: weights %.4f + %.4f + %.4f = %.4f, want 1",
			ErrInvalidConfig, c.ScoringWeight, c.RatingWeight, c.PriorWeight, sum)
	}
	if !(c.ResultFloor > 0 && c.ResultFloor < c.ResultCeil && c.ResultCeil < 1) {
		return fmt.Errorf("model.Config.Validate: %w: result band [%.2f, %.2f]", ErrInvalidConfig, c.ResultFloor, c.ResultCeil)
	}
	if c.HomePrior >= 1 || c.DrawShare >= 1 {
		return fmt.Errorf("model.Config.Validate: %w: home_prior %.2f, draw_share %.2f must be < 1",
			ErrInvalidConfig, c.HomePrior, c.DrawShare)
	}
	for name, v := range map[string]float64{
		"totals_cap": c.TotalsCap, "btts_cap": c.BTTSCap, "double_chance_cap": c.DoubleChanceCap,
		"clean_sheet_cap": c.CleanSheetCap, "prop_ceil": c.PropCeil,
	} {
		if v > 1 {
			return fmt.Errorf("model.Config.Validate: %w: %s %.2f > 1", ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// Estimate devuelve la probabilidad de un outcome según la regla del mercado.
// ok=false si la regla o el outcome no existen.
func (m *Model) Estimate(rule domain.Rule, outcome string, line float64, in Inputs) (domain.ProbabilityEstimate, bool) {
	home, away := m.rates(in)
	res := m.matchResult(in)

	var p float64
	switch rule {
	case domain.RuleMatchResult:
		switch outcome {
		case domain.OutcomeHome:
			p = res.home
		case domain.OutcomeDraw:
			p = res.draw
		case domain.OutcomeAway:
			p = res.away
		default:
			return domain.ProbabilityEstimate{}, false
		}

	case domain.RuleTotals:
		over := m.over(home+away, line)
		switch outcome {
		case domain.OutcomeOver:
			p = over
		case domain.OutcomeUnder:
			p = 1 - over
		default:
			return domain.ProbabilityEstimate{}, false
		}

	case domain.RuleBTTS:
		yes := clamp(home*away/m.cfg.BTTSDivisor, m.cfg.BTTSFloor, m.cfg.BTTSCap)
		switch outcome {
		case domain.OutcomeYes:
			p = yes
		case domain.OutcomeNo:
			p = 1 - yes
		default:
			return domain.ProbabilityEstimate{}, false
		}

	case domain.RuleDoubleChance:
		switch outcome {
		case domain.Outcome1X:
			p = res.home + res.draw
		case domain.Outcome12:
			p = res.home + res.away
		case domain.OutcomeX2:
			p = res.draw + res.away
		default:
			return domain.ProbabilityEstimate{}, false
		}
		p = math.Min(p, m.cfg.DoubleChanceCap)

	case domain.RuleDrawNoBet:
		win, lose, ok := res.side(outcome)
		if !ok {
			return domain.ProbabilityEstimate{}, false
		}
		p = win / (win + lose)

	case domain.RuleHandicap:
		win, lose, ok := res.side(outcome)
		if !ok {
			return domain.ProbabilityEstimate{}, false
		}
		p = m.handicap(win, lose, line)

	case domain.RuleCleanSheet:
		switch outcome {
		case domain.OutcomeHome:
			p = math.Exp(-away)
		case domain.OutcomeAway:
			p = math.Exp(-home)
		default:
			return domain.ProbabilityEstimate{}, false
		}
		p = math.Min(p, m.cfg.CleanSheetCap)

	case domain.RuleCorners:
		expected := m.cfg.CornersBase + m.cfg.CornersPerGoal*(home+away)
		over := clamp(logistic((expected-line)/m.cfg.CornersScale), m.cfg.PropFloor, m.cfg.PropCeil)
		switch outcome {
		case domain.OutcomeOver:
			p = over
		case domain.OutcomeUnder:
			p = 1 - over
		default:
			return domain.ProbabilityEstimate{}, false
		}

	case domain.RuleCards:
		// Partidos igualados → más tarjetas.
		expected := m.cfg.CardsBase + m.cfg.CardsCloseness*(1-math.Abs(res.home-res.away))
		over := clamp(logistic((expected-line)/m.cfg.CardsScale), m.cfg.PropFloor, m.cfg.PropCeil)
		switch outcome {
		case domain.OutcomeOver:
			p = over
		case domain.OutcomeUnder:
			p = 1 - over
		default:
			return domain.ProbabilityEstimate{}, false
		}

	case domain.RuleFirstGoal:
		none := math.Exp(-(home + away))
		share := home / (home + away)
		switch outcome {
		case domain.OutcomeHome:
			p = (1 - none) * share
		case domain.OutcomeAway:
			p = (1 - none) * (1 - share)
		case domain.OutcomeNone:
			p = none
		default:
			return domain.ProbabilityEstimate{}, false
		}

	default:
		return domain.ProbabilityEstimate{}, false
	}

	return domain.ProbabilityEstimate{
		Probability: p,
		Inputs: map[string]float64{
			"home_rate":   home,
			"away_rate":   away,
			"home_rating": in.Home.StrengthRating,
			"away_rating": in.Away.StrengthRating,
			"strength":    res.strength,
			"line":        line,
		},
	}, true
}

// EloProbability es la fórmula logística estándar de diferencia de rating.
func EloProbability(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, -(ratingA-ratingB)/400))
}

// result es la distribución 1X2 derivada del strength share.
type result struct {
	strength         float64
	home, draw, away float64
}

// side devuelve (gana, pierde) desde el punto de vista del outcome home/away.
func (r result) side(outcome string) (win, lose float64, ok bool) {
	switch outcome {
	case domain.OutcomeHome:
		return r.home, r.away, true
	case domain.OutcomeAway:
		return r.away, r.home, true
	}
	return 0, 0, false
}

// matchResult mezcla el término de ritmo goleador, el de rating y el prior de campo.
// La mezcla acotada es directamente la probabilidad local; empate y visitante se
// reparten el resto.
//
//	home = w_s × h/(h+a) + w_r × elo(Rh, Ra) + w_p × prior   ∈ [floor, ceil]
//	draw = drawShare × (1 − |2·home − 1|)                     ≤ 1 − home
//	away = 1 − home − draw
func (m *Model) matchResult(in Inputs) result {
	scoringShare := 0.5
	if h, a := in.Home.ScoringRate, in.Away.ScoringRate; h > 0 && a > 0 {
		scoringShare = h / (h + a)
	}

	eloHome := 0.5
	if in.Home.StrengthRating > 0 && in.Away.StrengthRating > 0 {
		eloHome = EloProbability(in.Home.StrengthRating, in.Away.StrengthRating)
	}

	s := m.cfg.ScoringWeight*scoringShare + m.cfg.RatingWeight*eloHome + m.cfg.PriorWeight*m.cfg.HomePrior
	s = clamp(s, m.cfg.ResultFloor, m.cfg.ResultCeil)

	draw := math.Min(m.cfg.DrawShare*(1-math.Abs(2*s-1)), 1-s)
	return result{
		strength: s,
		home:     s,
		draw:     draw,
		away:     1 - s - draw,
	}
}

// rates devuelve los ritmos goleadores con fallback al valor por defecto.
func (m *Model) rates(in Inputs) (home, away float64) {
	home, away = in.Home.ScoringRate, in.Away.ScoringRate
	if home <= 0 {
		home = m.cfg.DefaultScoringRate
	}
	if away <= 0 {
		away = m.cfg.DefaultScoringRate
	}
	return home, away
}

// over devuelve P(goles > line), acotada a [1−cap, cap].
func (m *Model) over(total, line float64) float64 {
	denom := line + m.cfg.TotalsOffset
	if denom <= 0 {
		return m.cfg.TotalsCap
	}
	return clamp(total/denom, 1-m.cfg.TotalsCap, m.cfg.TotalsCap)
}

// handicap aplica la fora al lado dado.
// Línea 0 = draw no bet; negativa = ganar por más de |line|; positiva = no perder por más de line.
func (m *Model) handicap(win, lose, line float64) float64 {
	if line == 0 {
		return win / (win + lose)
	}
	steps := math.Max(math.Ceil(math.Abs(line))-1, 0)
	decay := math.Pow(m.cfg.HandicapDecay, steps)
	if line < 0 {
		return win * decay
	}
	return 1 - lose*decay
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// withDefaults rellena los campos no configurados.
func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&cfg.ScoringWeight, def.ScoringWeight)
	fill(&cfg.RatingWeight, def.RatingWeight)
	fill(&cfg.PriorWeight, def.PriorWeight)
	fill(&cfg.HomePrior, def.HomePrior)
	fill(&cfg.ResultFloor, def.ResultFloor)
	fill(&cfg.ResultCeil, def.ResultCeil)
	fill(&cfg.DrawShare, def.DrawShare)
	fill(&cfg.DefaultScoringRate, def.DefaultScoringRate)
	fill(&cfg.TotalsOffset, def.TotalsOffset)
	fill(&cfg.TotalsCap, def.TotalsCap)
	fill(&cfg.BTTSDivisor, def.BTTSDivisor)
	fill(&cfg.BTTSFloor, def.BTTSFloor)
	fill(&cfg.BTTSCap, def.BTTSCap)
	fill(&cfg.DoubleChanceCap, def.DoubleChanceCap)
	fill(&cfg.HandicapDecay, def.HandicapDecay)
	fill(&cfg.CleanSheetCap, def.CleanSheetCap)
	fill(&cfg.CornersBase, def.CornersBase)
	fill(&cfg.CornersPerGoal, def.CornersPerGoal)
	fill(&cfg.CornersScale, def.CornersScale)
	fill(&cfg.CardsBase, def.CardsBase)
	fill(&cfg.CardsCloseness, def.CardsCloseness)
	fill(&cfg.CardsScale, def.CardsScale)
	fill(&cfg.PropFloor, def.PropFloor)
	fill(&cfg.PropCeil, def.PropCeil)
	return cfg
}
