package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/valuebot/internal/domain"
)

// Storage persiste el resultado de cada pasada.
type Storage interface {
	// SaveRanking persiste la pasada y sus candidatos.
	SaveRanking(ctx context.Context, ranking domain.Ranking) error

	// GetHistory devuelve los candidatos registrados en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.Candidate, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// FavoriteStore guarda los candidatos marcados por el usuario, indexados por DedupKey.
type FavoriteStore interface {
	AddFavorite(ctx context.Context, c domain.Candidate) error
	RemoveFavorite(ctx context.Context, key string) error
	ListFavorites(ctx context.Context) ([]domain.Favorite, error)
}
