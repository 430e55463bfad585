package ports

import (
	"context"
	"time"

	"github.com/larriantoniy/dateregbot/internal/domain"
)

// PostScraper ищет самый ранний публичный пост на t.me
type PostScraper interface {
	Earliest(ctx context.Context, username string) (time.Time, bool)
}

// ExifReader достаёт дату съёмки из изображения
type ExifReader interface {
	DateFromBytes(data []byte) (time.Time, bool)
}

// AnchorEstimator оценка даты по таблице якорей
type AnchorEstimator interface {
	Estimate(id int64) (time.Time, string, error)
}

// ReportCache кэш отчётов и антиспам по пользователям бота
type ReportCache interface {
	GetReport(ctx context.Context, ent domain.Entity) (*domain.Report, error)
	SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error
	// Acquire возвращает false, если пользователь уже делал запрос в течение ttl
	Acquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error)
}
