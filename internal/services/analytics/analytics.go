// Package analytics собирает агрегированные показатели для дашборда:
// сводку, помесячную выручку, распределение по сегментам POS и по странам.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/easytomanagexyz/admin-backend/internal/cache"
	"github.com/easytomanagexyz/admin-backend/internal/lib/month"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
	"github.com/easytomanagexyz/admin-backend/internal/models"
)

// Параметры графика выручки.
const (
	DefaultMonths = 8
	MaxMonths     = 24
)

// Repository описывает агрегирующие запросы к хранилищу.
type Repository interface {
	CountTenants(ctx context.Context) (int, error)
	CountTenantsByPlan(ctx context.Context, plan string) (int, error)
	CountSubscriptionsByStatus(ctx context.Context, status string) (int, error)
	SumTransactions(ctx context.Context) (int64, error)
	SumTransactionsSince(ctx context.Context, from time.Time) (int64, error)
	SumTransactionsBetween(ctx context.Context, from, to time.Time) (int64, error)
	GroupTenantsByCountry(ctx context.Context) ([]models.CountryCount, error)
	SumTransactionsByCountry(ctx context.Context, country string) (int64, error)
}

// Cache описывает кэш ответов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type category struct {
	plan  string
	name  string
	color string
}

// categories — сегменты POS, которые показывает дашборд.
var categories = []category{
	{plan: "restaurant", name: "Restaurant POS", color: "#f59e0b"},
	{plan: "artist", name: "Artist/Freelancer POS", color: "#8b5cf6"},
	{plan: "business", name: "Small Business POS", color: "#6b7280"},
}

// Service вычисляет аналитику.
type Service struct {
	log   *slog.Logger
	repo  Repository
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewService создаёт сервис аналитики. ttl задаёт время жизни закэшированных ответов.
func NewService(log *slog.Logger, repo Repository, c Cache, ttl time.Duration) *Service {
	return &Service{log: log, repo: repo, cache: c, ttl: ttl, now: time.Now}
}

// WithClock подменяет источник текущего времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeMonths приводит количество месяцев к диапазону 1..MaxMonths; 0 означает значение по умолчанию.
func NormalizeMonths(n int) int {
	switch {
	case n == 0:
		return DefaultMonths
	case n < 1:
		return 1
	case n > MaxMonths:
		return MaxMonths
	}
	return n
}

func toCurrency(cents int64) float64 {
	return float64(cents) / 100
}

// cached возвращает значение из кэша или вычисляет и сохраняет его.
func cached[T any](ctx context.Context, s *Service, key string, compute func(context.Context) (T, error)) (T, error) {
	var v T
	found, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.log.Warn("analytics cache read failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return v, nil
	}

	v, err = compute(ctx)
	if err != nil {
		return v, err
	}
	if err = s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn("analytics cache write failed", slog.String("key", key), sl.Err(err))
	}
	return v, nil
}

// Stats возвращает количество тенантов, активных подписок и выручку:
// общую и за последний месяц.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	return cached(ctx, s, cache.Key(cache.PrefixAnalytics, "stats"), s.stats)
}

func (s *Service) stats(ctx context.Context) (models.Stats, error) {
	const op = "analytics.Stats"

	total, err := s.repo.CountTenants(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	active, err := s.repo.CountSubscriptionsByStatus(ctx, models.StatusActive)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	revenue, err := s.repo.SumTransactions(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	monthly, err := s.repo.SumTransactionsSince(ctx, s.now().AddDate(0, -1, 0))
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Stats{
		TotalUsers:     total,
		ActiveUsers:    active,
		TotalRevenue:   toCurrency(revenue),
		MonthlyRevenue: toCurrency(monthly),
	}, nil
}

// RevenueTrend возвращает выручку за последние months календарных месяцев,
// включая текущий, от самого старого к текущему.
func (s *Service) RevenueTrend(ctx context.Context, months int) ([]models.RevenuePoint, error) {
	months = NormalizeMonths(months)
	key := cache.Key(cache.PrefixAnalytics, "revenue", strconv.Itoa(months))
	return cached(ctx, s, key, func(ctx context.Context) ([]models.RevenuePoint, error) {
		return s.revenueTrend(ctx, months)
	})
}

func (s *Service) revenueTrend(ctx context.Context, months int) ([]models.RevenuePoint, error) {
	const op = "analytics.RevenueTrend"

	windows := month.Windows(s.now(), months)
	points := make([]models.RevenuePoint, 0, len(windows))
	for _, w := range windows {
		sum, err := s.repo.SumTransactionsBetween(ctx, w[0], w[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		points = append(points, models.RevenuePoint{Month: month.Label(w[0]), Total: toCurrency(sum)})
	}
	return points, nil
}

// PosDistribution возвращает количество тенантов в сегментах POS дашборда.
func (s *Service) PosDistribution(ctx context.Context) ([]models.DistributionSlice, error) {
	return cached(ctx, s, cache.Key(cache.PrefixAnalytics, "distribution"), s.posDistribution)
}

func (s *Service) posDistribution(ctx context.Context) ([]models.DistributionSlice, error) {
	const op = "analytics.PosDistribution"

	res := make([]models.DistributionSlice, 0, len(categories))
	for _, c := range categories {
		n, err := s.repo.CountTenantsByPlan(ctx, c.plan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, models.DistributionSlice{Name: c.name, Value: n, Color: c.color})
	}
	return res, nil
}

// LocationBreakdown группирует тенантов по странам и считает выручку каждой страны.
func (s *Service) LocationBreakdown(ctx context.Context) ([]models.LocationStat, error) {
	return cached(ctx, s, cache.Key(cache.PrefixAnalytics, "locations"), s.locationBreakdown)
}

func (s *Service) locationBreakdown(ctx context.Context) ([]models.LocationStat, error) {
	const op = "analytics.LocationBreakdown"

	groups, err := s.repo.GroupTenantsByCountry(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := make([]models.LocationStat, 0, len(groups))
	for _, g := range groups {
		sum, err := s.repo.SumTransactionsByCountry(ctx, g.Country)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, models.LocationStat{Country: g.Country, Users: g.Users, Revenue: toCurrency(sum)})
	}
	return res, nil
}

// Overview собирает все показатели дашборда одним ответом.
func (s *Service) Overview(ctx context.Context, months int) (*models.Overview, error) {
	const op = "analytics.Overview"

	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	trend, err := s.RevenueTrend(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dist, err := s.PosDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	locations, err := s.LocationBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Overview{
		Stats: stats,
		Charts: models.Charts{
			RevenueTrends:    trend,
			UserDistribution: dist,
			LocationData:     locations,
		},
	}, nil
}
