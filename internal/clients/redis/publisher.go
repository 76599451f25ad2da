package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	FieldSegment   = "segment"
	FieldTopGenres = "top_genres"

	defaultKeyPrefix = "mli"
)

// Publisher writes per-user results into Redis hashes keyed by UserKey.
type Publisher interface {
	PublishSegments(ctx context.Context, assignments []types.ClusterAssignment) error
	PublishTopGenres(ctx context.Context, rankings []types.GenreRanking) error
	Close() error
}

type Config struct {
	Addr      string
	KeyPrefix string
	TTL       time.Duration
}

type publisher struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewPublisher(log *logger.Logger, cfg Config) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newPublisher(log, rdb, cfg), nil
}

func newPublisher(log *logger.Logger, rdb goredis.UniversalClient, cfg Config) *publisher {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &publisher{
		log:    log.With("service", "RedisResultPublisher"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    cfg.TTL,
	}
}

// UserKey is the hash holding every published field for one user.
func UserKey(prefix string, userID int) string {
	return prefix + ":user:" + strconv.Itoa(userID)
}

// TopGenresByUser joins each user's genres in rank order with commas.
func TopGenresByUser(rankings []types.GenreRanking) map[int]string {
	byUser := map[int][]types.GenreRanking{}
	for _, r := range rankings {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	out := make(map[int]string, len(byUser))
	for uid, rows := range byUser {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
		names := make([]string, len(rows))
		for i, r := range rows {
			names[i] = r.Genre
		}
		out[uid] = strings.Join(names, ",")
	}
	return out
}

func (p *publisher) PublishSegments(ctx context.Context, assignments []types.ClusterAssignment) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	fields := make(map[int]string, len(assignments))
	for _, a := range assignments {
		fields[a.UserID] = strconv.Itoa(a.Cluster)
	}
	if err := p.publishField(ctx, FieldSegment, fields); err != nil {
		return err
	}
	p.log.Info("Published segments", "users", len(fields))
	return nil
}

func (p *publisher) PublishTopGenres(ctx context.Context, rankings []types.GenreRanking) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	fields := TopGenresByUser(rankings)
	if err := p.publishField(ctx, FieldTopGenres, fields); err != nil {
		return err
	}
	p.log.Info("Published top genres", "users", len(fields))
	return nil
}

func (p *publisher) publishField(ctx context.Context, field string, values map[int]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for uid, v := range values {
			key := UserKey(p.prefix, uid)
			pipe.HSet(ctx, key, field, v)
			if p.ttl > 0 {
				pipe.Expire(ctx, key, p.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", field, err)
	}
	return nil
}

func (p *publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
