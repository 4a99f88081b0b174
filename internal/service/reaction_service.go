package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/observability"
	"github.com/noah-isme/crewhub-api/internal/repository"
)

// ReactionService maintains the reaction ledger and its cached per-target counts.
type ReactionService interface {
	Toggle(ctx context.Context, actor Actor, req dto.ReactionToggleRequest) (dto.ReactionSummary, error)
	Get(ctx context.Context, actor Actor, query dto.ReactionTargetQuery) (dto.ReactionSummary, error)
}

type reactionService struct {
	repo       repository.ReactionRepository
	comments   repository.CommentDirectory
	cache      *redis.Client
	cacheBase  string
	cacheTTL   time.Duration
	dispatcher Dispatcher
	validator  *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewReactionService constructs the reaction ledger. The Redis client is optional.
func NewReactionService(repo repository.ReactionRepository, comments repository.CommentDirectory, cache *redis.Client, cacheBase string, ttl time.Duration, dispatcher Dispatcher, validate *validator.Validate, logger zerolog.Logger) ReactionService {
	if cacheBase == "" {
		cacheBase = "crewhub"
	}
	return &reactionService{
		repo:       repo,
		comments:   comments,
		cache:      cache,
		cacheBase:  cacheBase,
		cacheTTL:   ttl,
		dispatcher: dispatcher,
		validator:  validate,
		logger:     logger.With().Str("component", "reaction_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/reaction"),
		now:        time.Now,
	}
}

func (s *reactionService) Toggle(ctx context.Context, actor Actor, req dto.ReactionToggleRequest) (dto.ReactionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReactionSummary{}, validationError(err)
	}

	kind := models.TargetKind(req.TargetKind)
	reaction := models.ReactionType(req.Type)

	spanCtx, span := s.tracer.Start(ctx, "reactions.toggle", trace.WithAttributes(
		attribute.Int64("reaction.user_id", int64(actor.ID)),
		attribute.Int64("reaction.target_id", int64(req.TargetID)),
		attribute.String("reaction.target_kind", req.TargetKind),
		attribute.String("reaction.type", req.Type),
	))
	defer span.End()

	result, err := s.repo.Toggle(spanCtx, actor.ID, req.TargetID, kind, reaction, s.now().UTC())
	if err != nil {
		span.RecordError(err)
		return dto.ReactionSummary{}, err
	}

	s.invalidateCounts(spanCtx, req.TargetID, kind)

	counts, err := s.repo.Counts(spanCtx, req.TargetID, kind)
	if err != nil {
		return dto.ReactionSummary{}, err
	}

	outcome := "added"
	switch {
	case result.Current == nil:
		outcome = "removed"
	case result.Previous != nil:
		outcome = "switched"
	}
	observability.ReactionTogglesTotal().WithLabelValues(string(kind), outcome).Inc()

	if kind == models.TargetComment && result.Current != nil {
		s.notifyCommentAuthor(spanCtx, actor, req.TargetID, *result.Current)
	}

	return buildReactionSummary(req.TargetID, kind, counts, result.Current), nil
}

func (s *reactionService) Get(ctx context.Context, actor Actor, query dto.ReactionTargetQuery) (dto.ReactionSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ReactionSummary{}, validationError(err)
	}
	kind := models.TargetKind(query.TargetKind)

	counts, ok := s.loadCounts(ctx, query.TargetID, kind)
	if !ok {
		version := s.countsVersion(ctx, query.TargetID, kind)
		var err error
		counts, err = s.repo.Counts(ctx, query.TargetID, kind)
		if err != nil {
			return dto.ReactionSummary{}, err
		}
		s.storeCounts(ctx, query.TargetID, kind, version, counts)
	}

	var current *models.ReactionType
	if actor.ID != 0 {
		existing, err := s.repo.FindByUser(ctx, actor.ID, query.TargetID, kind)
		if err != nil {
			return dto.ReactionSummary{}, err
		}
		if existing != nil {
			current = &existing.Type
		}
	}

	return buildReactionSummary(query.TargetID, kind, counts, current), nil
}

func (s *reactionService) notifyCommentAuthor(ctx context.Context, actor Actor, commentID uint, reaction models.ReactionType) {
	if s.comments == nil {
		return
	}
	authorID, found, err := s.comments.AuthorOf(ctx, commentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("comment_id", commentID).Msg("failed to resolve comment author")
		return
	}
	if !found {
		return
	}

	s.dispatcher.Dispatch(ctx, actor.ID, []uint{authorID}, Notice{
		Type:  models.NotificationCommentReaction,
		Title: "Someone reacted to your comment",
		Metadata: map[string]interface{}{
			"comment_id": commentID,
			"reaction":   string(reaction),
			"user_id":    actor.ID,
		},
	})
}

func (s *reactionService) cacheKey(targetID uint, kind models.TargetKind) string {
	return fmt.Sprintf("%s:reactions:%s:%d", s.cacheBase, kind, targetID)
}

func (s *reactionService) loadCounts(ctx context.Context, targetID uint, kind models.TargetKind) (map[models.ReactionType]int64, bool) {
	if s.cache == nil {
		return nil, false
	}

	values, err := s.cache.HGetAll(ctx, s.cacheKey(targetID, kind)).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read reaction counts cache")
		return nil, false
	}
	if len(values) == 0 {
		return nil, false
	}

	counts := make(map[models.ReactionType]int64, len(models.ReactionTypes))
	for _, reactionType := range models.ReactionTypes {
		count, err := strconv.ParseInt(values[string(reactionType)], 10, 64)
		if err != nil {
			return nil, false
		}
		counts[reactionType] = count
	}
	s.logger.Debug().Uint("target_id", targetID).Msg("reaction counts cache hit")
	return counts, true
}

// storeCountsScript writes a rebuilt hash only while the target's version still matches the
// one read before the store was queried. A toggle that commits in between bumps the version,
// so a snapshot taken before it can never overwrite the invalidation.
var storeCountsScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
for i = 3, #ARGV, 2 do
	redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then redis.call('PEXPIRE', KEYS[1], ttl) end
return 1
`)

func (s *reactionService) versionKey(targetID uint, kind models.TargetKind) string {
	return s.cacheKey(targetID, kind) + ":version"
}

func (s *reactionService) countsVersion(ctx context.Context, targetID uint, kind models.TargetKind) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.Get(ctx, s.versionKey(targetID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read reaction counts version")
		return ""
	}
	return version
}

// invalidateCounts runs after the toggle has committed.
func (s *reactionService) invalidateCounts(ctx context.Context, targetID uint, kind models.TargetKind) {
	if s.cache == nil {
		return
	}

	key := s.cacheKey(targetID, kind)
	versionKey := s.versionKey(targetID, kind)
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		if s.cacheTTL > 0 {
			pipe.Expire(ctx, versionKey, s.cacheTTL)
		}
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate reaction counts cache")
	}
}

func (s *reactionService) storeCounts(ctx context.Context, targetID uint, kind models.TargetKind, version string, counts map[models.ReactionType]int64) {
	if s.cache == nil || version == "" {
		return
	}

	key := s.cacheKey(targetID, kind)
	args := make([]interface{}, 0, 2+2*len(models.ReactionTypes))
	args = append(args, version, s.cacheTTL.Milliseconds())
	for _, reactionType := range models.ReactionTypes {
		args = append(args, string(reactionType), counts[reactionType])
	}

	stored, err := storeCountsScript.Run(ctx, s.cache, []string{key, s.versionKey(targetID, kind)}, args...).Int()
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store reaction counts cache")
		return
	}
	if stored == 0 {
		s.logger.Debug().Str("key", key).Msg("reaction counts changed during rebuild; cache left empty")
	}
}

func buildReactionSummary(targetID uint, kind models.TargetKind, counts map[models.ReactionType]int64, current *models.ReactionType) dto.ReactionSummary {
	out := make(map[string]int64, len(models.ReactionTypes))
	for _, reactionType := range models.ReactionTypes {
		out[string(reactionType)] = counts[reactionType]
	}

	summary := dto.ReactionSummary{TargetID: targetID, TargetKind: string(kind), Counts: out}
	if current != nil {
		value := string(*current)
		summary.UserReaction = &value
	}
	return summary
}
