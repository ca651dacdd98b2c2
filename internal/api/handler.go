package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"newsdigest/internal/domain"
)

type DigestRunner interface {
	CreateDigest(ctx context.Context) (*domain.Digest, *domain.RunStats, error)
	BuildSections(ctx context.Context) ([]domain.Section, error)
}

type DigestReader interface {
	List(ctx context.Context, limit, offset uint64) ([]domain.Digest, error)
}

type ArticleReader interface {
	List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// SeenPinger is implemented by seen stores living outside the main database.
type SeenPinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	runner   DigestRunner
	digests  DigestReader
	articles ArticleReader
	db       Pinger
	seen     SeenPinger
	logger   *slog.Logger
}

// NewHandler builds the API handlers. seen may be nil when seen markers are
// kept in the main database or in memory.
func NewHandler(
	runner DigestRunner,
	digests DigestReader,
	articles ArticleReader,
	db Pinger,
	seen SeenPinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		runner:   runner,
		digests:  digests,
		articles: articles,
		db:       db,
		seen:     seen,
		logger:   logger.With("component", "api"),
	}
}

// ListDigests returns stored digests newest first.
func (h *Handler) ListDigests(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	digests, err := h.digests.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.internalError(c, "list digests", err)
		return
	}

	out := make([]DigestResponse, 0, len(digests))
	for _, d := range digests {
		out = append(out, newDigestResponse(d))
	}
	c.JSON(http.StatusOK, out)
}

// ListArticles returns stored articles newest first, optionally by category.
func (h *Handler) ListArticles(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	filter := domain.ArticleFilter{Limit: limit, Offset: offset}
	if raw := c.Query("category"); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		filter.Category = category
	}

	articles, err := h.articles.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "list articles", err)
		return
	}
	c.JSON(http.StatusOK, newArticleResponses(articles))
}

// FreshDigest runs the full pipeline synchronously and returns the new digest.
func (h *Handler) FreshDigest(c *gin.Context) {
	digest, _, err := h.runner.CreateDigest(c.Request.Context())
	if err != nil {
		h.internalError(c, "create digest", err)
		return
	}
	c.JSON(http.StatusCreated, newDigestResponse(*digest))
}

// DigestSections previews today's paragraphs without storing anything.
func (h *Handler) DigestSections(c *gin.Context) {
	sections, err := h.runner.BuildSections(c.Request.Context())
	if err != nil {
		h.internalError(c, "build sections", err)
		return
	}
	c.JSON(http.StatusOK, newSectionResponses(sections))
}

func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	response := HealthResponse{Status: "ok", Database: "connected"}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", "error", err)
		status = http.StatusServiceUnavailable
		response.Database = "disconnected"
	}

	if h.seen != nil {
		response.SeenStore = "connected"
		if err := h.seen.Ping(ctx); err != nil {
			h.logger.Warn("seen store ping failed", "error", err)
			status = http.StatusServiceUnavailable
			response.SeenStore = "disconnected"
		}
	}

	if status != http.StatusOK {
		response.Status = "unavailable"
	}
	c.JSON(status, response)
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		h.logger.Warn(op+" canceled", "error", err)
	} else {
		h.logger.Error(op+" failed", "error", err)
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("%s: %v", op, err)})
}

func pagination(c *gin.Context) (uint64, uint64, error) {
	limit, err := queryUint(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryUint(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryUint(c *gin.Context, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
