package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"newsdigest/internal/domain"
	"newsdigest/internal/seen"
	"newsdigest/internal/service/mocks"
	"newsdigest/internal/summarizer"
)

const generatedSuffix = "<br><br><i>Digest generated at 2026-10-18 09:30:00</i>"

type DigestServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	fetcher    *mocks.MockFetcher
	summarizer *mocks.MockSummarizer
	seen       *mocks.MockSeenCache
	articles   *mocks.MockArticleStore
	digests    *mocks.MockDigestStore
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher
	limiter    *mocks.MockLimiter

	service *DigestService
	now     time.Time
	logger  *slog.Logger
}

func (s *DigestServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()

	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.summarizer = mocks.NewMockSummarizer(s.ctrl)
	s.seen = mocks.NewMockSeenCache(s.ctrl)
	s.articles = mocks.NewMockArticleStore(s.ctrl)
	s.digests = mocks.NewMockDigestStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.limiter = mocks.NewMockLimiter(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.now = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	s.service = NewDigestService(
		s.fetcher,
		s.summarizer,
		s.seen,
		s.articles,
		s.digests,
		s.txManager,
		s.publisher,
		s.limiter,
		s.logger,
		time.UTC,
	)
	s.service.now = func() time.Time { return s.now }
}

func (s *DigestServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestDigestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DigestServiceTestSuite))
}

func (s *DigestServiceTestSuite) today() (time.Time, time.Time) {
	from := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}

func (s *DigestServiceTestSuite) expectFetch(byCategory map[domain.Category][]domain.RawArticle) {
	calls := make([]any, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		calls = append(calls, s.fetcher.EXPECT().Fetch(gomock.Any(), c).Return(byCategory[c], nil))
	}
	gomock.InOrder(calls...)
}

func (s *DigestServiceTestSuite) allowLimiter() {
	s.limiter.EXPECT().Wait(gomock.Any()).Return(nil).AnyTimes()
}

func (s *DigestServiceTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

// expectSave records the created digest and returns it from Get with the
// given linked articles.
func (s *DigestServiceTestSuite) expectSave(id int64, linked []domain.Article) *domain.Digest {
	from, to := s.today()
	created := &domain.Digest{}

	s.expectTransaction()
	s.digests.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *domain.Digest) (int64, error) {
			*created = *d
			created.ID = id
			return id, nil
		},
	)
	s.digests.EXPECT().AttachArticlesByDate(gomock.Any(), id, from, to).Return(int64(len(linked)), nil)
	s.digests.EXPECT().Get(gomock.Any(), id).DoAndReturn(
		func(_ context.Context, _ int64) (*domain.Digest, error) {
			out := *created
			out.Articles = linked
			return &out, nil
		},
	)
	return created
}

func (s *DigestServiceTestSuite) expectArticleCreate(stored *[]domain.Article) {
	s.articles.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *domain.Article) (int64, error) {
			a.ID = int64(len(*stored) + 1)
			*stored = append(*stored, *a)
			return a.ID, nil
		},
	).AnyTimes()
}

func techArticle() domain.RawArticle {
	return domain.RawArticle{
		Title:       "AI",
		Description: "A lab announced a model.",
		Content:     "Researchers announced a breakthrough in AI.",
		Link:        "https://x/1",
		SourceName:  "Wire",
	}
}

func (s *DigestServiceTestSuite) TestCreateDigest_SingleTechArticle() {
	raw := techArticle()
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("AI breakthrough announced."))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/1").Return(nil)
	s.expectArticleCreate(&stored)
	created := s.expectSave(10, []domain.Article{{ID: 1, Title: "AI"}})
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *domain.Digest) error {
			s.Equal(int64(10), d.ID)
			s.Len(d.Articles, 1)
			return nil
		},
	)

	digest, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(int64(10), digest.ID)
	s.Equal(
		`<b>Tech News:</b> <a href="https://x/1" target="_blank">AI breakthrough announced.</a>`+generatedSuffix,
		created.Summary,
	)
	s.Equal(created.Summary, digest.Summary)

	from, _ := s.today()
	s.True(created.Date.Equal(from))

	s.Require().Len(stored, 1)
	s.Equal("AI", stored[0].Title)
	s.Equal("https://x/1", stored[0].URL)
	s.Equal(domain.CategoryTech, stored[0].Category)
	s.Equal("Wire", stored[0].Source)
	s.Equal("Researchers announced a breakthrough in AI.", stored[0].Content)
	s.True(stored[0].PublishedAt.Equal(s.now))

	s.NotEmpty(stats.RunID)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.Summarized)
	s.Equal(1, stats.Created)
	s.False(stats.Fallback)
}

func (s *DigestServiceTestSuite) TestCreateDigest_SecondRunSkipsSeenAndFallsBack() {
	clock := s.now
	s.service.seen = seen.NewCache(seen.NewMemoryStore(func() time.Time { return clock }), seen.DefaultTTL)

	raw := techArticle()
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("AI breakthrough announced.")).Times(1)
	s.expectArticleCreate(&stored)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s.expectSave(1, nil)
	_, first, err := s.service.CreateDigest(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, first.Created)

	from, to := s.today()
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return(stored, nil)
	second := s.expectSave(2, stored)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.SkippedSeen)
	s.Equal(0, stats.Created)
	s.True(stats.Fallback)
	s.Len(stored, 1)
	s.Equal(
		`<b>Tech News:</b> <a href="https://x/1" target="_blank">AI</a>`+generatedSuffix,
		second.Summary,
	)
}

func (s *DigestServiceTestSuite) TestCreateDigest_SeenAgainAfterWindow() {
	clock := s.now
	s.service.seen = seen.NewCache(seen.NewMemoryStore(func() time.Time { return clock }), seen.DefaultTTL)

	raw := techArticle()
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("AI breakthrough announced.")).Times(2)
	s.expectArticleCreate(&stored)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s.expectSave(1, nil)
	_, _, err := s.service.CreateDigest(s.ctx)
	s.Require().NoError(err)

	clock = clock.Add(24*time.Hour + time.Second)

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.digests.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(2), nil)
	s.digests.EXPECT().AttachArticlesByDate(gomock.Any(), int64(2), gomock.Any(), gomock.Any()).Return(int64(1), nil)
	s.digests.EXPECT().Get(gomock.Any(), int64(2)).Return(&domain.Digest{ID: 2}, nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(0, stats.SkippedSeen)
	s.Equal(1, stats.Created)
	s.Len(stored, 2)
}

func (s *DigestServiceTestSuite) TestCreateDigest_SummarizerFailedSkipsArticle() {
	raw := techArticle()
	from, to := s.today()

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.Failed(errors.New("summarizer unavailable")))
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return([]domain.Article{}, nil)
	created := s.expectSave(3, []domain.Article{})
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Created)
	s.True(stats.Fallback)
	s.Equal("No summary available."+generatedSuffix, created.Summary)
}

func (s *DigestServiceTestSuite) TestCreateDigest_DegradedUsesTitle() {
	raw := techArticle()
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.Degraded("AI", errors.New("llm error 500")))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/1").Return(nil)
	s.expectArticleCreate(&stored)
	created := s.expectSave(4, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Degraded)
	s.Equal(1, stats.Created)
	s.Equal(`<b>Tech News:</b> <a href="https://x/1" target="_blank">AI</a>`+generatedSuffix, created.Summary)
}

func (s *DigestServiceTestSuite) TestCreateDigest_DegradedWithoutTitle() {
	raw := domain.RawArticle{Description: "Only a snippet.", Link: "https://x/2"}
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategorySports: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/2").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.Degraded("", errors.New("timeout")))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/2").Return(nil)
	s.expectArticleCreate(&stored)
	created := s.expectSave(5, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(`<b>Sports News:</b> <a href="https://x/2" target="_blank">No summary available.</a>`+generatedSuffix, created.Summary)
	s.Require().Len(stored, 1)
	s.Equal("Only a snippet.", stored[0].Content)
}

func (s *DigestServiceTestSuite) TestCreateDigest_URLOnlyArticleStoredOnce() {
	clock := s.now
	s.service.seen = seen.NewCache(seen.NewMemoryStore(func() time.Time { return clock }), seen.DefaultTTL)

	raw := domain.RawArticle{Link: "https://x/only-url"}
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryIndian: {raw}})
	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryIndian: {raw}})
	s.allowLimiter()
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).
		Return(summarizer.Degraded("", errors.New("llm error 502"))).Times(1)
	s.expectArticleCreate(&stored)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first := s.expectSave(1, nil)
	_, stats, err := s.service.CreateDigest(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Degraded)
	s.Equal(1, stats.Created)
	s.Equal(`<b>Indian News:</b> <a href="https://x/only-url" target="_blank">No summary available.</a>`+generatedSuffix, first.Summary)

	from, to := s.today()
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return(stored, nil)
	s.expectSave(2, stored)

	_, stats, err = s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.SkippedSeen)
	s.Require().Len(stored, 1)
	s.Equal("https://x/only-url", stored[0].URL)
	s.Empty(stored[0].Title)
}

func (s *DigestServiceTestSuite) TestCreateDigest_LongSourceNameTruncated() {
	raw := techArticle()
	raw.SourceName = strings.Repeat("w", 150)
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("AI breakthrough announced."))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/1").Return(nil)
	s.expectArticleCreate(&stored)
	s.expectSave(16, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Len(stored[0].Source, domain.MaxSourceLength)
}

func (s *DigestServiceTestSuite) TestCreateDigest_CategoryOrderAndSeparators() {
	sports1 := domain.RawArticle{Title: "Match", Link: "https://s/1"}
	sports2 := domain.RawArticle{Title: "Final", URL: "https://s/2"}
	intl := domain.RawArticle{Title: "Summit", Link: "https://i/1"}
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{
		domain.CategorySports:        {sports1, sports2},
		domain.CategoryInternational: {intl},
	})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), gomock.Any()).Return(false, nil).Times(3)
	s.seen.EXPECT().MarkSeen(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.summarizer.EXPECT().Summarize(gomock.Any(), intl).Return(summarizer.OK("Leaders met."))
	s.summarizer.EXPECT().Summarize(gomock.Any(), sports1).Return(summarizer.OK("Team won."))
	s.summarizer.EXPECT().Summarize(gomock.Any(), sports2).Return(summarizer.OK("Cup lifted."))
	s.expectArticleCreate(&stored)
	created := s.expectSave(6, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(
		`<b>International News:</b> <a href="https://i/1" target="_blank">Leaders met.</a>`+
			`<br><br>`+
			`<b>Sports News:</b> <a href="https://s/1" target="_blank">Team won.</a> <a href="https://s/2" target="_blank">Cup lifted.</a>`+
			generatedSuffix,
		created.Summary,
	)
	s.Require().Len(stored, 3)
	s.Equal("https://s/2", stored[2].URL)
}

func (s *DigestServiceTestSuite) TestCreateDigest_FallbackGroupsByCategory() {
	from, to := s.today()
	existing := []domain.Article{
		{ID: 1, Title: "Chip launch", URL: "https://t/1", Category: domain.CategoryTech},
		{ID: 2, Title: "Derby", URL: "https://s/1", Category: domain.CategorySports},
		{ID: 3, Title: "Rates", URL: "https://t/2", Category: domain.CategoryTech},
	}

	s.expectFetch(nil)
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return(existing, nil)
	created := s.expectSave(7, existing)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	digest, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.True(stats.Fallback)
	s.Equal(
		`<b>Sports News:</b> <a href="https://s/1" target="_blank">Derby</a>`+
			`<br><br>`+
			`<b>Tech News:</b> <a href="https://t/1" target="_blank">Chip launch</a> <a href="https://t/2" target="_blank">Rates</a>`+
			generatedSuffix,
		created.Summary,
	)
	s.Len(digest.Articles, 3)
}

func (s *DigestServiceTestSuite) TestCreateDigest_FetchErrorIsolatedToCategory() {
	raw := techArticle()
	var stored []domain.Article

	gomock.InOrder(
		s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryInternational).Return(nil, errors.New("unexpected status: 500")),
		s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryIndian).Return(nil, nil),
		s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategorySports).Return(nil, nil),
		s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryTech).Return([]domain.RawArticle{raw}, nil),
	)
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("AI breakthrough announced."))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/1").Return(nil)
	s.expectArticleCreate(&stored)
	created := s.expectSave(8, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.FetchErrors)
	s.True(strings.HasPrefix(created.Summary, "<b>Tech News:</b>"))
}

func (s *DigestServiceTestSuite) TestCreateDigest_CanceledFetchAbortsRun() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryInternational).Return(nil, context.Canceled)

	digest, _, err := s.service.CreateDigest(ctx)

	s.Nil(digest)
	s.ErrorIs(err, context.Canceled)
}

func (s *DigestServiceTestSuite) TestCreateDigest_SkipsArticlesWithoutURL() {
	s.expectFetch(map[domain.Category][]domain.RawArticle{
		domain.CategoryIndian: {{Title: "No link"}},
	})
	from, to := s.today()
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return(nil, nil)
	created := s.expectSave(9, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.SkippedNoURL)
	s.Equal("No summary available."+generatedSuffix, created.Summary)
}

func (s *DigestServiceTestSuite) TestCreateDigest_SeenCheckErrorAbortsRun() {
	s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryInternational).Return([]domain.RawArticle{techArticle()}, nil)
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, errors.New("connection refused"))

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Error(err)
	s.Contains(err.Error(), "check seen")
}

func (s *DigestServiceTestSuite) TestCreateDigest_LimiterBeforeEverySummarize() {
	a := domain.RawArticle{Title: "A", Link: "https://t/a"}
	b := domain.RawArticle{Title: "B", Link: "https://t/b"}
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {a, b}})
	s.seen.EXPECT().IsSeen(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	s.seen.EXPECT().MarkSeen(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		s.limiter.EXPECT().Wait(gomock.Any()).Return(nil),
		s.summarizer.EXPECT().Summarize(gomock.Any(), a).Return(summarizer.OK("a")),
		s.limiter.EXPECT().Wait(gomock.Any()).Return(nil),
		s.summarizer.EXPECT().Summarize(gomock.Any(), b).Return(summarizer.OK("b")),
	)
	s.expectArticleCreate(&stored)
	s.expectSave(11, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, stats, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Summarized)
}

func (s *DigestServiceTestSuite) TestCreateDigest_LimiterErrorAbortsRun() {
	s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryInternational).Return([]domain.RawArticle{techArticle()}, nil)
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.limiter.EXPECT().Wait(gomock.Any()).Return(context.DeadlineExceeded)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *DigestServiceTestSuite) TestCreateDigest_PersistsTruncatedTitle() {
	raw := domain.RawArticle{Title: strings.Repeat("t", 350), Link: "https://x/long"}
	var stored []domain.Article

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/long").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("Long one."))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/long").Return(nil)
	s.expectArticleCreate(&stored)
	s.expectSave(12, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Len(stored[0].Title, domain.MaxTitleLength)
}

func (s *DigestServiceTestSuite) TestCreateDigest_ArticleStoreErrorAbortsRun() {
	raw := techArticle()

	s.fetcher.EXPECT().Fetch(gomock.Any(), domain.CategoryInternational).Return([]domain.RawArticle{raw}, nil)
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.OK("x"))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://x/1").Return(nil)
	s.articles.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Error(err)
	s.Contains(err.Error(), "create article")
}

func (s *DigestServiceTestSuite) TestCreateDigest_TransactionErrorReturned() {
	s.expectFetch(nil)
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	s.expectTransaction()
	s.digests.EXPECT().Create(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("insert failed"))

	digest, _, err := s.service.CreateDigest(s.ctx)

	s.Nil(digest)
	s.Error(err)
	s.Contains(err.Error(), "create digest")
}

func (s *DigestServiceTestSuite) TestCreateDigest_PublishErrorNotReturned() {
	s.expectFetch(nil)
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	s.expectSave(13, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(errors.New("channel closed"))

	digest, _, err := s.service.CreateDigest(s.ctx)

	s.NoError(err)
	s.Equal(int64(13), digest.ID)
}

func (s *DigestServiceTestSuite) TestCreateDigest_WithoutPublisher() {
	s.service.publisher = nil

	s.expectFetch(nil)
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	s.expectSave(14, nil)

	digest, _, err := s.service.CreateDigest(s.ctx)

	s.NoError(err)
	s.Equal(int64(14), digest.ID)
}

func (s *DigestServiceTestSuite) TestCreateDigest_UsesConfiguredTimezone() {
	loc := time.FixedZone("IST", 5*3600+30*60)
	s.service.location = loc
	s.now = time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)

	from := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	to := from.Add(24 * time.Hour)
	var created *domain.Digest

	s.expectFetch(nil)
	s.articles.EXPECT().ListPublishedBetween(gomock.Any(), from, to).Return(nil, nil)
	s.expectTransaction()
	s.digests.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d *domain.Digest) (int64, error) {
			created = d
			return 15, nil
		},
	)
	s.digests.EXPECT().AttachArticlesByDate(gomock.Any(), int64(15), from, to).Return(int64(0), nil)
	s.digests.EXPECT().Get(gomock.Any(), int64(15)).Return(&domain.Digest{ID: 15, Date: from}, nil)
	s.publisher.EXPECT().PublishDigest(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := s.service.CreateDigest(s.ctx)

	s.Require().NoError(err)
	s.Equal("2026-10-19", created.Date.Format(time.DateOnly))
	s.True(strings.HasSuffix(created.Summary, "<i>Digest generated at 2026-10-19 01:30:00</i>"))
}

func (s *DigestServiceTestSuite) TestBuildSections() {
	intl := domain.RawArticle{Title: "Summit", Link: "https://i/1"}
	tech1 := domain.RawArticle{Title: "Chip", Link: "https://t/1"}
	tech2 := domain.RawArticle{Title: "Seen", Link: "https://t/2"}

	s.expectFetch(map[domain.Category][]domain.RawArticle{
		domain.CategoryInternational: {intl},
		domain.CategoryTech:          {tech1, tech2},
	})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://i/1").Return(false, nil)
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://t/1").Return(false, nil)
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://t/2").Return(true, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), intl).Return(summarizer.OK("Leaders met."))
	s.summarizer.EXPECT().Summarize(gomock.Any(), tech1).Return(summarizer.OK("New chip."))
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://i/1").Return(nil)
	s.seen.EXPECT().MarkSeen(gomock.Any(), "https://t/1").Return(nil)

	sections, err := s.service.BuildSections(s.ctx)

	s.Require().NoError(err)
	s.Equal([]domain.Section{
		{Category: "International", Paragraph: `<a href="https://i/1" target="_blank">Leaders met.</a>`},
		{Category: "Tech", Paragraph: `<a href="https://t/1" target="_blank">New chip.</a>`},
	}, sections)
}

func (s *DigestServiceTestSuite) TestBuildSections_Empty() {
	s.expectFetch(nil)

	sections, err := s.service.BuildSections(s.ctx)

	s.Require().NoError(err)
	s.NotNil(sections)
	s.Empty(sections)
}

func (s *DigestServiceTestSuite) TestBuildSections_FailedArticleNotMarked() {
	raw := techArticle()

	s.expectFetch(map[domain.Category][]domain.RawArticle{domain.CategoryTech: {raw}})
	s.allowLimiter()
	s.seen.EXPECT().IsSeen(gomock.Any(), "https://x/1").Return(false, nil)
	s.summarizer.EXPECT().Summarize(gomock.Any(), raw).Return(summarizer.Failed(errors.New("boom")))

	sections, err := s.service.BuildSections(s.ctx)

	s.Require().NoError(err)
	s.Empty(sections)
}

func TestAnchorEscapesText(t *testing.T) {
	got := anchor(`https://x/?a=1&b="2"`, "Tom & Jerry <live>")

	want := `<a href="https://x/?a=1&amp;b=&#34;2&#34;" target="_blank">Tom &amp; Jerry &lt;live&gt;</a>`
	if got != want {
		t.Fatalf("anchor() = %q, want %q", got, want)
	}
}
