package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortURL/internal/app/model"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockShortener struct {
	mock.Mock
}

func (s *MockShortener) CreateShortURL(ctx context.Context, longURL, scheme, host string) model.CreateShortURLResult {
	args := s.Called(ctx, longURL, scheme, host)
	return args.Get(0).(model.CreateShortURLResult)
}

func (s *MockShortener) HandleShortURLRequest(ctx context.Context, code string, headers http.Header) *model.RedirectResponse {
	args := s.Called(ctx, code, headers)
	resp, _ := args.Get(0).(*model.RedirectResponse)
	return resp
}

type HandlersTestSuite struct {
	suite.Suite
	shortenerMock *MockShortener
	checks        map[string]Check
	e             *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.shortenerMock = new(MockShortener)
	suite.checks = map[string]Check{}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	NewHealthHandler(HealthDeps{Checks: suite.checks}).Register(app)
	NewShortenHandler(ShortenDeps{Shortener: suite.shortenerMock}).Register(app)
	NewRedirectHandler(RedirectDeps{Shortener: suite.shortenerMock}).Register(app)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL: "http://short.test",
		Client: &http.Client{
			Transport: httpexpect.NewFastBinder(app.Handler()),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Reporter: httpexpect.NewAssertReporter(suite.T()),
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.shortenerMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestShorten() {
	const path = "/shorten"

	suite.Run("empty request body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			Text().IsEqual("request body is empty")
	})

	suite.Run("invalid request body", func() {
		suite.e.POST(path).
			WithHeader(fiber.HeaderContentType, fiber.MIMEApplicationJSON).
			WithBytes([]byte("{")).
			Expect().
			Status(http.StatusBadRequest).
			Text().IsEqual("invalid request body")
	})

	suite.Run("invalid url", func() {
		suite.shortenerMock.
			On("CreateShortURL", mock.Anything, "not-a-url", "http", "short.test").
			Return(model.CreateFailed("URL invalid")).
			Once()

		suite.e.POST(path).
			WithJSON(map[string]string{"longUrl": "not-a-url"}).
			Expect().
			Status(http.StatusBadRequest).
			Text().IsEqual("URL invalid")
	})

	suite.Run("success", func() {
		suite.shortenerMock.
			On("CreateShortURL", mock.Anything, "https://example.com/a", "http", "short.test").
			Return(model.CreateSucceeded("http://short.test/abc1234")).
			Once()

		suite.e.POST(path).
			WithJSON(map[string]string{"longUrl": "https://example.com/a"}).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("http://short.test/abc1234")
	})
}

func (suite *HandlersTestSuite) TestResolve() {
	suite.Run("not found", func() {
		suite.shortenerMock.
			On("HandleShortURLRequest", mock.Anything, "missing", mock.Anything).
			Return(nil).
			Once()

		suite.e.GET("/missing").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "short url not found")
	})

	suite.Run("redirect", func() {
		suite.shortenerMock.
			On("HandleShortURLRequest", mock.Anything, "abc1234", mock.Anything).
			Return(&model.RedirectResponse{LongURL: "https://example.com/a"}).
			Once()

		suite.e.GET("/abc1234").
			Expect().
			Status(http.StatusFound).
			Header(fiber.HeaderLocation).IsEqual("https://example.com/a")
	})

	suite.Run("json", func() {
		suite.shortenerMock.
			On("HandleShortURLRequest", mock.Anything, "abc1234", mock.MatchedBy(func(h http.Header) bool {
				return h.Get("X-Requested-With") == "XMLHttpRequest"
			})).
			Return(&model.RedirectResponse{LongURL: "https://example.com/a", WantsJSON: true}).
			Once()

		suite.e.GET("/abc1234").
			WithHeader("X-Requested-With", "XMLHttpRequest").
			Expect().
			Status(http.StatusOK).
			HasContentType("application/json").
			JSON().Object().
			HasValue("longUrl", "https://example.com/a")
	})
}

func (suite *HandlersTestSuite) TestHealth() {
	suite.Run("healthy", func() {
		suite.checks["postgres"] = func(context.Context) error { return nil }

		obj := suite.e.GET("/health").
			Expect().
			Status(http.StatusOK).
			JSON().Object()
		obj.HasValue("status", "ok")
		obj.Value("dependencies").Object().HasValue("postgres", "up")
	})

	suite.Run("degraded", func() {
		suite.checks["postgres"] = func(context.Context) error { return nil }
		suite.checks["redis"] = func(context.Context) error { return errors.New("connection refused") }

		obj := suite.e.GET("/health").
			Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object()
		obj.HasValue("status", "degraded")
		obj.Value("dependencies").Object().HasValue("redis", "down")
	})
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
