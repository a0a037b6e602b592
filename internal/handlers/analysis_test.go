package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/export"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/handlers"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/logger"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"
)

var _ = Describe("ConversationAnalysisHandler", func() {
	var (
		router   *gin.Engine
		analyzer *mockAnalyzerService
	)

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	errorOf := func(w *httptest.ResponseRecorder) string {
		var resp map[string]string
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp["error"]
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		analyzer = &mockAnalyzerService{}

		h := handlers.NewConversationAnalysisHandler(analyzer, export.NewExporter(time.UTC), time.UTC, logger.Discard())
		router = handlers.NewRouter(h, handlers.RouterConfig{
			ServiceName: "test",
			Logger:      logger.Discard(),
		})
	})

	Describe("parameter validation", func() {
		DescribeTable("returns 400 without calling the analyzer",
			func(query, expectedError string) {
				w := get("/api/v1/analysis" + query)

				Expect(w.Code).To(Equal(http.StatusBadRequest))
				Expect(errorOf(w)).To(ContainSubstring(expectedError))
				Expect(analyzer.calls).To(BeZero())
			},
			Entry("missing phone", "", "missing required parameter: phone"),
			Entry("phone without digits", "?phone=abc", "invalid phone"),
			Entry("malformed start date", "?phone=11999999999&start=01/03/2024", "invalid start date"),
			Entry("malformed end date", "?phone=11999999999&end=2024-13-01", "invalid end date"),
			Entry("reversed date range", "?phone=11999999999&start=2024-03-10&end=2024-03-01", "start date cannot be after end date"),
			Entry("unknown format", "?phone=11999999999&format=xml", "invalid format: xml"),
		)

		It("passes the phone and the date window to the analyzer", func() {
			var got models.ConversationQuery
			analyzer.analyzeConversationFn = func(_ context.Context, query models.ConversationQuery) (*models.AnalysisResult, error) {
				got = query
				return sampleResult(), nil
			}

			w := get("/api/v1/analysis?phone=(11)%2099999-9999&start=2024-03-01&end=2024-03-10")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got.Phone).To(Equal("(11) 99999-9999"))
			Expect(got.Window.Start).To(Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
			Expect(got.Window.End).To(Equal(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)))
		})
	})

	Describe("analysis failures", func() {
		DescribeTable("maps errors to status codes and user messages",
			func(err error, expectedStatus int, expectedError string) {
				analyzer.analyzeConversationFn = func(context.Context, models.ConversationQuery) (*models.AnalysisResult, error) {
					return nil, err
				}

				w := get("/api/v1/analysis?phone=11999999999")

				Expect(w.Code).To(Equal(expectedStatus))
				Expect(errorOf(w)).To(Equal(expectedError))
			},
			Entry("no messages", &services.FetchError{Kind: services.FetchErrorNotFound},
				http.StatusNotFound, "no messages found for this number"),
			Entry("backend message", &services.FetchError{Kind: services.FetchErrorBackend, StatusCode: 401, Message: "Unauthorized"},
				http.StatusBadGateway, "Unauthorized"),
			Entry("backend without message", &services.FetchError{Kind: services.FetchErrorBackend, StatusCode: 500},
				http.StatusBadGateway, "failed to fetch messages"),
			Entry("network", &services.FetchError{Kind: services.FetchErrorNetwork, Err: errors.New("connection refused")},
				http.StatusBadGateway, "failed to fetch messages"),
			Entry("wrapped fetch error", errors.Join(errors.New("failed to fetch conversation"), &services.FetchError{Kind: services.FetchErrorNotFound}),
				http.StatusNotFound, "no messages found for this number"),
			Entry("invalid date range", models.ErrInvalidDateRange,
				http.StatusBadRequest, "start date cannot be after end date"),
			Entry("unexpected", errors.New("boom"),
				http.StatusInternalServerError, "failed to fetch messages"),
		)
	})

	Describe("output formats", func() {
		BeforeEach(func() {
			analyzer.analyzeConversationFn = func(context.Context, models.ConversationQuery) (*models.AnalysisResult, error) {
				return sampleResult(), nil
			}
		})

		It("returns the analysis as JSON by default", func() {
			w := get("/api/v1/analysis?phone=11999999999")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix("application/json"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["messageCount"]).To(BeNumerically("==", 2))
			Expect(resp["dateRange"]).To(Equal("14/11/2023, 22:13 - 14/11/2023, 22:14"))
			Expect(resp["userStats"]).To(HaveKey("Ana"))
			Expect(resp["rawConversations"]).To(HaveLen(2))

			// userStats keys keep first-appearance order
			Expect(w.Body.String()).To(MatchRegexp(`"userStats":\{"Ana":.*"Bruno":`))
		})

		It("returns the summary report", func() {
			w := get("/api/v1/analysis?phone=11999999999&format=summary")

			Expect(w.Code).To(Equal(http.StatusOK))

			var report export.Report
			Expect(json.Unmarshal(w.Body.Bytes(), &report)).To(Succeed())
			Expect(report.Participants).To(Equal(2))
			Expect(report.DailyActivity).To(HaveLen(1))
			Expect(report.Users[1]).To(Equal(export.UserSummary{Name: "Bruno", MessageCount: 1, AverageWords: 2}))
			Expect(report.RecentMessages).To(HaveLen(2))
		})

		It("returns a CSV attachment", func() {
			w := get("/api/v1/analysis?phone=11999999999&format=csv")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/csv; charset=utf-8"))
			Expect(w.Header().Get("Content-Disposition")).To(MatchRegexp(`attachment; filename=conversas_whatsapp_\d{4}-\d{2}-\d{2}\.csv`))

			lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
			Expect(lines).To(Equal([]string{
				"Data,Usuário,Mensagem",
				`"14/11/2023, 22:13:20",Ana,oi`,
				`"14/11/2023, 22:14:20",Bruno,tudo bem`,
			}))
		})

		It("returns the conversation as text", func() {
			w := get("/api/v1/analysis?phone=11999999999&format=text")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/plain; charset=utf-8"))
			Expect(w.Body.String()).To(Equal("[14/11/2023, 22:13:20] Ana: oi\n[14/11/2023, 22:14:20] Bruno: tudo bem"))
		})

		It("returns the activity chart as PNG", func() {
			w := get("/api/v1/analysis?phone=11999999999&format=png")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("image/png"))

			img, err := png.Decode(w.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(export.ChartWidth))
		})
	})
})

var _ = Describe("Router", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		h := handlers.NewConversationAnalysisHandler(&mockAnalyzerService{}, export.NewExporter(time.UTC), time.UTC, logger.Discard())
		router = handlers.NewRouter(h, handlers.RouterConfig{ServiceName: "test", Logger: logger.Discard()})
	})

	It("reports health", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("generates a request ID", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Header().Get(handlers.RequestIDHeader)).To(MatchRegexp(`^[0-9a-f-]{36}$`))
	})

	It("echoes the inbound request ID", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(handlers.RequestIDHeader, "req-42")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Header().Get(handlers.RequestIDHeader)).To(Equal("req-42"))
	})

	It("returns 404 for unknown routes", func() {
		req := httptest.NewRequest(http.MethodGet, "/analysis", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"not found"}`))
	})

	It("rejects methods other than GET", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis?phone=11999999999", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("keeps the query string out of the access log", func() {
		var buf bytes.Buffer
		h := handlers.NewConversationAnalysisHandler(&mockAnalyzerService{}, export.NewExporter(time.UTC), time.UTC, logger.Discard())
		router = handlers.NewRouter(h, handlers.RouterConfig{ServiceName: "test", Logger: logger.New(&buf, true)})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis?phone=11999999999&format=text", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(buf.String()).To(ContainSubstring(`"path":"/api/v1/analysis"`))
		Expect(buf.String()).NotTo(ContainSubstring("11999999999"))
	})

	It("recovers from panics", func() {
		panicking := &mockAnalyzerService{
			analyzeConversationFn: func(context.Context, models.ConversationQuery) (*models.AnalysisResult, error) {
				panic("boom")
			},
		}
		h := handlers.NewConversationAnalysisHandler(panicking, export.NewExporter(time.UTC), time.UTC, logger.Discard())
		router = handlers.NewRouter(h, handlers.RouterConfig{ServiceName: "test", Logger: logger.Discard()})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis?phone=11999999999", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error"}`))
	})
})
