package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SetStreamHeaders", func() {
	var app *fiber.App

	BeforeEach(func() {
		app = fiber.New()
	})

	AfterEach(func() {
		app.Shutdown()
	})

	It("marks the response as an unbuffered event stream", func() {
		app.Get("/stream", func(c *fiber.Ctx) error {
			SetStreamHeaders(c)
			return c.SendString("data: hi\n\n")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(resp.Header.Get("X-Accel-Buffering")).To(Equal("no"))
	})

	It("drops a content encoding set earlier in the chain", func() {
		app.Get("/stream", func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentEncoding, "gzip")
			SetStreamHeaders(c)
			return c.SendString("data: hi\n\n")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
	})
})

var _ = Describe("SetBearerChallenge", func() {
	var app *fiber.App

	BeforeEach(func() {
		app = fiber.New()
	})

	AfterEach(func() {
		app.Shutdown()
	})

	DescribeTable("sets WWW-Authenticate",
		func(description, want string) {
			app.Get("/", func(c *fiber.Ctx) error {
				SetBearerChallenge(c, description)
				return c.SendStatus(fiber.StatusUnauthorized)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("WWW-Authenticate")).To(Equal(want))
		},
		Entry("without a description", "", `Bearer realm="scribe"`),
		Entry("with a description", "token expired",
			`Bearer realm="scribe", error="invalid_token", error_description="token expired"`),
	)
})
