package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/humaidq/arbnco-proxy/internal/sensor"
	"github.com/humaidq/arbnco-proxy/internal/sensor/providers"
	"github.com/humaidq/arbnco-proxy/internal/store"
)

var validate = validator.New()

// Credentials are the Basic Auth username and password the controller uses.
type Credentials struct {
	Username string
	Password string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *sensor.Service, creds Credentials) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": "arbnco-proxy",
		}
		if snap, err := service.GetLatestSnapshot(); err == nil {
			body["last_refresh"] = snap.FetchedAt
		}
		return c.JSON(body)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := basicauth.New(basicauth.Config{
		Realm: "arbnco-proxy",
		Authorizer: func(user, pass string) bool {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(creds.Username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Password)) == 1
			return userOK && passOK
		},
	})

	app.Get("/", auth, func(c *fiber.Ctx) error {
		reading, err := service.Latest(c.UserContext())
		if err != nil {
			return readingError(err)
		}
		return c.JSON(reading)
	})

	app.Get("/history", auth, func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, time.Now().UTC()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := service.GetRange(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch reading history")
		}

		return c.JSON(fiber.Map{
			"site_id":   service.SiteID(),
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

// ErrorHandler renders every error as a JSON body with the matching status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// readingError maps a failed cache lookup to an HTTP error.
func readingError(err error) error {
	var fe *providers.FetchError
	switch {
	case errors.As(err, &fe):
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch sensor readings: "+fe.Kind.String())
	case errors.Is(err, sensor.ErrMissingLatestBucket):
		return fiber.NewError(fiber.StatusBadGateway, "upstream returned no data for the latest time bucket")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusGatewayTimeout, "timed out waiting for sensor readings")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch sensor readings")
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

// bind reads from/to, defaulting to the last 24 hours before now.
func (h *historyQuery) bind(c *fiber.Ctx, now time.Time) error {
	h.From = now.Add(-24 * time.Hour)
	h.To = now

	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
