package httputil

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const DateLayout = "2006-01-02"

// IDParam parses a positive numeric route parameter.
func IDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" is invalid")
	}
	return uint(id), nil
}

type Page struct {
	Limit  int
	Offset int
}

// PageQuery reads ?limit=&offset= with a default of 50 and a cap of 500.
func PageQuery(c *fiber.Ctx) Page {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// DateRangeQuery reads ?from=YYYY-MM-DD&to=YYYY-MM-DD. to is inclusive, the
// returned end is the start of the following day.
func DateRangeQuery(c *fiber.Ctx, loc *time.Location) (from, to *time.Time, err error) {
	if s := c.Query("from"); s != "" {
		t, perr := time.ParseInLocation(DateLayout, s, loc)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, perr := time.ParseInLocation(DateLayout, s, loc)
		if perr != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
