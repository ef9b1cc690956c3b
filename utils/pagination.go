package utils

import (
	"strconv"

	"lms/repos"

	"github.com/gofiber/fiber/v2"
)

// ParsePage reads ?page= and ?limit= from the request.
func ParsePage(c *fiber.Ctx) repos.Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	return repos.Page{Page: page, Limit: limit}
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func NewPageMeta(p repos.Page, total int64) PageMeta {
	size := int64(p.Size())
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return PageMeta{Page: p.Number(), Limit: p.Size(), Total: total, TotalPages: pages}
}

// QueryUint parses an optional numeric filter; invalid values read as zero.
func QueryUint(c *fiber.Ctx, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
