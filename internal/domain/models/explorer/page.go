package explorer

// PageCursor is an offset/limit pair. It is recomputed per request and never persisted.
type PageCursor struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize clamps the cursor: negative offsets become zero, a missing limit
// becomes defaultLimit and limits above maxLimit are capped.
func (c PageCursor) Normalize(defaultLimit, maxLimit int) PageCursor {
	if c.Offset < 0 {
		c.Offset = 0
	}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
	if maxLimit > 0 && c.Limit > maxLimit {
		c.Limit = maxLimit
	}
	return c
}

// Next returns the cursor for the page after this one.
func (c PageCursor) Next(fetched int) PageCursor {
	return PageCursor{Offset: c.Offset + fetched, Limit: c.Limit}
}
