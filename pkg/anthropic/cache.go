package anthropic

// CachedSystem builds a single system block with a cache breakpoint. The
// drafting prompt is identical across replies of a campaign, so it is
// cached for an hour.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: "1h"},
	}}
}
