package pagedb

// PageInfo is the stored metadata for one known page.
type PageInfo struct {
	URL        string
	FirstCrawl int64 // epoch seconds of the first completed fetch, 0 if never
	LastCrawl  int64 // epoch seconds of the most recent fetch, 0 if never
	NCrawls    uint64
	NChanges   uint64
	IsSeed     bool
}

// Rate returns the observed change rate of the page in changes per
// second, or 0 when not enough history exists to estimate one.
func (pi *PageInfo) Rate() float32 {
	if pi.NCrawls < 2 || pi.LastCrawl <= pi.FirstCrawl {
		return 0
	}
	return float32(pi.NChanges) / float32(pi.LastCrawl-pi.FirstCrawl)
}

// CrawledPage reports one completed fetch.
type CrawledPage struct {
	URL string
	// Time is the fetch time in epoch seconds. 0 means now.
	Time int64
	// ContentHash fingerprints the fetched content. A different value
	// than the previous fetch counts as a page change; 0 means unknown
	// and never counts as a change.
	ContentHash uint64
	// Links are URLs discovered on the page. They are recorded as
	// known-but-uncrawled pages.
	Links []string
}
