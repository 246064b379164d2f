package pagedb

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAdd_NewPage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	page := &CrawledPage{URL: "http://a.example", Time: 1000, ContentHash: 7}
	if err := db.Add(ctx, page); err != nil {
		t.Fatalf("add: %v", err)
	}

	pi, err := db.GetInfo(ctx, Hash("http://a.example"))
	if err != nil {
		t.Fatalf("get info: %v", err)
	}
	if pi == nil {
		t.Fatal("page should exist")
	}
	if pi.URL != "http://a.example" || pi.NCrawls != 1 || pi.FirstCrawl != 1000 || pi.LastCrawl != 1000 {
		t.Fatalf("page info: %+v", pi)
	}
	if pi.NChanges != 0 {
		t.Fatalf("first sight counts no change: %+v", pi)
	}
}

func TestAdd_CountsContentChanges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	url := "http://a.example"

	for i, content := range []uint64{5, 5, 9} {
		page := &CrawledPage{URL: url, Time: int64(1000 + 100*i), ContentHash: content}
		if err := db.Add(ctx, page); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	pi, err := db.GetInfo(ctx, Hash(url))
	if err != nil {
		t.Fatal(err)
	}
	if pi.NCrawls != 3 {
		t.Fatalf("n_crawls: got %d", pi.NCrawls)
	}
	if pi.NChanges != 1 {
		t.Fatalf("n_changes: got %d, want 1", pi.NChanges)
	}
	if pi.FirstCrawl != 1000 || pi.LastCrawl != 1200 {
		t.Fatalf("crawl times: %+v", pi)
	}
}

func TestAdd_RegistersLinks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	page := &CrawledPage{
		URL:   "http://a.example",
		Time:  1000,
		Links: []string{"http://b.example", "http://c.example"},
	}
	if err := db.Add(ctx, page); err != nil {
		t.Fatal(err)
	}

	pi, err := db.GetInfo(ctx, Hash("http://b.example"))
	if err != nil {
		t.Fatal(err)
	}
	if pi == nil {
		t.Fatal("linked page should be known")
	}
	if pi.NCrawls != 0 {
		t.Fatalf("linked page should be uncrawled: %+v", pi)
	}

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("count: got %d, want 3", n)
	}
}

func TestGetInfo_UnknownPage(t *testing.T) {
	db := openTestDB(t)
	pi, err := db.GetInfo(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unknown page is not an error: %v", err)
	}
	if pi != nil {
		t.Fatalf("got %+v, want nil", pi)
	}
}

func TestAddSeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.AddSeed(ctx, "http://seed.example"); err != nil {
		t.Fatal(err)
	}
	pi, err := db.GetInfo(ctx, Hash("http://seed.example"))
	if err != nil {
		t.Fatal(err)
	}
	if pi == nil || !pi.IsSeed || pi.NCrawls != 0 {
		t.Fatalf("seed info: %+v", pi)
	}

	// Crawling a seed keeps the flag.
	if err := db.Add(ctx, &CrawledPage{URL: "http://seed.example", Time: 1000}); err != nil {
		t.Fatal(err)
	}
	pi, err = db.GetInfo(ctx, Hash("http://seed.example"))
	if err != nil {
		t.Fatal(err)
	}
	if !pi.IsSeed || pi.NCrawls != 1 {
		t.Fatalf("seed info after crawl: %+v", pi)
	}
}

func TestRate(t *testing.T) {
	cases := []struct {
		pi   PageInfo
		want float32
	}{
		{PageInfo{NCrawls: 0}, 0},
		{PageInfo{NCrawls: 1, FirstCrawl: 1000, LastCrawl: 1000}, 0},
		{PageInfo{NCrawls: 2, FirstCrawl: 1000, LastCrawl: 1100, NChanges: 10}, 0.1},
		{PageInfo{NCrawls: 5, FirstCrawl: 1000, LastCrawl: 2000, NChanges: 0}, 0},
	}
	for i, c := range cases {
		if got := c.pi.Rate(); got != c.want {
			t.Errorf("case %d: rate %v, want %v", i, got, c.want)
		}
	}
}

func TestStream(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	urls := []string{"http://a.example", "http://b.example", "http://c.example"}
	for i, u := range urls {
		if err := db.Add(ctx, &CrawledPage{URL: u, Time: int64(1000 + i)}); err != nil {
			t.Fatal(err)
		}
	}

	st, err := db.Stream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	seen := make(map[uint64]string)
	for st.Next() {
		seen[st.Hash()] = st.Info().URL
	}
	if err := st.Err(); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(seen) != len(urls) {
		t.Fatalf("streamed %d pages, want %d", len(seen), len(urls))
	}
	for _, u := range urls {
		if seen[Hash(u)] != u {
			t.Fatalf("missing page %q in %v", u, seen)
		}
	}
}

func TestHash_Normalisation(t *testing.T) {
	if Hash("http://a.example/") != Hash("http://a.example") {
		t.Error("trailing slash should not change the hash")
	}
	if Hash(" http://a.example") != Hash("http://a.example") {
		t.Error("surrounding whitespace should not change the hash")
	}
	if Hash("http://a.example") == Hash("http://b.example") {
		t.Error("distinct URLs should hash differently")
	}
}
