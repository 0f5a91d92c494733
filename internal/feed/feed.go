// Package feed fetches and decodes the GTFS-realtime alert and
// trip-update feeds. It is pure transport: classification, filtering,
// and route normalization happen downstream.
package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/config"
	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Alert is one decoded service alert: the chosen header text, its
// active periods, and the raw route ids of its informed entities.
type Alert struct {
	Header   string
	Periods  []classify.ActivePeriod
	RouteIDs []string
}

// Partition identifies one trip-update feed. The MTA splits trip
// updates across several endpoints by line group.
type Partition struct {
	Name string
	URL  string
}

// DefaultPartitions lists the trip-update endpoints covering the
// tracked network.
var DefaultPartitions = []Partition{
	{Name: "1234567S", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs"},
	{Name: "ace", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-ace"},
	{Name: "bdfm", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-bdfm"},
	{Name: "g", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-g"},
	{Name: "jz", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-jz"},
	{Name: "l", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-l"},
	{Name: "nqrw", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-nqrw"},
	{Name: "si", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-si"},
	{Name: "7", URL: "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs-7"},
}

// Result is the outcome of one fan-out across all feeds. TripCounts is
// keyed by raw route id, merged additively across partitions. A feed
// that failed or timed out simply contributes nothing.
type Result struct {
	Alerts     []Alert
	TripCounts map[string]int
}

// Client fetches all upstream feeds for one refresh cycle.
type Client struct {
	client     *http.Client
	alertsURL  string
	partitions []Partition
	workers    int
	timeout    time.Duration
}

// NewClient creates a feed client from configuration. TRIP_FEED_URLS
// replaces the default trip-update partitions when set.
func NewClient(cfg *config.Config) *Client {
	partitions := DefaultPartitions
	if len(cfg.TripFeedURLs) > 0 {
		partitions = make([]Partition, 0, len(cfg.TripFeedURLs))
		for _, u := range cfg.TripFeedURLs {
			partitions = append(partitions, Partition{Name: u, URL: u})
		}
	}
	return &Client{
		client:     &http.Client{},
		alertsURL:  cfg.AlertsURL,
		partitions: partitions,
		workers:    cfg.FetchWorkers,
		timeout:    cfg.FetchTimeout,
	}
}

// Fetch runs the alert fetch and every trip-update partition fetch
// concurrently under a bounded worker pool. Each fetch has its own
// timeout; a failure degrades to an empty result for that feed only,
// so Fetch itself never fails.
func (c *Client) Fetch(ctx context.Context) Result {
	res := Result{TripCounts: make(map[string]int)}

	workers := c.workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()

		alerts, err := c.fetchAlerts(ctx)
		if err != nil {
			log.Printf("Alerts: fetch failed: %v", err)
			return
		}
		mu.Lock()
		res.Alerts = alerts
		mu.Unlock()
	}()

	for _, p := range c.partitions {
		wg.Add(1)
		go func(p Partition) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			counts, err := c.fetchTripCounts(ctx, p.URL)
			if err != nil {
				log.Printf("Trips: fetch failed for %s: %v", p.Name, err)
				return
			}
			mu.Lock()
			for rid, n := range counts {
				res.TripCounts[rid] += n
			}
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return res
}

// fetchAlerts fetches and decodes the alerts feed.
func (c *Client) fetchAlerts(ctx context.Context) ([]Alert, error) {
	feed, err := c.fetchFeed(ctx, c.alertsURL)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, entity := range feed.Entity {
		if entity.Alert == nil {
			continue
		}
		raw := entity.Alert

		header := headerText(raw)
		if header == "" {
			continue
		}

		a := Alert{Header: header}

		for _, period := range raw.ActivePeriod {
			var p classify.ActivePeriod
			if period.Start != nil {
				start := int64(*period.Start)
				p.Start = &start
			}
			if period.End != nil {
				end := int64(*period.End)
				p.End = &end
			}
			a.Periods = append(a.Periods, p)
		}

		for _, ie := range raw.InformedEntity {
			if ie.RouteId != nil && *ie.RouteId != "" {
				a.RouteIDs = append(a.RouteIDs, *ie.RouteId)
			}
		}

		alerts = append(alerts, a)
	}

	return alerts, nil
}

// headerText picks the alert header: the English translation if
// present, else an untagged one, else the first available.
func headerText(alert *gtfs.Alert) string {
	if alert.HeaderText == nil {
		return ""
	}
	translations := alert.HeaderText.Translation
	for _, tr := range translations {
		if tr.Text == nil {
			continue
		}
		if tr.Language == nil || *tr.Language == "" || *tr.Language == "en" {
			return *tr.Text
		}
	}
	for _, tr := range translations {
		if tr.Text != nil {
			return *tr.Text
		}
	}
	return ""
}

// fetchTripCounts fetches one trip-update partition and counts active
// trips per raw route id.
func (c *Client) fetchTripCounts(ctx context.Context, url string) (map[string]int, error) {
	feed, err := c.fetchFeed(ctx, url)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, entity := range feed.Entity {
		tu := entity.TripUpdate
		if tu == nil || tu.Trip == nil || tu.Trip.RouteId == nil {
			continue
		}
		counts[*tu.Trip.RouteId]++
	}
	return counts, nil
}

// fetchFeed fetches a GTFS-RT feed from the given URL.
func (c *Client) fetchFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}
