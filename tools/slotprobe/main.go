package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// slotprobe hits the public slot endpoint for a range of days and prints a
// compact per-day view, which is handy when checking a freshly loaded
// schedule against expectations.
func main() {
	var (
		baseURL      = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "agenda service base url")
		professional = flag.String("professional-id", getenv("PROFESSIONAL_ID", ""), "professional to probe")
		from         = flag.String("from", time.Now().UTC().Format("2006-01-02"), "first date (YYYY-MM-DD)")
		days         = flag.Int("days", 7, "number of days to probe")
		duration     = flag.Int("duration", 30, "appointment duration in minutes")
	)
	flag.Parse()

	if strings.TrimSpace(*professional) == "" {
		fatal("PROFESSIONAL_ID is required")
	}
	start, err := time.ParseInLocation("2006-01-02", *from, time.UTC)
	if err != nil {
		fatal("invalid -from date: " + err.Error())
	}
	if *days <= 0 || *days > 60 {
		fatal("-days must be between 1 and 60")
	}

	for i := 0; i < *days; i++ {
		day := start.AddDate(0, 0, i)
		slots, err := fetchSlots(*baseURL, *professional, day, *duration)
		if err != nil {
			fatal(err.Error())
		}
		if len(slots) == 0 {
			fmt.Printf("%s %-9s -\n", day.Format("2006-01-02"), day.Weekday())
			continue
		}
		fmt.Printf("%s %-9s %s\n", day.Format("2006-01-02"), day.Weekday(), strings.Join(slots, " "))
	}
}

func fetchSlots(baseURL, professionalID string, day time.Time, duration int) ([]string, error) {
	q := url.Values{}
	q.Set("professional_id", professionalID)
	q.Set("date", day.Format("2006-01-02"))
	q.Set("duration_minutes", strconv.Itoa(duration))

	resp, err := http.Get(strings.TrimRight(baseURL, "/") + "/api/v1/public/slots?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Slots, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
