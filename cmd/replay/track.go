package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// readTrack parses a recorded track. The header names the columns; ts, lat
// and lon are required, accuracy_m, speed_mps and heading_deg are optional.
// ts is unix milliseconds or RFC 3339. Rows that cannot be parsed are
// returned as errors with their line number.
func readTrack(r io.Reader) ([]domain.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, name := range []string{"ts", "lat", "lon"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var samples []domain.Sample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		s, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseRow(record []string, cols map[string]int) (domain.Sample, error) {
	ts, err := parseTs(getField(record, cols, "ts"))
	if err != nil {
		return domain.Sample{}, err
	}
	lat, err := strconv.ParseFloat(getField(record, cols, "lat"), 64)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := strconv.ParseFloat(getField(record, cols, "lon"), 64)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("lon: %w", err)
	}

	s := domain.Sample{
		Lat:        lat,
		Lon:        lon,
		AccuracyM:  math.Inf(1),
		SpeedMps:   math.NaN(),
		HeadingDeg: math.NaN(),
		Ts:         ts,
	}
	if v, ok := optionalFloat(record, cols, "accuracy_m"); ok {
		s.AccuracyM = v
	}
	if v, ok := optionalFloat(record, cols, "speed_mps"); ok {
		s.SpeedMps = v
	}
	if v, ok := optionalFloat(record, cols, "heading_deg"); ok {
		s.HeadingDeg = v
	}
	return s, nil
}

func parseTs(v string) (int64, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return 0, fmt.Errorf("ts %q: want unix ms or RFC 3339", v)
	}
	return t.UnixMilli(), nil
}

func optionalFloat(record []string, cols map[string]int, name string) (float64, bool) {
	v := getField(record, cols, name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// schedule returns how long to wait before each sample so the track plays
// back at speed times its recorded cadence. Out-of-order gaps wait zero.
func schedule(samples []domain.Sample, speed float64) []time.Duration {
	if speed <= 0 {
		speed = 1
	}
	waits := make([]time.Duration, len(samples))
	for i := 1; i < len(samples); i++ {
		gap := samples[i].Ts - samples[i-1].Ts
		if gap > 0 {
			waits[i] = time.Duration(float64(gap) / speed * float64(time.Millisecond))
		}
	}
	return waits
}

// rebase shifts every timestamp so the first sample lands at start.
func rebase(samples []domain.Sample, start time.Time) {
	if len(samples) == 0 {
		return
	}
	offset := start.UnixMilli() - samples[0].Ts
	for i := range samples {
		samples[i].Ts += offset
	}
}
