package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"ytqueue/internal/ipc"
	"ytqueue/internal/queue"
	"ytqueue/internal/textutil"
)

// buildQueueStatusRows renders stats in lifecycle order, skipping empty statuses.
func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{textutil.DisplayStatus(string(status)), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildQueueListRows(jobs []ipc.Job, colorize bool) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := slices.Clone(jobs)
	slices.SortFunc(sorted, func(a, b ipc.Job) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		title := strings.TrimSpace(job.Title)
		if title == "" {
			title = job.URL
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			title,
			colorStatus(job.Status, colorize),
			job.Format,
			formatDisplayTime(job.UpdatedAt),
			formatDetail(job.Detail),
		})
	}
	return rows
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return value
}

func formatDetail(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if line, _, ok := strings.Cut(value, "\n"); ok {
		value = line
	}
	const maxDetail = 48
	if runes := []rune(value); len(runes) > maxDetail {
		return string(runes[:maxDetail-3]) + "..."
	}
	return value
}
