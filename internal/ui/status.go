package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo is the operator-facing health summary shown by `kbmcp status`.
type StatusInfo struct {
	ConfigPath string `json:"config_path,omitempty"`

	// Storage
	Provider      string `json:"provider"`
	Bucket        string `json:"bucket"`
	Endpoint      string `json:"endpoint,omitempty"`
	DocumentCount int    `json:"document_count"`
	DocumentBytes int64  `json:"document_bytes"`

	// Catalog health
	CatalogStatus    string `json:"catalog_status"` // "ok" or "error"
	CatalogError     string `json:"catalog_error,omitempty"`
	VersionCount     int    `json:"version_count"`
	ReadyCount       int    `json:"ready_count"`
	BuildingCount    int    `json:"building_count"`
	FailedCount      int    `json:"failed_count"`
	SkippedMalformed int    `json:"skipped_malformed,omitempty"`

	// Versions
	ActiveVersion string    `json:"active_version,omitempty"`
	LatestReady   string    `json:"latest_ready,omitempty"`
	LatestCreated time.Time `json:"latest_created,omitempty"`
}

// StatusRenderer displays the health summary.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Knowledge Base Status"))

	if info.ConfigPath != "" {
		_, _ = fmt.Fprintf(r.out, "  Config:  %s\n\n", info.ConfigPath)
	}

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Provider:  %s\n", info.Provider)
	_, _ = fmt.Fprintf(r.out, "    Bucket:    %s\n", info.Bucket)
	if info.Endpoint != "" {
		_, _ = fmt.Fprintf(r.out, "    Endpoint:  %s\n", info.Endpoint)
	}
	_, _ = fmt.Fprintf(r.out, "    Documents: %d (%s)\n", info.DocumentCount, FormatBytes(info.DocumentBytes))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Catalog:")
	_, _ = fmt.Fprintf(r.out, "    Status:   %s\n", r.renderHealth(info.CatalogStatus))
	if info.CatalogError != "" {
		_, _ = fmt.Fprintf(r.out, "    Error:    %s\n", r.styles.Error.Render(info.CatalogError))
	}
	_, _ = fmt.Fprintf(r.out, "    Versions: %d (%d ready, %d building, %d failed)\n",
		info.VersionCount, info.ReadyCount, info.BuildingCount, info.FailedCount)
	if info.SkippedMalformed > 0 {
		_, _ = fmt.Fprintf(r.out, "    Skipped:  %s\n",
			r.styles.Warning.Render(fmt.Sprintf("%d malformed entries", info.SkippedMalformed)))
	}
	_, _ = fmt.Fprintln(r.out)

	if info.ActiveVersion != "" {
		_, _ = fmt.Fprintf(r.out, "  Active version: %s\n", r.styles.Active.Render(info.ActiveVersion))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Active version: %s\n",
			r.styles.Warning.Render("none (searches will fail until one is promoted)"))
	}
	if info.LatestReady != "" && info.LatestReady != info.ActiveVersion {
		_, _ = fmt.Fprintf(r.out, "  Latest READY:   %s %s\n",
			info.LatestReady, r.styles.Dim.Render("(newer than active; `kbmcp promote` to switch)"))
	}
	if !info.LatestCreated.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last build:     %s\n", formatTime(info.LatestCreated))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// renderHealth formats an ok/error health string with color.
func (r *StatusRenderer) renderHealth(status string) string {
	switch status {
	case "ok":
		return r.styles.Success.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// VersionRow is one catalog entry in the versions table.
type VersionRow struct {
	ID      string
	Status  string
	Created time.Time
	Files   int
	Active  bool
}

// RenderVersionTable writes the catalog listing as an aligned table,
// oldest first, with a file-count sparkline underneath when file counts
// are known.
func RenderVersionTable(out io.Writer, rows []VersionRow, noColor bool) {
	styles := GetStyles(noColor)

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, styles.Dim.Render("No index versions in the catalog yet. Run `kbmcp index` to build one."))
		return
	}

	idWidth := len("VERSION")
	for _, row := range rows {
		if len(row.ID) > idWidth {
			idWidth = len(row.ID)
		}
	}

	header := fmt.Sprintf("%-*s  %-8s %-17s %6s  %s", idWidth, "VERSION", "STATUS", "CREATED", "FILES", "ACTIVE")
	_, _ = fmt.Fprintln(out, styles.Header.Render(header))

	haveFiles := false
	fileCounts := make([]float64, 0, len(rows))
	for _, row := range rows {
		files := "-"
		if row.Files > 0 {
			files = fmt.Sprintf("%d", row.Files)
			haveFiles = true
		}
		fileCounts = append(fileCounts, float64(row.Files))

		active := ""
		if row.Active {
			active = styles.Active.Render("*")
		}

		status := styles.StatusStyle(row.Status).Render(fmt.Sprintf("%-8s", row.Status))
		line := fmt.Sprintf("%-*s  %s %-17s %6s  %s",
			idWidth, row.ID, status, row.Created.Local().Format("2006-01-02 15:04"), files, active)
		_, _ = fmt.Fprintln(out, line)
	}

	if haveFiles && len(rows) > 1 {
		spark := RenderSparkline(fileCounts, 40)
		_, _ = fmt.Fprintf(out, "\n%s %s\n",
			styles.Label.Render("files per version:"), styles.Success.Render(spark))
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
