package views

import (
	"fmt"
	"strings"

	"betra/internal/tui/common"
	"betra/internal/tui/styles"
)

// RenderMainView renders the selector: covers, module buckets, presets,
// status and key help.
func RenderMainView(m common.ModelReader) string {
	list, _ := RenderList(m)
	return RenderFrame(m, list)
}

// RenderList renders the covers and module buckets. It also returns the
// line the cursor row is on.
func RenderList(m common.ModelReader) (string, int) {
	var sb strings.Builder

	rows := m.Rows()
	if len(rows) == 0 {
		sb.WriteString(styles.Theme.Muted.Render("\nNo modules found in "+m.Dir()) + "\n")
	}

	cursorLine := 0
	coverHeader := false
	bucket := -1
	for i, row := range rows {
		if row.Cover && !coverHeader {
			sb.WriteString(styles.Theme.Header.Render("Cover") + "\n")
			coverHeader = true
		}
		if !row.Cover && (bucket == -1 || row.Bucket != bucket) {
			bucket = row.Bucket
			sb.WriteString(styles.Theme.Header.Render(bucketTitle(rows, bucket)) + "\n")
		}
		if i == m.Cursor() {
			cursorLine = strings.Count(sb.String(), "\n")
		}
		sb.WriteString(RenderRow(row, i == m.Cursor()) + "\n")
	}
	return sb.String(), cursorLine
}

// RenderFrame wraps a rendered list with the title and the footer.
func RenderFrame(m common.ModelReader, list string) string {
	var sb strings.Builder

	sb.WriteString(styles.Theme.Title.Render("betra · "+m.Dir()) + "\n")
	sb.WriteString(list)
	if !strings.HasSuffix(list, "\n") {
		sb.WriteString("\n")
	}

	if presets := m.Presets(); len(presets) > 0 {
		sb.WriteString("\n" + styles.Theme.Preset.Render("Presets: "+strings.Join(presets, "  ")) + "\n")
	}
	sb.WriteString(styles.Theme.Muted.Render("Output: "+m.Output()) + "\n")

	if confirm := m.Confirm(); confirm != "" {
		sb.WriteString(styles.Theme.Confirm.Render(confirm) + "\n")
	} else if status := m.Status(); status != "" {
		sb.WriteString(styles.Theme.Status.Render(status) + "\n")
	}

	sb.WriteString("\n" + styles.Theme.Help.Render(m.HelpView()))
	return styles.Theme.App.Render(sb.String())
}

// RenderRow renders one selector line.
func RenderRow(row common.Row, cursor bool) string {
	var box string
	switch {
	case row.Cover && row.Selected:
		box = "(•)"
	case row.Cover:
		box = "( )"
	case row.Mandatory:
		box = "[■]"
	case row.Selected:
		box = "[x]"
	default:
		box = "[ ]"
	}

	line := fmt.Sprintf("%s %s", box, row.Filename)
	switch {
	case cursor:
		return "> " + styles.Theme.Cursor.Render(line)
	case row.Mandatory && !row.Cover:
		return "  " + styles.Theme.Mandatory.Render(line)
	case row.Selected:
		return "  " + styles.Theme.Selected.Render(line)
	default:
		return "  " + line
	}
}

// bucketTitle names a bucket by the group keys of its rows.
func bucketTitle(rows []common.Row, bucket int) string {
	var keys []string
	seen := make(map[string]bool)
	for _, r := range rows {
		if r.Cover || r.Bucket != bucket || seen[r.GroupKey] {
			continue
		}
		seen[r.GroupKey] = true
		keys = append(keys, r.GroupKey)
	}
	return "Chapter " + strings.Join(keys, " · ")
}
