package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/selector"
	"github.com/five82/cityguide/internal/status"
)

const offlineMessage = "You're offline. Some features may be limited."

// bodyHeight is the number of rows left for the list or detail view.
func (m Model) bodyHeight() int {
	h := m.height - 2 // header and footer
	if m.offline() {
		h--
	}
	if m.showLogs {
		h -= logPaneLines + 2 // pane border
	}
	return max(h, 3)
}

func (m Model) offline() bool {
	return m.conn != nil && m.conn.Snapshot().IsOffline()
}

func (m *Model) resizeDetail() {
	if !m.ready {
		return
	}
	m.detail.Width = m.width
	m.detail.Height = m.bodyHeight()
	m.refreshDetail()
}

// refreshDetail re-renders the detail viewport content from the cache.
func (m *Model) refreshDetail() {
	if !m.ready || m.loader == nil {
		return
	}
	m.detail.Width = m.width
	m.detail.Height = m.bodyHeight()
	if m.currentView == ViewDetail {
		m.detail.SetContent(m.renderDetailContent())
	}
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(m.renderHeader(styles))
	b.WriteString("\n")
	if m.offline() {
		b.WriteString(styles.Banner.Width(m.width).Render(offlineMessage))
		b.WriteString("\n")
	}

	switch m.currentView {
	case ViewDetail:
		b.WriteString(m.detail.View())
	default:
		b.WriteString(m.renderList(styles))
	}
	b.WriteString("\n")

	if m.showLogs {
		b.WriteString(m.renderLogPane(styles))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter(styles))
	return b.String()
}

func (m Model) renderHeader(styles Styles) string {
	title := "Cities"
	st := status.Idle
	if m.loader != nil {
		st = selector.AllCities(m.loader).State.Status
	}
	if m.currentView == ViewDetail {
		title = "City " + m.cityID
		if m.loader != nil {
			st = selector.SelectedCity(m.loader, m.cityID).State.Status
		}
	}
	left := styles.Logo.Render("cityguide") + "  " + styles.Text.Render(title)
	right := statusChip(styles, st)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderFooter(styles Styles) string {
	if m.flash != "" {
		return styles.Footer.Render(styles.InfoText.Render(m.flash))
	}
	return styles.Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func statusChip(styles Styles, st status.RequestStatus) string {
	return styles.StatusStyle(st).Render(st.String())
}

func (m Model) renderList(styles Styles) string {
	height := m.bodyHeight()
	if m.loader == nil {
		return fitHeight("", height)
	}
	view := selector.AllCities(m.loader)
	st := view.State

	var body string
	switch {
	case st.IsLoading:
		body = m.spinner.View() + " " + styles.MutedText.Render("Loading cities...")
	case st.HasError:
		body = styles.DangerText.Render("Couldn't load cities.") + " " + styles.MutedText.Render("Press r to retry.")
	case st.IsEmpty:
		body = styles.MutedText.Render("No cities found.")
	case st.IsLoaded:
		body = m.renderCityRows(styles, st.List, height)
	default:
		body = styles.MutedText.Render("Press r to load cities.")
	}
	return fitHeight(body, height)
}

func (m Model) renderCityRows(styles Styles, cities []cityapi.City, height int) string {
	start := 0
	if m.selectedRow >= height {
		start = m.selectedRow - height + 1
	}
	end := min(start+height, len(cities))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		city := cities[i]
		line := fmt.Sprintf(" %-32s %s", city.DisplayName(m.showNative), styles.FaintText.Render(city.Key))
		if i == m.selectedRow {
			line = styles.Selected.Width(m.width).Render(line)
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderDetailContent() string {
	styles := m.theme.Styles()
	city := selector.SelectedCity(m.loader, m.cityID)
	places := selector.SelectedCityPlaces(m.loader, m.cityID, m.cityKey)

	var b strings.Builder
	cs := city.State
	switch {
	case cs.IsLoading:
		b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Loading city..."))
	case cs.HasError:
		b.WriteString(styles.DangerText.Render("Couldn't load this city.") + " " + styles.MutedText.Render("Press r to retry."))
	case cs.IsEmpty:
		b.WriteString(styles.MutedText.Render("City not found."))
	case cs.IsLoaded:
		c := cs.Item
		b.WriteString(styles.Text.Bold(true).Render(c.DisplayName(m.showNative)))
		b.WriteString("\n")
		writeField(&b, styles, "Key", c.Key)
		if !m.showNative {
			writeField(&b, styles, "Native name", c.NativeName)
		} else {
			writeField(&b, styles, "Name", c.Name)
		}
		writeField(&b, styles, "Currency", c.Currency)
		writeField(&b, styles, "Language", c.Language)
	default:
		b.WriteString(styles.MutedText.Render("Press r to load this city."))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Bold(true).Render("Places"))
	b.WriteString(" ")
	b.WriteString(statusChip(styles, places.State.Status))
	b.WriteString("\n")

	ps := places.State
	switch {
	case ps.IsLoading:
		b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Loading places..."))
	case ps.HasError:
		b.WriteString(styles.DangerText.Render("Couldn't load places.") + " " + styles.MutedText.Render("Press r to retry."))
	case ps.IsEmpty:
		b.WriteString(styles.MutedText.Render("No places listed for this city."))
	case ps.IsLoaded:
		for i, place := range ps.List {
			b.WriteString(m.renderPlaceRow(styles, place, i == m.placeRow))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderPlaceRow(styles Styles, place cityapi.Place, selected bool) string {
	marker := "  "
	if selected {
		marker = styles.AccentText.Render("> ")
	}
	meta := place.Metadata
	name := meta.Name
	if name == "" {
		name = place.Key
	}
	detail := styles.FaintText.Render("(no location)")
	if err := meta.Validate(); err == nil {
		detail = styles.FaintText.Render(meta.Type + " · " + meta.Coordinates.String())
	}
	line := marker + styles.Text.Render(name) + "  " + detail
	if selected {
		return styles.Selected.Width(m.width).Render(line)
	}
	return line
}

func writeField(b *strings.Builder, styles Styles, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-12s", label)))
	b.WriteString(styles.Text.Render(value))
	b.WriteString("\n")
}

func (m Model) renderLogPane(styles Styles) string {
	lines := m.logLines
	if len(lines) > logPaneLines {
		lines = lines[len(lines)-logPaneLines:]
	}
	rendered := make([]string, 0, logPaneLines)
	for _, line := range lines {
		rendered = append(rendered, styles.LevelStyle(line.Level).Render(truncate(line.Text, m.width-4)))
	}
	if len(rendered) == 0 {
		rendered = append(rendered, styles.FaintText.Render("No log output yet."))
	}
	content := fitHeight(strings.Join(rendered, "\n"), logPaneLines)
	return styles.Pane.Width(max(m.width-2, 10)).Render(content)
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
	)
}

// fitHeight pads or cuts s to exactly height lines.
func fitHeight(s string, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
