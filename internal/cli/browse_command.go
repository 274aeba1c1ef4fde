package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"timelens/internal/catalog"
	"timelens/internal/metastore"
	"timelens/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type browseMode int

const (
	browseModeList browseMode = iota
	browseModeFilter
	browseModeFailConfirm
)

// browseRow joins one catalog (spot, era) pair with its metadata record,
// when one exists.
type browseRow struct {
	Spot  model.Spot
	Era   model.Era
	Entry *model.VideoMetadataEntry
}

type browseModel struct {
	spotsPath    string
	metadataPath string
	rows         []browseRow
	visible      []int
	cursor       int
	width        int
	height       int
	mode         browseMode
	filter       string
	filterInput  textinput.Model

	confirmFailRow int
	statusMessage  string
	fatalErr       error
}

type browseLoadedMsg struct {
	rows []browseRow
	err  error
}

type browseFailMsg struct {
	message string
	err     error
}

var (
	browseTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	browseMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	browseErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	browseOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	browsePanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	browseSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runBrowse(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	spots := fs.String("spots", "", "spots document path (default from env)")
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("browse requires an interactive terminal (TTY)")
	}

	rt, err := loadRuntime(*spots, *metadata)
	if err != nil {
		return err
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.CharLimit = 64

	m := browseModel{
		spotsPath:      rt.cfg.SpotsPath,
		metadataPath:   rt.cfg.MetadataPath,
		mode:           browseModeList,
		filterInput:    input,
		confirmFailRow: -1,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("browse requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(browseModel); ok {
		return fm.fatalErr
	}
	return nil
}

func (m browseModel) Init() tea.Cmd {
	return loadBrowseRowsCmd(m.spotsPath, m.metadataPath)
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case browseLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.rows = msg.rows
		m.applyFilter()
		return m, nil
	case browseFailMsg:
		m.mode = browseModeList
		m.confirmFailRow = -1
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, loadBrowseRowsCmd(m.spotsPath, m.metadataPath)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case browseModeList:
		return m.updateList(keyMsg)
	case browseModeFilter:
		return m.updateFilter(keyMsg)
	case browseModeFailConfirm:
		return m.updateFailConfirm(keyMsg)
	default:
		return m, nil
	}
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil
	case "r":
		m.statusMessage = ""
		return m, loadBrowseRowsCmd(m.spotsPath, m.metadataPath)
	case "/":
		m.mode = browseModeFilter
		m.filterInput.SetValue(m.filter)
		m.filterInput.CursorEnd()
		m.filterInput.Focus()
		return m, nil
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.applyFilter()
			m.statusMessage = "filter cleared"
		}
		return m, nil
	case "f":
		row, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		if row.Entry == nil || row.Entry.Status != model.StatusGenerating {
			m.statusMessage = "only generating entries can be marked failed"
			return m, nil
		}
		m.mode = browseModeFailConfirm
		m.confirmFailRow = m.visible[m.cursor]
		return m, nil
	}
	return m, nil
}

func (m browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = browseModeList
		m.filterInput.Blur()
		return m, nil
	case "enter":
		m.filter = strings.TrimSpace(m.filterInput.Value())
		m.filterInput.Blur()
		m.mode = browseModeList
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m browseModel) updateFailConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = browseModeList
		m.confirmFailRow = -1
		m.statusMessage = "mark failed cancelled"
		return m, nil
	case "y", "enter":
		if m.confirmFailRow < 0 || m.confirmFailRow >= len(m.rows) {
			m.mode = browseModeList
			m.confirmFailRow = -1
			return m, nil
		}
		row := m.rows[m.confirmFailRow]
		return m, markRowFailedCmd(m.metadataPath, row.Spot.ID, row.Era.ID)
	}
	return m, nil
}

// applyFilter recomputes the visible row indexes and keeps the cursor in
// bounds.
func (m *browseModel) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter))
	m.visible = m.visible[:0]
	for i, row := range m.rows {
		if needle == "" || browseRowMatches(row, needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = maxInt(len(m.visible)-1, 0)
	}
}

func browseRowMatches(row browseRow, needle string) bool {
	for _, hay := range []string{row.Spot.ID, row.Spot.Name, row.Era.ID, row.Era.Title} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	if row.Entry != nil && strings.Contains(strings.ToLower(row.Entry.Status), needle) {
		return true
	}
	return false
}

func (m browseModel) selectedRow() (browseRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return browseRow{}, false
	}
	return m.rows[m.visible[m.cursor]], true
}

func (m browseModel) View() string {
	if m.fatalErr != nil {
		return browseErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}
	if m.mode == browseModeFailConfirm {
		return m.viewFailConfirm()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	header := browseTitleStyle.Render("timelens browse") + "\n" +
		browseMutedStyle.Render("up/down: move | /: filter | f: mark stuck entry failed | r: refresh | q: quit")

	if m.width < 90 {
		list := m.renderListPanel(m.width)
		details := m.renderDetailsPanel(m.width)
		body := lipgloss.JoinVertical(lipgloss.Left, list, details)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
	}

	leftW := clampInt(m.width/2, 34, 60)
	rightW := m.width - leftW - 1
	list := m.renderListPanel(leftW)
	details := m.renderDetailsPanel(rightW)
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, details)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
}

func (m browseModel) renderListPanel(width int) string {
	total := len(m.visible)
	maxRows := clampInt(m.height-10, 4, 24)
	start, end := listWindow(total, m.cursor, maxRows)

	lines := make([]string, 0, maxRows+2)
	if total == 0 {
		if m.filter != "" {
			lines = append(lines, browseMutedStyle.Render("No eras match '"+m.filter+"'."))
		} else {
			lines = append(lines, browseMutedStyle.Render("No eras in the spots document."))
		}
	}
	if start > 0 {
		lines = append(lines, browseMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		row := m.rows[m.visible[i]]
		line := fmt.Sprintf("[%s] %s / %s", browseStatusMark(row.Entry), row.Spot.ID, row.Era.ID)
		line = truncateRunes(line, maxInt(width-6, 10))
		if i == m.cursor {
			line = browseSelStyle.Width(maxInt(width-4, 6)).Render(line)
		}
		lines = append(lines, line)
	}
	if end < total {
		lines = append(lines, browseMutedStyle.Render("..."))
	}

	return browsePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m browseModel) renderDetailsPanel(width int) string {
	lines := []string{}
	row, ok := m.selectedRow()
	if !ok {
		lines = append(lines, "No era selected")
	} else {
		lines = append(lines, "Era Details")
		lines = append(lines, "")
		lines = append(lines, kv("spot", row.Spot.Name+" ("+row.Spot.ID+")"))
		lines = append(lines, kv("era", row.Era.Title+" ("+row.Era.ID+")"))
		lines = append(lines, kv("years", formatEraYears(row.Era)))
		if row.Entry == nil {
			lines = append(lines, kv("status", "missing (never generated)"))
		} else {
			lines = append(lines, kv("status", row.Entry.Status))
			lines = append(lines, kv("local_path", defaultIfEmpty(row.Entry.LocalPath, "(none)")))
			lines = append(lines, kv("task_id", defaultIfEmpty(row.Entry.TaskID, "(none)")))
			lines = append(lines, kv("created_at", row.Entry.CreatedAt))
			if row.Entry.CompletedAt != "" {
				lines = append(lines, kv("completed_at", row.Entry.CompletedAt))
			}
			if row.Entry.R2URL != "" {
				lines = append(lines, kv("public_url", row.Entry.R2URL))
			}
			if row.Entry.Error != "" {
				lines = append(lines, kv("error", row.Entry.Error))
			}
		}
		lines = append(lines, "")
		prompt := strings.TrimSpace(row.Era.WanPrompt)
		if prompt == "" {
			prompt = strings.TrimSpace(row.Era.Description)
		}
		lines = append(lines, kv("prompt", prompt))
	}

	for i := range lines {
		lines[i] = wrapOrTrim(lines[i], maxInt(width-6, 12))
	}
	return browsePanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m browseModel) renderStatusLine(width int) string {
	if m.mode == browseModeFilter {
		return m.filterInput.View()
	}
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		if m.filter != "" {
			msg = fmt.Sprintf("filter: %s (%d/%d eras, esc to clear)", m.filter, len(m.visible), len(m.rows))
		} else {
			msg = fmt.Sprintf("%d eras", len(m.rows))
		}
	}
	style := browseMutedStyle
	if strings.HasPrefix(strings.ToLower(msg), "error:") {
		style = browseErrorStyle
	} else if strings.HasPrefix(strings.ToLower(msg), "marked") {
		style = browseOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}

func (m browseModel) viewFailConfirm() string {
	label := ""
	if m.confirmFailRow >= 0 && m.confirmFailRow < len(m.rows) {
		row := m.rows[m.confirmFailRow]
		label = row.Spot.ID + "/" + row.Era.ID
	}
	text := fmt.Sprintf(
		"Mark '%s' as failed?\n\nThe record keeps its prompt and task id,\nso retry-failed can pick it up.\n\nPress y or Enter to confirm, n or Esc to cancel.",
		label,
	)
	boxW := clampInt(m.width-8, 36, 80)
	boxH := clampInt(m.height-6, 9, 14)
	panel := browsePanelStyle.Width(boxW).Height(boxH).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func browseStatusMark(entry *model.VideoMetadataEntry) string {
	if entry == nil {
		return " "
	}
	switch entry.Status {
	case model.StatusReady:
		return "✓"
	case model.StatusGenerating:
		return "~"
	case model.StatusFailed:
		return "✗"
	default:
		return "."
	}
}

func formatEraYears(era model.Era) string {
	if era.YearEnd == nil {
		return fmt.Sprintf("%d - present", era.YearStart)
	}
	return fmt.Sprintf("%d - %s", era.YearStart, strconv.Itoa(*era.YearEnd))
}

func loadBrowseRowsCmd(spotsPath, metadataPath string) tea.Cmd {
	return func() tea.Msg {
		cat, err := catalog.Load(spotsPath)
		if err != nil {
			return browseLoadedMsg{err: err}
		}
		store := metastore.New(metadataPath)
		entries, err := store.GetAll()
		if err != nil {
			return browseLoadedMsg{err: err}
		}

		byKey := make(map[string]model.VideoMetadataEntry, len(entries))
		for _, e := range entries {
			byKey[e.SpotID+"\x00"+e.EraID] = e
		}

		var rows []browseRow
		for _, pair := range cat.Pairs() {
			row := browseRow{Spot: pair.Spot, Era: pair.Era}
			if e, ok := byKey[pair.Spot.ID+"\x00"+pair.Era.ID]; ok {
				entry := e
				row.Entry = &entry
			}
			rows = append(rows, row)
		}
		return browseLoadedMsg{rows: rows}
	}
}

func markRowFailedCmd(metadataPath, spotID, eraID string) tea.Cmd {
	return func() tea.Msg {
		store := metastore.New(metadataPath)
		err := store.MarkFailed(spotID, eraID, "manually marked failed from browse view")
		if err != nil {
			return browseFailMsg{err: err}
		}
		return browseFailMsg{message: fmt.Sprintf("marked %s/%s failed", spotID, eraID)}
	}
}
