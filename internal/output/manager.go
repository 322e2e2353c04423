// Package output owns the terminal: a Manager multiplexes the progress of
// concurrent download jobs into one self-redrawing status block, then prints
// a summary table once everything settles. All drawing happens on a single
// goroutine; job workers only mutate state under the manager's lock.
package output

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rauko1753/filch/internal/utils"
)

type jobLine struct {
	id        int
	label     string
	status    string
	message   string
	stream    []string
	done      bool
	err       error
	startedAt time.Time
	updatedAt time.Time
}

type ErrorReport struct {
	Label string
	Err   error
	At    time.Time
}

type Manager struct {
	mu        sync.RWMutex
	jobs      map[int]*jobLine
	nextID    int
	errors    []ErrorReport
	maxStream int

	drawn  int // lines currently on screen
	tick   time.Duration
	done   chan struct{}
	pause  chan bool
	waitWg sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		jobs:      make(map[int]*jobLine),
		maxStream: 10,
		tick:      250 * time.Millisecond,
		done:      make(chan struct{}),
		pause:     make(chan bool),
	}
}

// RegisterJob adds a job line to the display and returns its handle.
func (m *Manager) RegisterJob(label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now()
	m.jobs[m.nextID] = &jobLine{
		id:        m.nextID,
		label:     label,
		status:    "pending",
		startedAt: now,
		updatedAt: now,
	}
	return m.nextID
}

func (m *Manager) SetStatus(id int, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.status = status
		j.updatedAt = time.Now()
	}
}

func (m *Manager) SetMessage(id int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.message = message
		j.updatedAt = time.Now()
	}
}

// AddStreamLine appends auxiliary output below the job's status line, capped
// to the most recent lines. Long lines wrap to the terminal width.
func (m *Manager) AddStreamLine(id int, line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.stream = append(j.stream, wrapText(line, basePadding+4)...)
	if len(j.stream) > m.maxStream {
		j.stream = j.stream[len(j.stream)-m.maxStream:]
	}
	j.updatedAt = time.Now()
}

// SetProgress replaces the job's stream with a single live transfer line.
// With an unknown total there is no bar or percentage, just the byte count.
func (m *Manager) SetProgress(id int, received, total int64, speed float64, eta time.Duration) {
	var line string
	counts := utils.FormatBytes(uint64(received))
	if total > 0 {
		counts += " / " + utils.FormatBytes(uint64(total))
		line = ProgressBar(received, total, 30) + debugStyle.Render(counts)
	} else {
		line = debugStyle.Render(counts)
	}
	line += " " + StyleSymbols["bullet"] + " " + debugStyle.Render(utils.FormatBytes(uint64(speed))+"/s")
	if eta > 0 {
		line += " " + StyleSymbols["bullet"] + " " + debugStyle.Render("eta "+eta.Round(time.Second).String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.stream = []string{line}
		j.updatedAt = time.Now()
	}
}

// Complete marks the job successful and collapses it to one line.
func (m *Manager) Complete(id int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	if message == "" {
		message = fmt.Sprintf("Completed %s", j.label)
	}
	j.stream = nil
	j.message = message
	j.status = "success"
	j.done = true
	j.updatedAt = time.Now()
}

func (m *Manager) ReportError(id int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.stream = nil
	j.status = "error"
	j.err = err
	j.done = true
	j.updatedAt = time.Now()
	m.errors = append(m.errors, ErrorReport{Label: j.label, Err: err, At: time.Now()})
}

// Pause stops redrawing and clears the status block so an interactive prompt
// can own the terminal. Call Resume when the prompt is finished.
func (m *Manager) Pause()  { m.pause <- true }
func (m *Manager) Resume() { m.pause <- false }

func (m *Manager) StartDisplay() {
	m.waitWg.Add(1)
	go func() {
		defer m.waitWg.Done()
		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()
		paused := false
		for {
			select {
			case <-ticker.C:
				if !paused {
					m.redraw()
				}
			case p := <-m.pause:
				paused = p
				if p {
					m.clear()
				}
			case <-m.done:
				m.redraw()
				m.showSummary()
				return
			}
		}
	}()
}

// StopDisplay finishes the final redraw and prints the summary. It blocks
// until the display goroutine exits, so callers can print freely afterwards.
func (m *Manager) StopDisplay() {
	close(m.done)
	m.waitWg.Wait()
}

func (m *Manager) clear() {
	if m.drawn > 0 {
		fmt.Printf("\033[%dA\033[J", m.drawn)
		m.drawn = 0
	}
}

func (m *Manager) ordered() []*jobLine {
	all := make([]*jobLine, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].id < all[k].id })
	return all
}

func styleFor(status string) lipgloss.Style {
	switch status {
	case "success":
		return successStyle
	case "error":
		return errorStyle
	case "warning":
		return warningStyle
	default:
		return pendingStyle
	}
}

func statusGlyph(status string) string {
	switch status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "warning":
		return warningStyle.Render(StyleSymbols["warning"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) redraw() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	available := getTerminalHeight() - 3
	m.clear()

	indent := strings.Repeat(" ", basePadding)
	streamIndent := strings.Repeat(" ", basePadding+4)
	lines := 0

	var active, waiting, finished []*jobLine
	for _, j := range m.ordered() {
		switch {
		case j.done:
			finished = append(finished, j)
		case j.status == "pending" && j.message == "" && len(j.stream) == 0:
			waiting = append(waiting, j)
		default:
			active = append(active, j)
		}
	}

	// keep the live jobs visible, trim old completed ones first
	needed := len(finished)
	for _, j := range active {
		needed += 1 + len(j.stream)
	}
	needed += len(waiting)
	if needed > available && len(finished) > 0 {
		keep := max(0, available-(needed-len(finished)))
		if len(finished) > keep {
			finished = finished[len(finished)-keep:]
		}
	}

	for _, j := range finished {
		if lines >= available {
			break
		}
		took := j.updatedAt.Sub(j.startedAt).Round(time.Second)
		msg := j.message
		if j.err != nil {
			msg = j.err.Error()
		}
		fmt.Printf("%s%s %s %s\n", indent, statusGlyph(j.status), debugStyle.Render(took.String()), styleFor(j.status).Render(msg))
		lines++
	}
	for _, j := range active {
		if lines >= available {
			break
		}
		elapsed := time.Since(j.startedAt).Round(time.Second)
		fmt.Printf("%s%s %s %s\n", indent, statusGlyph(j.status), debugStyle.Render(elapsed.String()), styleFor(j.status).Render(j.message))
		lines++
		for _, s := range j.stream {
			if lines >= available {
				break
			}
			fmt.Printf("%s%s\n", streamIndent, streamStyle.Render(s))
			lines++
		}
	}
	for _, j := range waiting {
		if lines >= available {
			break
		}
		fmt.Printf("%s%s %s\n", indent, statusGlyph(j.status), pendingStyle.Render("Waiting..."))
		lines++
	}
	m.drawn = lines
}

func (m *Manager) showSummary() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var success int
	tbl := table.New().Headers("", "JOB", "TIME", "RESULT")
	tbl = tbl.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return lipgloss.NewStyle().Bold(true).Align(lipgloss.Center).Padding(0, 1)
		}
		return lipgloss.NewStyle().Padding(0, 1)
	})
	for _, j := range m.ordered() {
		result := j.message
		if j.err != nil {
			result = j.err.Error()
		}
		if j.status == "success" {
			success++
		}
		took := j.updatedAt.Sub(j.startedAt).Round(time.Second)
		tbl.Row(statusGlyph(j.status), j.label, took.String(), result)
	}

	fmt.Println()
	fmt.Println(tbl.String())
	fmt.Println(strings.Repeat(" ", basePadding) + success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.jobs))))
	if len(m.errors) > 0 {
		fmt.Println(strings.Repeat(" ", basePadding) + errorStyle.Render(fmt.Sprintf("Failed %d of %d", len(m.errors), len(m.jobs))))
		fmt.Println()
		fmt.Println(strings.Repeat(" ", basePadding) + errorStyle.Bold(true).Render("Errors:"))
		for i, e := range m.errors {
			fmt.Printf("%s%s %s %s\n",
				strings.Repeat(" ", basePadding+2),
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", e.At.Format("15:04:05"))),
				errorStyle.Render(e.Label))
			fmt.Printf("%s%s\n", strings.Repeat(" ", basePadding+4), errorStyle.Render(e.Err.Error()))
		}
	}
	fmt.Println()
}
