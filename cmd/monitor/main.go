package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"mazerace/internal/domain"
)

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8095", "mazerace base URL")
	interval := flag.Duration("interval", 500*time.Millisecond, "refresh interval")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	if err := waitHealth(c, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "mazerace health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()

	mazeView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	mazeView.SetTitle("Maze").SetBorder(true)

	agentsTable := tview.NewTable().
		SetBorders(false)
	agentsTable.SetTitle("Agents").SetBorder(true)

	raceTable := tview.NewTable().
		SetBorders(false)
	raceTable.SetTitle("Race").SetBorder(true)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | shortcuts: F10 quit, F5 refresh, n new maze, r restart race, +/- race speed",
		c.baseURL,
	))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(agentsTable, 0, 1, false).
		AddItem(raceTable, 0, 1, false)

	mainLayout := tview.NewFlex().
		AddItem(mazeView, 0, 2, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(statusView, 3, 0, false)

	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	refresh := func() {
		state, err := c.state()
		if err != nil {
			setStatusAsync(fmt.Sprintf("load state error: %v", err))
			return
		}
		mazeText, err := c.maze()
		if err != nil {
			setStatusAsync(fmt.Sprintf("load maze error: %v", err))
			return
		}
		rendered := overlayAgents(mazeText, state.Agents)

		app.QueueUpdateDraw(func() {
			mazeView.SetText(rendered)
			renderAgents(agentsTable, state)
			renderRace(raceTable, state)
			statusView.SetText(fmt.Sprintf(
				"run=%s phase=%s steps=%d/%d optimal=%d speed=%dms%s",
				shortID(state.RunID), state.Phase, state.StepsTaken, state.StepBudget,
				state.OptimalLength, state.RaceSpeedMS, errSuffix(state.LastError),
			))
		})
	}

	go func() {
		refresh()
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			refresh()
		}
	}()

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyF10:
			app.Stop()
			return nil
		case event.Key() == tcell.KeyF5:
			go refresh()
			return nil
		case event.Rune() == 'n':
			go func() {
				if err := c.command("new-maze", nil); err != nil {
					setStatusAsync(fmt.Sprintf("new maze failed: %v", err))
					return
				}
				refresh()
			}()
			return nil
		case event.Rune() == 'r':
			go func() {
				if err := c.command("restart-race", nil); err != nil {
					setStatusAsync(fmt.Sprintf("restart race failed: %v", err))
					return
				}
				refresh()
			}()
			return nil
		case event.Rune() == '+' || event.Rune() == '-':
			delta := 20
			if event.Rune() == '+' {
				delta = -20
			}
			go func() {
				state, err := c.state()
				if err != nil {
					setStatusAsync(fmt.Sprintf("race speed read failed: %v", err))
					return
				}
				next := state.RaceSpeedMS + delta
				if next < 20 {
					next = 20
				}
				if err := c.command("race-speed", map[string]int{"speed_ms": next}); err != nil {
					setStatusAsync(fmt.Sprintf("race speed update failed: %v", err))
					return
				}
				refresh()
			}()
			return nil
		}
		return event
	})

	if err := app.SetRoot(root, true).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor error: %v\n", err)
		os.Exit(1)
	}
}

func renderAgents(table *tview.Table, state domain.StateSnapshot) {
	table.Clear()
	headers := []string{"Agent", "Pos", "Eps", "Goals", "Reward+", "Cells"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell("[::b]"+h).SetSelectable(false))
	}
	for i, a := range state.Agents {
		table.SetCell(i+1, 0, tview.NewTableCell(fmt.Sprintf("[%s]%s[-]", colorTag(a.Color), a.Name)))
		table.SetCell(i+1, 1, tview.NewTableCell(fmt.Sprintf("(%d,%d)", a.Position.Row, a.Position.Col)))
		table.SetCell(i+1, 2, tview.NewTableCell(fmt.Sprintf("%.3f", a.Exploration)))
		table.SetCell(i+1, 3, tview.NewTableCell(fmt.Sprintf("%d", a.GoalsReached)))
		table.SetCell(i+1, 4, tview.NewTableCell(fmt.Sprintf("%.0f", a.PositiveReward)))
		table.SetCell(i+1, 5, tview.NewTableCell(fmt.Sprintf("%d", a.CellsExplored)))
	}
}

func renderRace(table *tview.Table, state domain.StateSnapshot) {
	table.Clear()
	headers := []string{"Rank", "Agent", "Steps", "Finished", "Efficiency"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell("[::b]"+h).SetSelectable(false))
	}
	if len(state.Race) == 0 {
		table.SetCell(1, 0, tview.NewTableCell("waiting for race..."))
		return
	}
	for i, r := range state.Race {
		finished := "yes"
		efficiency := fmt.Sprintf("%.1f%%", r.Efficiency)
		if !r.Finished {
			finished = "DNF"
			efficiency = "-"
		}
		table.SetCell(i+1, 0, tview.NewTableCell(fmt.Sprintf("%d", r.Rank)))
		table.SetCell(i+1, 1, tview.NewTableCell(r.Agent))
		table.SetCell(i+1, 2, tview.NewTableCell(fmt.Sprintf("%d", r.Steps)))
		table.SetCell(i+1, 3, tview.NewTableCell(finished))
		table.SetCell(i+1, 4, tview.NewTableCell(efficiency))
	}
}

// overlayAgents marks each agent's position on the ASCII maze. In the
// renderer a cell's row r maps to text line 1+2r and column c to
// character 2+4c.
func overlayAgents(mazeText string, agents []domain.AgentSnapshot) string {
	lines := strings.Split(mazeText, "\n")
	for _, a := range agents {
		line := 1 + 2*a.Position.Row
		col := 2 + 4*a.Position.Col
		if line < 0 || line >= len(lines) || col >= len(lines[line]) {
			continue
		}
		marker := "?"
		if a.Name != "" {
			marker = strings.ToUpper(a.Name[:1])
		}
		raw := lines[line]
		lines[line] = raw[:col] + fmt.Sprintf("[%s]%s[-]", colorTag(a.Color), marker) + raw[col+1:]
	}
	return strings.Join(lines, "\n")
}

func colorTag(color string) string {
	if color == "" {
		return "white"
	}
	return color
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func errSuffix(lastError string) string {
	if lastError == "" {
		return ""
	}
	return " | error: " + lastError
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := c.health(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func (c *client) health() error {
	resp, err := c.http.Get(c.baseURL + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) state() (domain.StateSnapshot, error) {
	var state domain.StateSnapshot
	if err := c.getJSON("/api/state", &state); err != nil {
		return domain.StateSnapshot{}, err
	}
	return state, nil
}

func (c *client) maze() (string, error) {
	var payload struct {
		Maze string `json:"maze"`
	}
	if err := c.getJSON("/api/maze", &payload); err != nil {
		return "", err
	}
	return payload.Maze, nil
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) command(name string, body any) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	resp, err := c.http.Post(c.baseURL+"/api/commands/"+name, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
