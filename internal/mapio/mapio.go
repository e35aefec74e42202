// Package mapio parses the two external file formats named in §6: the
// ASCII grid map format and the tab-delimited scenario format. Neither
// parser's internal algorithm is subject to the core correctness
// invariants; malformed input simply returns a wrapped Go error.
package mapio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
)

// LoadMap parses an ASCII grid map: header lines declaring "height",
// "width", and "map", followed by height rows of width characters
// where '.'/'G'/'S' are traversable and '@'/'T' are obstacles.
func LoadMap(path string) (*gridmap.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapio: opening map file %s: %w", path, err)
	}
	defer f.Close()

	var height, width int
	var rows []string
	sawMapHeader := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if !sawMapHeader {
			switch {
			case strings.HasPrefix(line, "height"):
				height, err = parseHeaderInt(line)
			case strings.HasPrefix(line, "width"):
				width, err = parseHeaderInt(line)
			case strings.HasPrefix(line, "type"):
				// octile/other type tags are accepted and ignored.
			case strings.HasPrefix(line, "map"):
				sawMapHeader = true
			}
			if err != nil {
				return nil, fmt.Errorf("mapio: parsing header %q in %s: %w", line, path, err)
			}
			continue
		}
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapio: reading map file %s: %w", path, err)
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("mapio: map file %s missing valid height/width header", path)
	}
	if len(rows) != height {
		return nil, fmt.Errorf("mapio: map file %s declares height %d but has %d map rows", path, height, len(rows))
	}

	grid := gridmap.NewGrid(height, width)
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("mapio: map file %s row %d has length %d, want %d", path, r, len(row), width)
		}
		for c, ch := range row {
			cell := grid.CellAt(r, c)
			switch ch {
			case '.', 'G', 'S':
				grid.SetObstacle(cell, false)
			case '@', 'T':
				grid.SetObstacle(cell, true)
			default:
				return nil, fmt.Errorf("mapio: map file %s row %d has unrecognized symbol %q", path, r, ch)
			}
		}
	}
	return grid, nil
}

func parseHeaderInt(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, fmt.Errorf("expected \"<key> <value>\", got %q", line)
	}
	return strconv.Atoi(fields[1])
}

// AgentSpec is one scenario-file record: a start and goal cell plus
// the optimal path length the benchmark author recorded for it.
type AgentSpec struct {
	Start, Goal   gridmap.Cell
	OptimalLength float64
}

// LoadScenario parses a tab-delimited scenario file and returns the
// first count records (or all of them, if count <= 0). Each record is
// "<bucket> <map> <W> <H> <sx> <sy> <gx> <gy> <optimal_length>"; the
// scenario file's own (sx,sy) column order is (col,row), matching the
// grid map's (row,col) convention once swapped here.
func LoadScenario(path string, grid *gridmap.Grid, count int) ([]AgentSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapio: opening scenario file %s: %w", path, err)
	}
	defer f.Close()

	var specs []AgentSpec
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "version") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 9 {
			return nil, fmt.Errorf("mapio: scenario file %s line %d has %d fields, want >= 9", path, lineNo, len(fields))
		}
		sx, err1 := strconv.Atoi(fields[4])
		sy, err2 := strconv.Atoi(fields[5])
		gx, err3 := strconv.Atoi(fields[6])
		gy, err4 := strconv.Atoi(fields[7])
		optLen, err5 := strconv.ParseFloat(fields[8], 64)
		if err := firstErr(err1, err2, err3, err4, err5); err != nil {
			return nil, fmt.Errorf("mapio: scenario file %s line %d: %w", path, lineNo, err)
		}

		start := grid.CellAt(sy, sx)
		goal := grid.CellAt(gy, gx)
		if start == -1 || goal == -1 {
			return nil, fmt.Errorf("mapio: scenario file %s line %d: start/goal out of bounds", path, lineNo)
		}
		specs = append(specs, AgentSpec{Start: start, Goal: goal, OptimalLength: optLen})
		if count > 0 && len(specs) >= count {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapio: reading scenario file %s: %w", path, err)
	}
	if count > 0 && len(specs) < count {
		return nil, fmt.Errorf("mapio: scenario file %s has only %d records, requested %d", path, len(specs), count)
	}
	return specs, nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// FormatPath renders a committed path in the §6 output format:
// "Agent <id>: (r0,c0) -> (r1,c1) -> ...".
func FormatPath(grid *gridmap.Grid, agentID int, path []gridmap.Cell) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent %d: ", agentID)
	for i, c := range path {
		if i > 0 {
			b.WriteString(" -> ")
		}
		row, col := grid.RowCol(c)
		fmt.Fprintf(&b, "(%d,%d)", row, col)
	}
	return b.String()
}
