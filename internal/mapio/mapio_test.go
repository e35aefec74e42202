package mapio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadMapParsesHeaderAndRows(t *testing.T) {
	path := writeTempFile(t, "map.txt", "height 2\nwidth 3\ntype octile\nmap\n..@\nG.T\n")

	grid, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if grid.Rows != 2 || grid.Cols != 3 {
		t.Fatalf("grid dims = %dx%d, want 2x3", grid.Rows, grid.Cols)
	}
	if grid.IsObstacle(grid.CellAt(0, 0)) {
		t.Errorf("cell (0,0) should be traversable")
	}
	if !grid.IsObstacle(grid.CellAt(0, 2)) {
		t.Errorf("cell (0,2) should be an obstacle")
	}
	if !grid.IsObstacle(grid.CellAt(1, 2)) {
		t.Errorf("cell (1,2) 'T' should be an obstacle")
	}
	if grid.IsObstacle(grid.CellAt(1, 0)) {
		t.Errorf("cell (1,0) 'G' should be traversable")
	}
}

func TestLoadMapRejectsHeightMismatch(t *testing.T) {
	path := writeTempFile(t, "map.txt", "height 3\nwidth 3\nmap\n...\n...\n")
	if _, err := LoadMap(path); err == nil {
		t.Errorf("expected an error for a row count mismatch")
	}
}

func TestLoadMapRejectsUnrecognizedSymbol(t *testing.T) {
	path := writeTempFile(t, "map.txt", "height 1\nwidth 1\nmap\nX\n")
	if _, err := LoadMap(path); err == nil {
		t.Errorf("expected an error for an unrecognized symbol")
	}
}

func TestLoadScenarioParsesRecordsAndSwapsAxes(t *testing.T) {
	mapPath := writeTempFile(t, "map.txt", "height 3\nwidth 3\nmap\n...\n...\n...\n")
	grid, err := LoadMap(mapPath)
	if err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	scenPath := writeTempFile(t, "scen.txt",
		"version 1\n1\tmap.txt\t3\t3\t0\t0\t2\t2\t2.82842712\n1\tmap.txt\t3\t3\t1\t0\t0\t1\t1.41421356\n")

	specs, err := LoadScenario(scenPath, grid, 0)
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}

	// sx=0,sy=0 -> CellAt(row=sy, col=sx) = CellAt(0,0)
	if specs[0].Start != grid.CellAt(0, 0) {
		t.Errorf("specs[0].Start = %v, want CellAt(0,0)", specs[0].Start)
	}
	if specs[0].Goal != grid.CellAt(2, 2) {
		t.Errorf("specs[0].Goal = %v, want CellAt(2,2)", specs[0].Goal)
	}
	if specs[0].OptimalLength != 2.82842712 {
		t.Errorf("specs[0].OptimalLength = %v, want 2.82842712", specs[0].OptimalLength)
	}
}

func TestLoadScenarioRespectsCount(t *testing.T) {
	mapPath := writeTempFile(t, "map.txt", "height 3\nwidth 3\nmap\n...\n...\n...\n")
	grid, _ := LoadMap(mapPath)

	scenPath := writeTempFile(t, "scen.txt",
		"version 1\n1\tmap.txt\t3\t3\t0\t0\t1\t1\t1\n1\tmap.txt\t3\t3\t1\t1\t2\t2\t1\n")

	specs, err := LoadScenario(scenPath, grid, 1)
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if len(specs) != 1 {
		t.Errorf("len(specs) = %d, want 1", len(specs))
	}
}

func TestLoadScenarioRejectsInsufficientRecords(t *testing.T) {
	mapPath := writeTempFile(t, "map.txt", "height 3\nwidth 3\nmap\n...\n...\n...\n")
	grid, _ := LoadMap(mapPath)

	scenPath := writeTempFile(t, "scen.txt", "version 1\n1\tmap.txt\t3\t3\t0\t0\t1\t1\t1\n")

	if _, err := LoadScenario(scenPath, grid, 5); err == nil {
		t.Errorf("expected an error requesting more records than present")
	}
}

func TestFormatPath(t *testing.T) {
	grid := gridmap.NewGrid(2, 2)
	path := []gridmap.Cell{grid.CellAt(0, 0), grid.CellAt(0, 1), grid.CellAt(1, 1)}

	got := FormatPath(grid, 3, path)
	want := "Agent 3: (0,0) -> (0,1) -> (1,1)"
	if got != want {
		t.Errorf("FormatPath() = %q, want %q", got, want)
	}
}
