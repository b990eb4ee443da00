package charts

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/logging"
)

func TestParseChartError(t *testing.T) {
	stderr := "Traceback (most recent call last):\n  File ...\nCHART_ERROR: NameError: name 'mticker' is not defined\n"
	ee := parseChartError(stderr)
	if ee == nil {
		t.Fatal("expected an ExecError")
	}
	if ee.Type != "NameError" || ee.Message != "name 'mticker' is not defined" {
		t.Fatalf("unexpected parse: %+v", ee)
	}
	if Classify("", ee.Message) != FailureMissingTickerAlias {
		t.Fatal("parsed message should classify as missing ticker alias")
	}

	ee = parseChartError("CHART_ERROR: 'fancy' is not a valid package style\n")
	if ee == nil || ee.Type != "" || !strings.Contains(ee.Message, "not a valid package style") {
		t.Fatalf("untyped marker misparsed: %+v", ee)
	}

	if parseChartError("Killed\n") != nil {
		t.Fatal("no marker must yield nil")
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 5}
	n, err := b.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("write = %d, %v", n, err)
	}
	n, _ = b.Write([]byte("defgh"))
	if n != 5 {
		t.Fatalf("writer must report full length, got %d", n)
	}
	if b.String() != "abcde" {
		t.Fatalf("buffer = %q", b.String())
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b | c" {
		t.Fatalf("lastLines = %q", got)
	}
}

// requirePython skips unless python3 with pandas and matplotlib is installed.
func requirePython(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	py, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	if err := exec.Command(py, "-c", "import pandas, matplotlib").Run(); err != nil {
		t.Skip("pandas/matplotlib not installed")
	}
	return py
}

func TestPythonRunnerEndToEnd(t *testing.T) {
	py := requirePython(t)
	dir := t.TempDir()
	r := &PythonRunner{Python: py, WorkDir: dir, Timeout: time.Minute}
	e := &Executor{Runner: r, ChartDir: "charts", BaseDir: dir, MaxAttempts: 2, Log: logging.Discard()}

	// mticker is used without an import; the repair loop adds it
	code := strings.Join([]string{
		"fig, ax = plt.subplots()",
		"ax.plot(range(len(df)), df['price'])",
		"ax.yaxis.set_major_formatter(mticker.StrMethodFormatter('{x:,.0f}'))",
		"plt.savefig('charts/x_price.png')",
	}, "\n")
	got, err := e.Execute(context.Background(), code, priceData)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, got)); err != nil {
		t.Fatalf("image not written: %v", err)
	}

	_, err = e.Execute(context.Background(), "df['volume'].plot()\nplt.savefig('charts/x_vol.png')", priceData)
	var ue *UnrecoverableError
	if !errors.As(err, &ue) || ue.Category != FailureUnknown {
		t.Fatalf("expected unknown failure, got %v", err)
	}
}

func TestPythonRunnerTimeout(t *testing.T) {
	py := requirePython(t)
	r := &PythonRunner{Python: py, WorkDir: t.TempDir(), Timeout: 2 * time.Second}
	err := r.Run(context.Background(), "import time\ntime.sleep(30)", priceData)
	if !errors.Is(err, ErrExecTimeout) {
		t.Fatalf("expected ErrExecTimeout, got %v", err)
	}
}
