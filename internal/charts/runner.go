package charts

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Runner executes chart code against a dataset. A Python exception raised by
// the code must come back as *ExecError; anything else is an infrastructure
// failure and is not repaired.
type Runner interface {
	Run(ctx context.Context, code string, ds *dataset.Dataset) error
}

//go:embed harness.py
var harnessSource []byte

// ErrExecTimeout is returned when the chart process exceeds its deadline.
var ErrExecTimeout = errors.New("chart execution timed out")

const chartErrorPrefix = "CHART_ERROR: "

// harnessErrorExit is the exit status the harness uses for a raised exception.
const harnessErrorExit = 3

// PythonRunner runs chart code in a separate Python process with a scrubbed
// environment, a private HOME, rlimits and a wall-clock deadline.
type PythonRunner struct {
	Python     string        // interpreter, default python3
	WorkDir    string        // process working directory; relative chart paths resolve here
	Timeout    time.Duration // wall clock per run; 0 means no extra deadline
	CPUSeconds int
	MemoryMB   int
	MaxStderr  int // bytes of stderr kept, default 16 KiB
}

// Run writes the dataset and code to a private temp dir and executes the harness.
func (r *PythonRunner) Run(ctx context.Context, code string, ds *dataset.Dataset) error {
	tmp, err := os.MkdirTemp("", "chartloom-exec-*")
	if err != nil {
		return fmt.Errorf("exec temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	dataPath := filepath.Join(tmp, "data.csv")
	codePath := filepath.Join(tmp, "chart.py")
	harnessPath := filepath.Join(tmp, "harness.py")
	if err := ds.WriteCSV(dataPath); err != nil {
		return err
	}
	if err := os.WriteFile(codePath, []byte(code), 0o600); err != nil {
		return fmt.Errorf("write chart code: %w", err)
	}
	if err := os.WriteFile(harnessPath, harnessSource, 0o600); err != nil {
		return fmt.Errorf("write harness: %w", err)
	}
	mplDir := filepath.Join(tmp, "mpl")
	if err := os.Mkdir(mplDir, 0o700); err != nil {
		return fmt.Errorf("mpl config dir: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}
	cmd := exec.CommandContext(ctx, python, harnessPath, dataPath, codePath)
	cmd.Dir = r.WorkDir
	cmd.Env = r.env(tmp, mplDir)
	cmd.WaitDelay = 2 * time.Second
	stderr := &cappedBuffer{limit: r.MaxStderr}
	if stderr.limit <= 0 {
		stderr.limit = 16 << 10
	}
	cmd.Stderr = stderr

	runErr := cmd.Run()
	if runErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrExecTimeout, r.Timeout)
		}
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == harnessErrorExit {
		if ee := parseChartError(stderr.String()); ee != nil {
			return ee
		}
	}
	return fmt.Errorf("python harness: %w: %s", runErr, lastLines(stderr.String(), 5))
}

func (r *PythonRunner) env(home, mplDir string) []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + home,
		"TMPDIR=" + home,
		"MPLBACKEND=Agg",
		"MPLCONFIGDIR=" + mplDir,
		"PYTHONIOENCODING=utf-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONNOUSERSITE=1",
		"CHARTLOOM_CPU_SEC=" + strconv.Itoa(r.CPUSeconds),
		"CHARTLOOM_MEM_MB=" + strconv.Itoa(r.MemoryMB),
	}
	// virtualenvs are located through these
	for _, k := range []string{"VIRTUAL_ENV", "PYTHONPATH", "LANG"} {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// parseChartError finds the harness marker line in stderr.
func parseChartError(stderr string) *ExecError {
	sc := bufio.NewScanner(strings.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, chartErrorPrefix) {
			continue
		}
		rest := strings.TrimPrefix(line, chartErrorPrefix)
		ee := &ExecError{Message: rest, Stderr: stderr}
		if typ, msg, ok := strings.Cut(rest, ": "); ok && !strings.ContainsAny(typ, " '\"") {
			ee.Type, ee.Message = typ, msg
		}
		return ee
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// cappedBuffer keeps at most limit bytes and drops the rest.
type cappedBuffer struct {
	buf   []byte
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - len(c.buf); room > 0 {
		if len(p) > room {
			c.buf = append(c.buf, p[:room]...)
		} else {
			c.buf = append(c.buf, p...)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return string(c.buf) }
