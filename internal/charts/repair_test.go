package charts

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code, msg string
		want      FailureCategory
	}{
		{"sns.barplot(df)", "No module named 'seaborn'", FailureMissingSeaborn},
		{"ax.yaxis.set_major_formatter(mticker.FuncFormatter(f))", "name 'mticker' is not defined", FailureMissingTickerAlias},
		{"sns.set_style('fancy')", "fancy is not a valid package style, path of style file, URL of style file, or library style name", FailureInvalidStyle},
		{"fig = figure()", "name 'plt' is not defined", FailureMissingPlotAlias},
		{"plt.plot(df['x'])", "name 'plt' is not defined", FailureUnknown},
		{"plt.plot(df['y'])", "KeyError: 'y'", FailureUnknown},
		{"x", "", FailureUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.code, c.msg); got != c.want {
			t.Errorf("Classify(%q, %q) = %s; want %s", c.code, c.msg, got, c.want)
		}
	}
}

func TestPatchTable(t *testing.T) {
	code := "sns.set_style(\"whitegrid2\")\nplt.savefig('charts/a.png')"
	want := map[FailureCategory]string{
		FailureMissingSeaborn:     "import seaborn as sns\n" + code,
		FailureMissingTickerAlias: "from matplotlib import ticker as mticker\n" + code,
		FailureInvalidStyle:       "sns.set_style('darkgrid')\nplt.savefig('charts/a.png')",
		FailureMissingPlotAlias:   "import matplotlib.pyplot as plt\n" + code,
	}
	for cat, w := range want {
		p, ok := PatchFor(cat)
		if !ok {
			t.Fatalf("no patch for %s", cat)
		}
		if got := p(code); got != w {
			t.Errorf("patch %s:\n%q\nwant\n%q", cat, got, w)
		}
	}
	if _, ok := PatchFor(FailureUnknown); ok {
		t.Fatal("unknown failures must not have a patch")
	}
}

func TestNormalizeStyleLeavesOtherCallsAlone(t *testing.T) {
	code := "plt.style.use('ggplot')\nsns.set_style('white')\nsns.set_style('ticks')"
	got := NormalizeStyle(code)
	if strings.Count(got, "sns.set_style('darkgrid')") != 2 || !strings.Contains(got, "plt.style.use('ggplot')") {
		t.Fatalf("NormalizeStyle = %q", got)
	}
	if NormalizeStyle("no styles") != "no styles" {
		t.Fatal("code without style calls must be unchanged")
	}
}
