package dataset

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// ColumnInfo is the inferred type and a few statistics for one column.
type ColumnInfo struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// numeric
	Min, Max, Mean float64
	Median, MAD    float64
	Outliers       int // values with a robust z-score above outlierZ
	// datetime
	First, Last time.Time
	// categorical
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Schema returns the inferred column information in column order.
func (d *Dataset) Schema() []ColumnInfo {
	out := make([]ColumnInfo, len(d.schema))
	copy(out, d.schema)
	return out
}

// categoricalMaxUnique bounds how many distinct short values still count as categories.
const categoricalMaxUnique = 50

func inferSchema(cols []string, rows [][]string) []ColumnInfo {
	out := make([]ColumnInfo, len(cols))
	for j, name := range cols {
		_, unit := splitUnits(name)
		info := ColumnInfo{Name: name, Unit: unit, Min: math.Inf(1), Max: math.Inf(-1)}
		var numCnt, dtCnt, txtCnt, n int
		var nums []float64
		cats := map[string]int{}
		longText := false
		for _, r := range rows {
			v := strings.TrimSpace(r[j])
			if v == "" {
				info.Missing++
				continue
			}
			info.NonNull++
			if strings.Contains(v, "%") && info.Unit == "" {
				info.Unit = "%"
			}
			if x, ok := parseNumeric(v); ok {
				numCnt++
				n++
				info.Min = math.Min(info.Min, x)
				info.Max = math.Max(info.Max, x)
				info.Mean += (x - info.Mean) / float64(n)
				nums = append(nums, x)
				continue
			}
			if t, ok := parseTimeMaybe(v); ok {
				dtCnt++
				if info.First.IsZero() || t.Before(info.First) {
					info.First = t
				}
				if t.After(info.Last) {
					info.Last = t
				}
				continue
			}
			txtCnt++
			if len(v) > 64 {
				longText = true
			}
			cats[v]++
		}
		// Decide kind by predominant parsed type
		switch {
		case numCnt >= dtCnt && numCnt >= txtCnt && numCnt > 0:
			info.Kind = KindNumeric
		case dtCnt >= txtCnt && dtCnt > 0:
			info.Kind = KindDatetime
		case txtCnt > 0 && !longText && len(cats) <= categoricalMaxUnique:
			info.Kind = KindCategorical
			info.Unique = len(cats)
			info.TopValues = topValues(cats, 5)
		case txtCnt > 0:
			info.Kind = KindText
			info.Unique = len(cats)
		default:
			info.Kind = KindUnknown
		}
		if info.Kind == KindNumeric {
			info.Median, info.MAD = medianMAD(nums)
			info.Outliers = countOutliers(nums, info.Median, info.MAD)
		} else {
			info.Min, info.Max, info.Mean = 0, 0, 0
		}
		out[j] = info
	}
	return out
}

// outlierZ is the robust z-score (|x-median| / (1.4826*MAD)) past which a
// value counts as an outlier.
const outlierZ = 3.5

func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	for i, v := range cp {
		cp[i] = math.Abs(v - median)
	}
	sort.Float64s(cp)
	return median, quantile(cp, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func countOutliers(vals []float64, median, mad float64) int {
	if mad == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(v-median)/(1.4826*mad) > outlierZ {
			n++
		}
	}
	return n
}

func topValues(cats map[string]int, k int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for v, c := range cats {
		tops = append(tops, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > k {
		tops = tops[:k]
	}
	return tops
}

// SchemaSummary renders one line per column for prompts.
func (d *Dataset) SchemaSummary() string {
	var b strings.Builder
	for _, c := range d.schema {
		name := c.Name
		if c.Unit != "" && !strings.Contains(name, c.Unit) {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %d)", name, c.Kind, c.NonNull, c.Missing)
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(&b, ", min %.4g, max %.4g, mean %.4g, median %.4g", c.Min, c.Max, c.Mean, c.Median)
			if c.Outliers > 0 {
				fmt.Fprintf(&b, ", outliers %d", c.Outliers)
			}
		case KindDatetime:
			fmt.Fprintf(&b, ", %s .. %s", c.First.Format("2006-01-02"), c.Last.Format("2006-01-02"))
		case KindCategorical:
			parts := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				parts[i] = fmt.Sprintf("%s(%d)", kv.Value, kv.Count)
			}
			fmt.Fprintf(&b, ", unique %d, top: %s", c.Unique, strings.Join(parts, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
		"2006-01", "01/2006",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric accepts plain, percent and locale-formatted numbers
// (1,234.5 / 1.234,5 / 1 234).
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	var dec rune
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		dec = ','
	case cpos >= 0 && dpos < 0 && strings.Count(raw, ",") == 1 && len(raw)-cpos-1 != 3:
		// 12,5 is a decimal; 1,234 is a thousands group
		dec = ','
	default:
		dec = '.'
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Giá (VND)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Volume [t]
	{regexp.MustCompile(`^(.*?)[_\s-]+(VND|USD|%|kg|t|m2)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
