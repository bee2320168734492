package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Group       string // Benchmark function without the prefix, e.g. "Policy"
	Policy      string // First sub-benchmark level
	Workload    string // Remaining sub-benchmark levels
	Iterations  int
	NsPerOp     float64
	BytesPerOp  float64
	AllocsPerOp float64
	Metrics     map[string]float64 // Custom metrics such as %util
}

// ComparisonResult compares one policy against the baseline on one workload.
type ComparisonResult struct {
	Group     string
	Workload  string
	Policy    string
	Ns        float64
	BaseNs    float64
	Speedup   float64 // BaseNs / Ns; above 1 means faster than the baseline
	Util      float64
	BaseUtil  float64
	HasUtil   bool
	Allocs    float64
	NoBaseRun bool
}

const utilMetric = "%util"

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	baseline   = flag.String("baseline", "default", "Policy the others are compared against")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results, *baseline)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	report := generateMarkdownReport(comparisons, results, *baseline, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// BenchmarkPolicy/exhaustive/mixed-8    120000    9875 ns/op    63.2 %util    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(`^(Benchmark\S+?)(?:-\d+)?\s+(\d+)\s+(.+)$`)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Lines from go test -json carry the text in Output.
		var event struct {
			Output string
		}
		if strings.HasPrefix(line, "{") && json.Unmarshal([]byte(line), &event) == nil {
			line = event.Output
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		iterations, err := strconv.Atoi(matches[2])
		if err != nil {
			continue
		}

		r := BenchmarkResult{
			Name:       matches[1],
			Iterations: iterations,
			Metrics:    map[string]float64{},
		}
		fields := strings.Fields(matches[3])
		for i := 0; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				break
			}
			switch unit := fields[i+1]; unit {
			case "ns/op":
				r.NsPerOp = v
			case "B/op":
				r.BytesPerOp = v
			case "allocs/op":
				r.AllocsPerOp = v
			default:
				r.Metrics[unit] = v
			}
		}

		parts := strings.Split(r.Name, "/")
		r.Group = strings.TrimPrefix(parts[0], "Benchmark")
		if len(parts) >= 2 {
			r.Policy = parts[1]
		}
		if len(parts) >= 3 {
			r.Workload = strings.Join(parts[2:], "/")
		}
		results = append(results, r)
	}

	return results
}

func generateComparisons(results []BenchmarkResult, base string) []ComparisonResult {
	type key struct {
		group    string
		workload string
	}

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, r := range results {
		if r.Policy == "" || r.Workload == "" {
			continue
		}
		k := key{r.Group, r.Workload}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][r.Policy] = r
	}

	var comparisons []ComparisonResult
	for k, policies := range grouped {
		b, hasBase := policies[base]
		for name, r := range policies {
			if name == base {
				continue
			}
			c := ComparisonResult{
				Group:     k.group,
				Workload:  k.workload,
				Policy:    name,
				Ns:        r.NsPerOp,
				Allocs:    r.AllocsPerOp,
				NoBaseRun: !hasBase,
			}
			c.Util, c.HasUtil = r.Metrics[utilMetric]
			if hasBase {
				c.BaseNs = b.NsPerOp
				if r.NsPerOp > 0 {
					c.Speedup = b.NsPerOp / r.NsPerOp
				}
				c.BaseUtil = b.Metrics[utilMetric]
			}
			comparisons = append(comparisons, c)
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		return a.Policy < b.Policy
	})
	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, results []BenchmarkResult, base string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	faster, slower, denser := 0, 0, 0
	comparable := 0
	for _, c := range comparisons {
		if c.NoBaseRun {
			continue
		}
		comparable++
		switch {
		case c.Speedup > 1.0:
			faster++
		case c.Speedup < 1.0:
			slower++
		}
		if c.HasUtil && c.Util > c.BaseUtil {
			denser++
		}
	}

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Benchmarks parsed**: %d\n", len(results))
	fmt.Fprintf(&sb, "- **Comparisons against `%s`**: %d\n", base, comparable)
	if comparable > 0 {
		fmt.Fprintf(&sb, "  - faster: %d (%.1f%%)\n", faster, percent(faster, comparable))
		fmt.Fprintf(&sb, "  - slower: %d (%.1f%%)\n", slower, percent(slower, comparable))
		fmt.Fprintf(&sb, "  - better utilization: %d (%.1f%%)\n", denser, percent(denser, comparable))
	}
	sb.WriteString("\n")

	sb.WriteString("## Policies\n\n")
	sb.WriteString("| Benchmark | Workload | Policy | ns/op | vs " + base + " | %util | allocs/op |\n")
	sb.WriteString("|-----------|----------|--------|-------|------------|-------|-----------|\n")
	for _, c := range comparisons {
		vs := "*no baseline*"
		if !c.NoBaseRun {
			vs = fmt.Sprintf("%.2fx", c.Speedup)
			if c.Speedup > 1.0 {
				vs = "**" + vs + "**"
			}
		}
		util := "-"
		if c.HasUtil {
			util = fmt.Sprintf("%.1f", c.Util)
			if !c.NoBaseRun {
				util += fmt.Sprintf(" (%+.1f)", c.Util-c.BaseUtil)
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			c.Group, c.Workload, c.Policy, formatNumber(c.Ns), vs, util, formatNumber(c.Allocs))
	}
	sb.WriteString("\n")

	sb.WriteString("## All Results\n\n")
	sb.WriteString("| Benchmark | Iterations | ns/op | B/op | allocs/op |\n")
	sb.WriteString("|-----------|------------|-------|------|-----------|\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "| %s | %d | %s | %s | %s |\n",
			r.Name, r.Iterations, formatNumber(r.NsPerOp), formatBytes(r.BytesPerOp), formatNumber(r.AllocsPerOp))
	}
	return sb.String()
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

func formatNumber(n float64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.2fG", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	case n == float64(int64(n)):
		return strconv.FormatInt(int64(n), 10)
	default:
		return fmt.Sprintf("%.2f", n)
	}
}

func formatBytes(b float64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", b/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", b/(1<<10))
	default:
		return fmt.Sprintf("%d B", int64(b))
	}
}
