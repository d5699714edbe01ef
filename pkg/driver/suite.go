package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

// Suite is one YAML file of behavioral cases.
type Suite struct {
	Path  string `yaml:"-"`
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Case is a program and what evaluating it should produce. A nil Output
// leaves printed output unchecked; an empty Error means evaluation must
// succeed.
type Case struct {
	Name     string   `yaml:"name"`
	Source   string   `yaml:"source"`
	Output   *string  `yaml:"output"`
	Error    string   `yaml:"error"`
	Warnings []string `yaml:"warnings"`
	Ignore   bool     `yaml:"ignore"`
}

// LoadSuite reads and validates the suite file at name in fs.
func LoadSuite(fs billy.Filesystem, name string) (*Suite, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("suite: open %s: %w", name, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	var suite Suite
	if err := decoder.Decode(&suite); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("suite: %s is empty", name)
		}
		return nil, fmt.Errorf("suite: parse %s: %w", name, err)
	}
	suite.Path = name
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	var errs ValidationError
	for k, c := range suite.Cases {
		if c.Name == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("cases[%d] must have a name", k))
		}
		if strings.TrimSpace(c.Source) == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("cases[%d] (%s) has no source", k, c.Name))
		}
	}
	if len(errs.Issues) > 0 {
		return nil, fmt.Errorf("suite: %s: %w", name, &errs)
	}
	return &suite, nil
}

// DiscoverSuites returns the suite files under each root, sorted. A root
// that names a file is returned as is.
func DiscoverSuites(fs billy.Filesystem, roots ...string) ([]string, error) {
	var found []string
	for _, root := range roots {
		info, err := fs.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("suite: stat %s: %w", root, err)
		}
		if !info.IsDir() {
			found = append(found, root)
			continue
		}
		files, err := walkSuites(fs, root)
		if err != nil {
			return nil, err
		}
		found = append(found, files...)
	}
	sort.Strings(found)
	return found, nil
}

func walkSuites(fs billy.Filesystem, dir string) ([]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("suite: read %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		full := fs.Join(dir, entry.Name())
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			sub, err := walkSuites(fs, full)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if ext := path.Ext(entry.Name()); ext == ".yml" || ext == ".yaml" {
			out = append(out, full)
		}
	}
	return out, nil
}

// CaseResult records the outcome of one case.
type CaseResult struct {
	Suite   string
	Case    string
	Passed  bool
	Skipped bool
	Failure string
}

// Report summarizes a run over one or more suites.
type Report struct {
	Results []CaseResult
	Passed  int
	Failed  int
	Skipped int
}

func (r *Report) add(res CaseResult) {
	r.Results = append(r.Results, res)
	switch {
	case res.Skipped:
		r.Skipped++
	case res.Passed:
		r.Passed++
	default:
		r.Failed++
	}
}

// Failures returns the failed cases in run order.
func (r *Report) Failures() []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if !res.Passed && !res.Skipped {
			out = append(out, res)
		}
	}
	return out
}

// Runner executes suites, each case in a fresh interpreter.
type Runner struct {
	Config *Config
	Logger zerolog.Logger
}

// Run loads every suite found under roots and runs it.
func (r *Runner) Run(ctx context.Context, fs billy.Filesystem, roots ...string) (*Report, error) {
	files, err := DiscoverSuites(fs, roots...)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	for _, file := range files {
		suite, err := LoadSuite(fs, file)
		if err != nil {
			return report, err
		}
		if err := r.RunSuite(ctx, suite, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// RunSuite runs the cases of one suite, adding their results to report.
func (r *Runner) RunSuite(ctx context.Context, suite *Suite, report *Report) error {
	logger := r.Logger.With().Str("suite", suite.Name).Logger()
	for _, c := range suite.Cases {
		res := CaseResult{Suite: suite.Name, Case: c.Name}
		if c.Ignore {
			res.Skipped = true
			report.add(res)
			continue
		}
		failure, err := r.runCase(ctx, c)
		if err != nil {
			return err
		}
		res.Failure = failure
		res.Passed = failure == ""
		logger.Debug().Str("case", c.Name).Bool("passed", res.Passed).Msg("case finished")
		report.add(res)
	}
	return nil
}

func (r *Runner) runCase(ctx context.Context, c Case) (string, error) {
	session := NewSession(r.Config, r.Logger)
	out, err := session.Eval(ctx, c.Source)
	if err != nil {
		return "", err
	}
	var problems []string
	gotErr := ErrorMessage(out.Err)
	switch {
	case c.Error == "" && out.Err != nil:
		problems = append(problems, "unexpected error: "+gotErr)
	case c.Error != "" && out.Err == nil:
		problems = append(problems, fmt.Sprintf("expected error %q, evaluation succeeded", c.Error))
	case c.Error != "" && gotErr != c.Error:
		problems = append(problems, fmt.Sprintf("error mismatch:\n  want %q\n   got %q", c.Error, gotErr))
	}
	if c.Output != nil {
		want, got := normalizeOutput(*c.Output), normalizeOutput(out.Output)
		if want != got {
			problems = append(problems, "output mismatch:\n"+outputDiff(want, got))
		}
	}
	if c.Warnings != nil && !equalStrings(c.Warnings, out.Warnings) {
		problems = append(problems, fmt.Sprintf("warnings mismatch:\n  want %q\n   got %q", c.Warnings, out.Warnings))
	}
	return strings.Join(problems, "\n"), nil
}

// normalizeOutput drops trailing blanks on every line and trailing empty
// lines.
func normalizeOutput(s string) string {
	lines := strings.Split(s, "\n")
	for k, line := range lines {
		lines[k] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// outputDiff renders a line diff of want against got, "-" marking
// expected lines that are missing and "+" lines that were printed instead.
func outputDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want+"\n", got+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}
