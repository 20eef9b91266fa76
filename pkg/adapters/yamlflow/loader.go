package yamlflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the root of a flow file.
type Document struct {
	Nodes []NodeSpec `mapstructure:"nodes"`
}

// NodeSpec declares one node.
type NodeSpec struct {
	ID       string     `mapstructure:"id"`
	Keywords []string   `mapstructure:"keywords"`
	Events   []string   `mapstructure:"events"`
	Branches []string   `mapstructure:"branches"`
	Steps    []StepSpec `mapstructure:"steps"`
}

// StepSpec declares one step.
type StepSpec struct {
	Text      string            `mapstructure:"text"`
	Media     string            `mapstructure:"media"`
	Capture   bool              `mapstructure:"capture"`
	SaveTo    string            `mapstructure:"save_to"`
	Expect    []string          `mapstructure:"expect"`
	Fallback  string            `mapstructure:"fallback"`
	Branch    map[string]string `mapstructure:"branch"`
	Otherwise string            `mapstructure:"otherwise"`
	Reply     string            `mapstructure:"reply"`
}

func (s StepSpec) waits() bool {
	return s.Capture || s.SaveTo != "" || len(s.Expect) > 0 || len(s.Branch) > 0
}

// Parse decodes one YAML document.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow yaml: %w", err)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode flow: %w", err)
	}
	return &doc, nil
}

// Load reads a flow file, or every .yaml/.yml file of a directory in name
// order, and compiles the nodes into one graph.
func Load(path string) (*domain.Graph, error) {
	files, err := flowFiles(path)
	if err != nil {
		return nil, err
	}

	var merged Document
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read flow %s: %w", f, err)
		}
		doc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		merged.Nodes = append(merged.Nodes, doc.Nodes...)
	}
	return Compile(&merged)
}

func flowFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no flow files in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

// Compile turns a document into a validated graph.
func Compile(doc *Document) (*domain.Graph, error) {
	b := dsl.New()
	seen := make(map[string]bool, len(doc.Nodes))

	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, &domain.ConfigError{Err: fmt.Errorf("%w: node without id", domain.ErrInvalidNode)}
		}
		if seen[n.ID] {
			return nil, &domain.ConfigError{Node: n.ID, Err: fmt.Errorf("%w: declared twice", domain.ErrInvalidNode)}
		}
		seen[n.ID] = true

		nb := b.Add(n.ID).Keywords(n.Keywords...).Events(n.Events...)
		branches := append([]string(nil), n.Branches...)

		for i, s := range n.Steps {
			step, err := compileStep(s, i == len(n.Steps)-1)
			if err != nil {
				return nil, &domain.ConfigError{Node: n.ID, Err: fmt.Errorf("step %d: %w", i, err)}
			}
			nb.Step(step)
			for _, target := range s.Branch {
				branches = append(branches, target)
			}
		}
		sort.Strings(branches)
		nb.Branch(dedupe(branches)...)
	}
	return b.Build()
}

func compileStep(s StepSpec, last bool) (domain.Step, error) {
	step := domain.Step{
		Message: domain.Message{Text: s.Text, Media: s.Media},
		Capture: s.waits(),
	}
	if !step.Capture {
		if s.Fallback != "" || s.Otherwise != "" || s.Reply != "" {
			return step, fmt.Errorf("%w: fallback, otherwise and reply need a step that waits for a reply", domain.ErrInvalidNode)
		}
		return step, nil
	}
	if s.Otherwise != "" && !last {
		return step, fmt.Errorf("%w: otherwise is only allowed on the last step", domain.ErrInvalidNode)
	}

	branch := make(map[string]string, len(s.Branch))
	for reply, target := range s.Branch {
		branch[strings.ToLower(strings.TrimSpace(reply))] = target
	}

	step.Continue = func(_ context.Context, c *domain.Capture) (domain.Outcome, error) {
		reply := strings.TrimSpace(c.Body)

		if len(s.Expect) > 0 && !matches(reply, s.Expect) {
			return domain.Retry(s.Fallback), nil
		}
		if s.SaveTo != "" {
			c.Set(s.SaveTo, reply)
		}
		if len(branch) > 0 {
			if target, ok := branch[strings.ToLower(reply)]; ok {
				return domain.GoTo(target), nil
			}
			if s.Fallback != "" {
				return domain.Retry(s.Fallback), nil
			}
			if last {
				c.Send(domain.Interpolate(s.Otherwise, c.State()))
				return domain.Done(), nil
			}
		}
		if s.Reply != "" {
			c.Send(domain.Interpolate(s.Reply, c.State()))
		}
		return domain.Next(), nil
	}
	return step, nil
}

func matches(reply string, accepted []string) bool {
	for _, a := range accepted {
		if strings.EqualFold(reply, a) {
			return true
		}
	}
	return false
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
