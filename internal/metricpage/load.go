package metricpage

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go-fed-dashboard/internal/helpers"
)

type fileTemplate struct {
	Key       string            `yaml:"key"`
	Title     string            `yaml:"title"`
	Kind      string            `yaml:"kind"`
	Metric    string            `yaml:"metric"`
	Labels    map[string]string `yaml:"labels"`
	Function  string            `yaml:"function"`
	Range     string            `yaml:"range"`
	FinalType string            `yaml:"final_type"`
	Color     string            `yaml:"color"`
	Section   string            `yaml:"section"`
	Global    bool              `yaml:"global"`
}

type filePage struct {
	Name      string         `yaml:"name"`
	Templates []fileTemplate `yaml:"templates"`
}

type pagesFile struct {
	Pages []filePage `yaml:"pages"`
}

var knownKinds = map[Kind]struct{}{
	KindBigMetric:         {},
	KindBigBytesMetric:    {},
	KindTransferRateGraph: {},
	KindCPUGraph:          {},
	KindMemoryGraph:       {},
	KindStorageGraph:      {},
	KindProjectTable:      {},
}

// LoadFile reads page definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open metric pages file")
	}
	defer f.Close()

	defs, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid metric pages file %s", path)
	}
	return defs, nil
}

// Load decodes page definitions from YAML.
func Load(r io.Reader) ([]Definition, error) {
	var raw pagesFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to decode metric pages")
	}

	out := make([]Definition, 0, len(raw.Pages))
	for i, p := range raw.Pages {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errors.Errorf("page %d has no name", i)
		}
		def := Definition{Name: name, Templates: make([]Template, 0, len(p.Templates))}
		for j, ft := range p.Templates {
			t, err := ft.toTemplate()
			if err != nil {
				return nil, errors.Wrapf(err, "page %q template %d", name, j)
			}
			def.Templates = append(def.Templates, t)
		}
		out = append(out, def)
	}
	return out, nil
}

func (ft fileTemplate) toTemplate() (Template, error) {
	kind := Kind(strings.TrimSpace(ft.Kind))
	if _, ok := knownKinds[kind]; !ok {
		return Template{}, errors.Errorf("unknown widget kind %q", ft.Kind)
	}
	if strings.TrimSpace(ft.Metric) == "" {
		return Template{}, errors.New("metric is required")
	}

	finalType := FinalType(strings.TrimSpace(ft.FinalType))
	switch finalType {
	case "", FinalLast, FinalSum, FinalAvg:
	default:
		return Template{}, errors.Errorf("unknown final_type %q", ft.FinalType)
	}

	section := ft.Section
	if section == "" {
		section = SectionSummary
		if kind.IsGraph() {
			section = SectionGraphs
		}
	}
	key := ft.Key
	if key == "" {
		key = ft.Metric
	}

	return Template{
		Key:       key,
		Title:     helpers.Value[string, string](ft.Title),
		Kind:      kind,
		Metric:    strings.TrimSpace(ft.Metric),
		Labels:    ft.Labels,
		Function:  ft.Function,
		Range:     ft.Range,
		FinalType: finalType,
		Color:     ft.Color,
		Section:   section,
		Global:    ft.Global,
	}, nil
}
