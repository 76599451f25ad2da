package pipeline

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
)

const pipelinesSpecEnv = "MLI_PIPELINES_YAML"

//go:embed pipelines.yaml
var pipelinesSpecFS embed.FS

type stageSpec struct {
	Name      string
	DependsOn []string
}

// fallback stage graph used when YAML is missing or invalid
var fallbackStages = map[string][]stageSpec{
	PipelineUserSegments: {
		{Name: "load_users"},
		{Name: "encode_features", DependsOn: []string{"load_users"}},
		{Name: "cluster_sweep", DependsOn: []string{"encode_features"}},
		{Name: "export_scores", DependsOn: []string{"cluster_sweep"}},
		{Name: "render_chart", DependsOn: []string{"cluster_sweep"}},
		{Name: "cluster_assign", DependsOn: []string{"encode_features"}},
		{Name: "export_clusters", DependsOn: []string{"cluster_assign"}},
		{Name: "persist", DependsOn: []string{"export_scores"}},
		{Name: "publish", DependsOn: []string{"export_clusters"}},
		{Name: "upload", DependsOn: []string{"export_scores"}},
	},
	PipelineGenreAffinity: {
		{Name: "load_movies"},
		{Name: "load_ratings"},
		{Name: "unpivot_genres", DependsOn: []string{"load_movies"}},
		{Name: "rank_genres", DependsOn: []string{"load_ratings", "unpivot_genres"}},
		{Name: "export_genres", DependsOn: []string{"rank_genres"}},
		{Name: "persist", DependsOn: []string{"export_genres"}},
		{Name: "publish", DependsOn: []string{"export_genres"}},
		{Name: "upload", DependsOn: []string{"export_genres"}},
	},
}

type yamlSpec struct {
	Version   int                     `yaml:"version"`
	Pipelines map[string]yamlPipeline `yaml:"pipelines"`
}

type yamlPipeline struct {
	Stages []yamlStageSpec `yaml:"stages"`
}

type yamlStageSpec struct {
	Name      string   `yaml:"name"`
	DependsOn []string `yaml:"depends_on"`
	Enabled   *bool    `yaml:"enabled"`
}

type pipelineRuntime struct {
	Stages map[string][]stageSpec
}

var runtimeOnce sync.Once
var runtimeCache *pipelineRuntime
var runtimeErr error

func currentPipelineRuntime(log *logger.Logger) *pipelineRuntime {
	runtimeOnce.Do(func() {
		runtimeCache, runtimeErr = loadPipelineRuntime()
	})
	if runtimeErr != nil {
		if log != nil {
			log.Warn("pipeline spec load failed; using fallback", "error", runtimeErr)
		}
		return nil
	}
	return runtimeCache
}

// pipelineStages returns the enabled stages of pipeline in run order.
func pipelineStages(log *logger.Logger, pipeline string) ([]stageSpec, bool) {
	if rt := currentPipelineRuntime(log); rt != nil {
		if stages, ok := rt.Stages[pipeline]; ok {
			return stages, true
		}
	}
	stages, ok := fallbackStages[pipeline]
	return stages, ok
}

func loadPipelineRuntime() (*pipelineRuntime, error) {
	data, err := readPipelinesSpec()
	if err != nil {
		return nil, err
	}
	return parsePipelineRuntime(data)
}

func readPipelinesSpec() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(pipelinesSpecEnv)); path != "" {
		return os.ReadFile(path)
	}
	return pipelinesSpecFS.ReadFile("pipelines.yaml")
}

func parsePipelineRuntime(data []byte) (*pipelineRuntime, error) {
	var spec yamlSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validatePipelineSpec(&spec); err != nil {
		return nil, err
	}

	rt := &pipelineRuntime{Stages: make(map[string][]stageSpec, len(spec.Pipelines))}
	for name, p := range spec.Pipelines {
		stages := make([]stageSpec, 0, len(p.Stages))
		for _, stage := range p.Stages {
			if stage.Enabled != nil && !*stage.Enabled {
				continue
			}
			stages = append(stages, stageSpec{
				Name:      strings.TrimSpace(stage.Name),
				DependsOn: dedupeStrings(stage.DependsOn),
			})
		}
		rt.Stages[strings.TrimSpace(name)] = stages
	}
	return rt, nil
}

func validatePipelineSpec(spec *yamlSpec) error {
	if spec == nil {
		return errors.New("missing spec")
	}
	if spec.Version != 1 {
		return fmt.Errorf("unsupported spec version: %d", spec.Version)
	}
	if len(spec.Pipelines) == 0 {
		return errors.New("no pipelines defined")
	}

	for rawName, p := range spec.Pipelines {
		name := strings.TrimSpace(rawName)
		known, ok := stageRegistry[name]
		if !ok {
			return fmt.Errorf("unknown pipeline: %s", rawName)
		}
		if len(p.Stages) == 0 {
			return fmt.Errorf("pipeline %s: no stages defined", name)
		}

		seen := map[string]bool{}
		enabled := map[string]bool{}
		for _, stage := range p.Stages {
			stageName := strings.TrimSpace(stage.Name)
			if stageName == "" {
				return fmt.Errorf("pipeline %s: stage name is required", name)
			}
			if seen[stageName] {
				return fmt.Errorf("pipeline %s: duplicate stage name: %s", name, stageName)
			}
			seen[stageName] = true
			if _, ok := known[stageName]; !ok {
				return fmt.Errorf("pipeline %s: unknown stage %s", name, stageName)
			}
			if stage.Enabled != nil && !*stage.Enabled {
				continue
			}
			// dependencies must already be enabled, which also rules out cycles
			for _, dep := range stage.DependsOn {
				dep = strings.TrimSpace(dep)
				if dep == "" {
					continue
				}
				if !seen[dep] {
					return fmt.Errorf("pipeline %s: stage %s: dependency %s is unknown or appears after stage in order", name, stageName, dep)
				}
				if !enabled[dep] {
					return fmt.Errorf("pipeline %s: stage %s: dependency %s is disabled", name, stageName, dep)
				}
			}
			enabled[stageName] = true
		}
	}
	return nil
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
