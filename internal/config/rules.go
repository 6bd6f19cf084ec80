// 包 config：标准化规则（YAML，进程级只读）与进程运行参数（环境变量）
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed standardizer.yaml
var defaultRules []byte

// TopLevel：国家级
const TopLevel = 1

// 文档注释：标准化规则
// 背景：类型词、缩写、噪声词与国家分组权重只在启动时加载一次，之后被所有解析调用共享。
// 约束：Compile 之后不得修改；三组层级权重长度必须等于 MaxLevels。
type Rules struct {
	MaxLevels                 int               `yaml:"max_levels"`
	SpecialCountryID          int               `yaml:"special_country_id"`
	PrimaryMatchWeight        float64           `yaml:"primary_match_weight"`
	TypeWords                 []string          `yaml:"type_words"`
	Abbreviations             map[string]string `yaml:"abbreviations"`
	NoiseWords                []string          `yaml:"noise_words"`
	LargeCountries            []int             `yaml:"large_countries"`
	MediumCountries           []int             `yaml:"medium_countries"`
	LargeCountryLevelWeights  []float64         `yaml:"large_country_level_weights"`
	MediumCountryLevelWeights []float64         `yaml:"medium_country_level_weights"`
	SmallCountryLevelWeights  []float64         `yaml:"small_country_level_weights"`

	typeWords  map[string]struct{}
	noiseWords map[string]struct{}
	large      map[int]struct{}
	medium     map[int]struct{}
}

// Default：内嵌的默认规则
func Default() (*Rules, error) { return Parse(defaultRules) }

// 文档注释：加载规则
// 背景：路径为空时回退到内嵌默认值；显式给出的路径不可读或内容损坏属于启动期致命错误，由调用方退出进程。
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := r.Compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Compile：校验并构建查找集合；手工构造 Rules 的调用方（如测试）需显式调用
func (r *Rules) Compile() error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.typeWords = toSet(r.TypeWords)
	r.noiseWords = toSet(r.NoiseWords)
	r.large = toIntSet(r.LargeCountries)
	r.medium = toIntSet(r.MediumCountries)
	if r.Abbreviations == nil {
		r.Abbreviations = map[string]string{}
	}
	return nil
}

func (r *Rules) Validate() error {
	if r.MaxLevels < 1 {
		return errors.New("max_levels must be positive")
	}
	if r.SpecialCountryID <= 0 {
		return errors.New("special_country_id must be positive")
	}
	for name, w := range map[string][]float64{
		"large_country_level_weights":  r.LargeCountryLevelWeights,
		"medium_country_level_weights": r.MediumCountryLevelWeights,
		"small_country_level_weights":  r.SmallCountryLevelWeights,
	} {
		if len(w) != r.MaxLevels {
			return fmt.Errorf("%s: want %d weights, got %d", name, r.MaxLevels, len(w))
		}
	}
	return nil
}

// Expand：缩写展开；非缩写原样返回
func (r *Rules) Expand(word string) string {
	if e, ok := r.Abbreviations[word]; ok {
		return e
	}
	return word
}

// IsTypeWord：先展开缩写再判断
func (r *Rules) IsTypeWord(word string) bool {
	_, ok := r.typeWords[r.Expand(word)]
	return ok
}

// IsRawTypeWord：不展开缩写
func (r *Rules) IsRawTypeWord(word string) bool {
	_, ok := r.typeWords[word]
	return ok
}

func (r *Rules) IsNoiseWord(word string) bool {
	_, ok := r.noiseWords[word]
	return ok
}

// LevelWeights：按国家规模选择权重；未分组国家归入小国
func (r *Rules) LevelWeights(countryID int) []float64 {
	if _, ok := r.large[countryID]; ok {
		return r.LargeCountryLevelWeights
	}
	if _, ok := r.medium[countryID]; ok {
		return r.MediumCountryLevelWeights
	}
	return r.SmallCountryLevelWeights
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func toIntSet(items []int) map[int]struct{} {
	m := make(map[int]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
