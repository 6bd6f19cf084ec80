// 包 standardize：地名标准化引擎；逐层回退匹配、祖先/后代约束、类型与打分消歧，诊断经回调报告
package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"place-std/internal/config"
	"place-std/internal/hierarchy"
	"place-std/internal/logger"
	"place-std/internal/metrics"
	"place-std/internal/place"
	"place-std/internal/scoring"
	"place-std/internal/store"
	"place-std/internal/tokenize"
)

// Mode：结果形态
type Mode int

const (
	// ModeBest：返回能匹配到的最佳地点，可能只匹配到较粗的层级
	ModeBest Mode = iota
	// ModeRequired：最具体的层级未匹配时不返回结果
	ModeRequired
	// ModeNew：最具体的层级未匹配时返回以最佳匹配为父级的新地点占位
	ModeNew
)

func (m Mode) String() string {
	switch m {
	case ModeRequired:
		return "required"
	case ModeNew:
		return "new"
	default:
		return "best"
	}
}

// ParseMode：空串视为 best
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best":
		return ModeBest, nil
	case "required":
		return ModeRequired, nil
	case "new":
		return ModeNew, nil
	}
	return ModeBest, fmt.Errorf("unknown mode %q", s)
}

// Tokenizer：外部分词/归一化协作方；Tokenize 返回的层级最具体的在前
type Tokenizer interface {
	Normalize(text string) string
	Tokenize(text string) [][]string
}

type Option func(*Standardizer)

func WithTokenizer(t Tokenizer) Option { return func(s *Standardizer) { s.tok = t } }

func WithErrorHandler(h ErrorHandler) Option { return func(s *Standardizer) { s.handler = h } }

func WithLogger(l *slog.Logger) Option { return func(s *Standardizer) { s.log = l } }

// 文档注释：标准化器
// 背景：启动时由规则与 Store 显式构造一次，以指针共享给所有调用方；不存在进程级单例。
// 约束：构造后不可变，可并发调用；每次调用的状态（诊断闩锁、层级词）都在调用内部。
type Standardizer struct {
	rules   *config.Rules
	tok     Tokenizer
	reader  *store.Reader
	graph   *hierarchy.Graph
	scorer  *scoring.Scorer
	handler ErrorHandler
	log     *slog.Logger
}

func New(rules *config.Rules, st store.Store, opts ...Option) *Standardizer {
	reader := store.NewReader(st)
	s := &Standardizer{
		rules:   rules,
		tok:     tokenize.New(),
		reader:  reader,
		graph:   hierarchy.New(reader),
		handler: NopHandler{},
		log:     logger.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.handler == nil {
		s.handler = NopHandler{}
	}
	s.scorer = scoring.NewScorer(rules, s.tok.Normalize)
	return s
}

// WithErrorHandler：返回使用另一个诊断处理器的浅拷贝，原实例不受影响
func (s *Standardizer) WithErrorHandler(h ErrorHandler) *Standardizer {
	c := *s
	if h == nil {
		h = NopHandler{}
	}
	c.handler = h
	return &c
}

func (s *Standardizer) Rules() *config.Rules { return s.rules }

// Handler：当前的诊断处理器，便于调用方在其基础上扇出
func (s *Standardizer) Handler() ErrorHandler { return s.handler }

// Place：不存在或后端故障时返回 nil
func (s *Standardizer) Place(ctx context.Context, id int) *place.Place {
	return s.reader.Place(ctx, id)
}

// 文档注释：解析
// 背景：从不返回错误；所有问题以诊断回调报告。n < 1 按 1 处理。
// 返回：按分数降序的地点列表，可能为空。
func (s *Standardizer) Resolve(ctx context.Context, text, defaultCountry string, mode Mode, n int) []scoring.PlaceScore {
	start := time.Now()
	levels := s.tok.Tokenize(text)
	r := &resolution{
		s:      s,
		ctx:    ctx,
		levels: levels,
	}
	r.diag = latch{h: s.handler, text: text, levels: &r.levels}
	results := r.run(defaultCountry, mode, n)

	metrics.ResolveRequestsTotal.WithLabelValues(mode.String()).Inc()
	metrics.ResolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if len(results) == 0 {
		metrics.EmptyResultsTotal.Inc()
	}
	s.log.Debug("resolve_done", "text", text, "mode", mode.String(), "results", len(results), "dur_us", time.Since(start).Microseconds())
	return results
}

// Standardize：无默认国家、ModeBest 模式、单个结果
func (s *Standardizer) Standardize(ctx context.Context, text string) *place.Place {
	return s.StandardizeIn(ctx, text, "")
}

func (s *Standardizer) StandardizeIn(ctx context.Context, text, defaultCountry string) *place.Place {
	res := s.Resolve(ctx, text, defaultCountry, ModeBest, 1)
	if len(res) == 0 {
		return nil
	}
	return res[0].Place
}

func (s *Standardizer) StandardizeN(ctx context.Context, text string, n int) []scoring.PlaceScore {
	return s.Resolve(ctx, text, "", ModeBest, n)
}

// maxFullNameHops：全名最多拼接的层数（含地点自身）
const maxFullNameHops = 10

// 文档注释：地点全名
// 背景：沿主父级向上拼接 "名称, 父级, 祖父级, ..."；超过上限视为数据异常返回空串；父级缺失时在此截断。
func (s *Standardizer) FullName(ctx context.Context, p *place.Place) string {
	if p == nil {
		return ""
	}
	names := []string{p.Name}
	parent := p.LocatedIn
	for hops := 1; parent > 0; hops++ {
		if hops >= maxFullNameHops {
			return ""
		}
		pp := s.reader.Place(ctx, parent)
		if pp == nil {
			break
		}
		names = append(names, pp.Name)
		parent = pp.LocatedIn
	}
	return strings.Join(names, ", ")
}
