package standardize

import (
	"log/slog"
	"sync"

	"place-std/internal/metrics"
	"place-std/internal/place"
)

// 文档注释：诊断回调
// 背景：解析期问题都是预期内、非致命的，通过回调侧通道报告而不是返回错误。
// 约束：levels 为调用方独享的副本（可能已被回退拆分）；并发使用 Standardizer 时回调可能被并发调用。
type ErrorHandler interface {
	TokenNotFound(text string, levels [][]string, level int, parentIDs []int)
	SkippingParentLevel(text string, levels [][]string, level int, placeIDs []int)
	TypeNotFound(text string, levels [][]string, level int, placeIDs []int)
	Ambiguous(text string, levels [][]string, placeIDs []int, top *place.Place)
	PlaceNotFound(text string, levels [][]string)
}

// Kind：诊断种类，亦用作日志事件名与指标标签
type Kind string

const (
	KindTokenNotFound       Kind = "token_not_found"
	KindSkippingParentLevel Kind = "skipping_parent_level"
	KindTypeNotFound        Kind = "type_not_found"
	KindAmbiguous           Kind = "ambiguous"
	KindPlaceNotFound       Kind = "place_not_found"
)

type NopHandler struct{}

func (NopHandler) TokenNotFound(string, [][]string, int, []int) {}
func (NopHandler) SkippingParentLevel(string, [][]string, int, []int) {}
func (NopHandler) TypeNotFound(string, [][]string, int, []int) {}
func (NopHandler) Ambiguous(string, [][]string, []int, *place.Place) {}
func (NopHandler) PlaceNotFound(string, [][]string) {}

// LogHandler：以 Info 级别记录每条诊断
type LogHandler struct {
	L *slog.Logger
}

func (h LogHandler) TokenNotFound(text string, levels [][]string, level int, parentIDs []int) {
	h.L.Info(string(KindTokenNotFound), "text", text, "levels", levels, "level", level, "parent_ids", parentIDs)
}

func (h LogHandler) SkippingParentLevel(text string, levels [][]string, level int, placeIDs []int) {
	h.L.Info(string(KindSkippingParentLevel), "text", text, "levels", levels, "level", level, "place_ids", placeIDs)
}

func (h LogHandler) TypeNotFound(text string, levels [][]string, level int, placeIDs []int) {
	h.L.Info(string(KindTypeNotFound), "text", text, "levels", levels, "level", level, "place_ids", placeIDs)
}

func (h LogHandler) Ambiguous(text string, levels [][]string, placeIDs []int, top *place.Place) {
	h.L.Info(string(KindAmbiguous), "text", text, "levels", levels, "place_ids", placeIDs, "top_id", top.ID, "top_name", top.Name)
}

func (h LogHandler) PlaceNotFound(text string, levels [][]string) {
	h.L.Info(string(KindPlaceNotFound), "text", text, "levels", levels)
}

// MetricsHandler：按种类计数 placestd_diagnostics_total
type MetricsHandler struct{}

func (MetricsHandler) TokenNotFound(string, [][]string, int, []int) {
	metrics.DiagnosticsTotal.WithLabelValues(string(KindTokenNotFound)).Inc()
}

func (MetricsHandler) SkippingParentLevel(string, [][]string, int, []int) {
	metrics.DiagnosticsTotal.WithLabelValues(string(KindSkippingParentLevel)).Inc()
}

func (MetricsHandler) TypeNotFound(string, [][]string, int, []int) {
	metrics.DiagnosticsTotal.WithLabelValues(string(KindTypeNotFound)).Inc()
}

func (MetricsHandler) Ambiguous(string, [][]string, []int, *place.Place) {
	metrics.DiagnosticsTotal.WithLabelValues(string(KindAmbiguous)).Inc()
}

func (MetricsHandler) PlaceNotFound(string, [][]string) {
	metrics.DiagnosticsTotal.WithLabelValues(string(KindPlaceNotFound)).Inc()
}

// Diagnostic：Recorder 收集的一条诊断；Level 为 -1 表示与具体层级无关
type Diagnostic struct {
	Kind   Kind       `json:"kind"`
	Text   string     `json:"text"`
	Levels [][]string `json:"levels"`
	Level  int        `json:"level"`
	IDs    []int      `json:"ids,omitempty"`
	TopID  int        `json:"top_id,omitempty"`
}

// Recorder：收集诊断，供 HTTP 响应与测试使用；并发安全
type Recorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *Recorder) add(d Diagnostic) {
	r.mu.Lock()
	r.diags = append(r.diags, d)
	r.mu.Unlock()
}

func (r *Recorder) TokenNotFound(text string, levels [][]string, level int, parentIDs []int) {
	r.add(Diagnostic{Kind: KindTokenNotFound, Text: text, Levels: levels, Level: level, IDs: parentIDs})
}

func (r *Recorder) SkippingParentLevel(text string, levels [][]string, level int, placeIDs []int) {
	r.add(Diagnostic{Kind: KindSkippingParentLevel, Text: text, Levels: levels, Level: level, IDs: placeIDs})
}

func (r *Recorder) TypeNotFound(text string, levels [][]string, level int, placeIDs []int) {
	r.add(Diagnostic{Kind: KindTypeNotFound, Text: text, Levels: levels, Level: level, IDs: placeIDs})
}

func (r *Recorder) Ambiguous(text string, levels [][]string, placeIDs []int, top *place.Place) {
	r.add(Diagnostic{Kind: KindAmbiguous, Text: text, Levels: levels, Level: -1, IDs: placeIDs, TopID: top.ID})
}

func (r *Recorder) PlaceNotFound(text string, levels [][]string) {
	r.add(Diagnostic{Kind: KindPlaceNotFound, Text: text, Levels: levels, Level: -1})
}

// Diagnostics：返回副本
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diags...)
}

func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.diags {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Handlers：按顺序扇出到多个处理器
type Handlers []ErrorHandler

func (hs Handlers) TokenNotFound(text string, levels [][]string, level int, parentIDs []int) {
	for _, h := range hs {
		h.TokenNotFound(text, levels, level, parentIDs)
	}
}

func (hs Handlers) SkippingParentLevel(text string, levels [][]string, level int, placeIDs []int) {
	for _, h := range hs {
		h.SkippingParentLevel(text, levels, level, placeIDs)
	}
}

func (hs Handlers) TypeNotFound(text string, levels [][]string, level int, placeIDs []int) {
	for _, h := range hs {
		h.TypeNotFound(text, levels, level, placeIDs)
	}
}

func (hs Handlers) Ambiguous(text string, levels [][]string, placeIDs []int, top *place.Place) {
	for _, h := range hs {
		h.Ambiguous(text, levels, placeIDs, top)
	}
}

func (hs Handlers) PlaceNotFound(text string, levels [][]string) {
	for _, h := range hs {
		h.PlaceNotFound(text, levels)
	}
}

// 文档注释：单次调用内的诊断闩锁
// 约束：token_not_found / skipping_parent_level / type_not_found / ambiguous 共用一个闩锁，只报告第一条；
// place_not_found 不受闩锁影响。每次回调都拿到 levels 的深拷贝。
type latch struct {
	h       ErrorHandler
	text    string
	levels  *[][]string
	latched bool
}

func (l *latch) fire() bool {
	if l.latched {
		return false
	}
	l.latched = true
	return true
}

func (l *latch) tokenNotFound(level int, parentIDs []int) {
	if l.fire() {
		l.h.TokenNotFound(l.text, copyLevels(*l.levels), level, parentIDs)
	}
}

func (l *latch) skippingParentLevel(level int, ids []int) {
	if l.fire() {
		l.h.SkippingParentLevel(l.text, copyLevels(*l.levels), level, ids)
	}
}

func (l *latch) typeNotFound(level int, ids []int) {
	if l.fire() {
		l.h.TypeNotFound(l.text, copyLevels(*l.levels), level, ids)
	}
}

func (l *latch) ambiguous(ids []int, top *place.Place) {
	if l.fire() {
		l.h.Ambiguous(l.text, copyLevels(*l.levels), ids, top)
	}
}

func (l *latch) placeNotFound() {
	l.h.PlaceNotFound(l.text, copyLevels(*l.levels))
}

func copyLevels(levels [][]string) [][]string {
	out := make([][]string, len(levels))
	for i, ws := range levels {
		out[i] = append([]string(nil), ws...)
	}
	return out
}
