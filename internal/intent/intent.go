// Package intent 把问题标注为检索路由类别，并把模型返回的标签解析成结构化意图。
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindOther Kind = iota
	KindCharacter
	KindPlaces
	KindPlot // PLOT 但子类别无法识别
	KindPlotSemantic
	KindPlotByChapter
	KindPlotByPosition
	KindAnalysis
	KindMarketing
	KindOutside
)

func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "CHARACTER"
	case KindPlaces:
		return "PLACES"
	case KindPlot:
		return "PLOT"
	case KindPlotSemantic:
		return "PLOT_SEMANTIC"
	case KindPlotByChapter:
		return "PLOT_BY_CHAPTER"
	case KindPlotByPosition:
		return "PLOT_BY_POSITION"
	case KindAnalysis:
		return "ANALYSIS"
	case KindMarketing:
		return "MARKETING"
	case KindOutside:
		return "OUTSIDE"
	default:
		return "OTHER"
	}
}

// IsPlot 是否属于情节类（包括未解析的 PLOT）
func (k Kind) IsPlot() bool {
	return k >= KindPlot && k <= KindPlotByPosition
}

type Position string

const (
	PositionNone      Position = ""
	PositionBeginning Position = "beginning"
	PositionMiddle    Position = "middle"
	PositionEnd       Position = "end"
)

// Intent 一次问题的路由结果，每个问题重新生成，不持久化
type Intent struct {
	Kind     Kind
	Label    string   // 模型返回的原始标签
	Chapter  int      // KindPlotByChapter 时有效，0 表示未能解析
	Position Position // KindPlotByPosition 时有效
}

var chapterNum = regexp.MustCompile(`\d+`)

// Parse 解析分类器标签。按前缀匹配以容忍模型多输出的内容，
// 无法识别的标签一律归为 OTHER。
func Parse(label string) Intent {
	raw := strings.TrimSpace(label)
	upper := strings.ToUpper(raw)
	in := Intent{Kind: KindOther, Label: raw}

	switch {
	case strings.HasPrefix(upper, "CHARACTER"):
		in.Kind = KindCharacter
	case strings.HasPrefix(upper, "PLACES"):
		in.Kind = KindPlaces
	case strings.HasPrefix(upper, "PLOT_BY_CHAPTER"):
		in.Kind = KindPlotByChapter
		rest := upper[len("PLOT_BY_CHAPTER"):]
		if m := chapterNum.FindString(rest); m != "" {
			in.Chapter, _ = strconv.Atoi(m)
		}
	case strings.HasPrefix(upper, "PLOT_BY_POSITION"):
		in.Kind = KindPlotByPosition
		in.Position = parsePosition(strings.ToLower(upper[len("PLOT_BY_POSITION"):]))
	case strings.HasPrefix(upper, "PLOT_SEMANTIC"):
		in.Kind = KindPlotSemantic
	case strings.HasPrefix(upper, "PLOT"):
		in.Kind = KindPlot
	case strings.HasPrefix(upper, "ANALYSIS"):
		in.Kind = KindAnalysis
	case strings.HasPrefix(upper, "MARKETING"):
		in.Kind = KindMarketing
	case strings.HasPrefix(upper, "OUTSIDE"):
		in.Kind = KindOutside
	}
	return in
}

func parsePosition(s string) Position {
	switch {
	case strings.Contains(s, "beginning"):
		return PositionBeginning
	case strings.Contains(s, "middle"):
		return PositionMiddle
	case strings.Contains(s, "end"):
		return PositionEnd
	default:
		return PositionNone
	}
}
