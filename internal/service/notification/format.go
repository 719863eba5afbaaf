package notification

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/entity"
	"github.com/Snack-JPG/nft-pulse/internal/service/spike"
)

const infinity = "∞"

// NewMessage 由分类结果构造告警消息
func NewMessage(res spike.Result, displayName, linkBaseURL string, detectedAt time.Time) Message {
	if displayName == "" {
		displayName = res.CollectionId
	}
	return Message{
		CollectionId: res.CollectionId,
		DisplayName:  displayName,
		Level:        res.Level,
		SpikeType:    res.SpikeType,
		CurrentValue: res.CurrentValue,
		BaselineMean: res.BaselineMean,
		Multiplier:   res.Multiplier(),
		Score:        res.Score,
		DetectedAt:   detectedAt,
		Link:         CollectionLink(linkBaseURL, res.CollectionId),
	}
}

// CollectionLink 详情页链接, 未配置 base url 时为空
func CollectionLink(baseURL, collectionId string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/collection/" + collectionId
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return infinity
	}
	return fmt.Sprintf("%.1f", f)
}

func (m Message) LevelLabel() string {
	return strings.ToUpper(string(m.Level))
}

func (m Message) MultiplierText() string {
	return formatNumber(m.Multiplier)
}

func (m Message) ScoreText() string {
	return formatNumber(m.Score)
}

func (m Message) ValueText() string {
	return formatNumber(m.CurrentValue) + " SOL"
}

// Emoji 严重程度对应的图标
func (m Message) Emoji() string {
	switch m.Level {
	case entity.LevelExtreme:
		return "🚨"
	case entity.LevelSpike:
		return "⚡"
	}
	return "📊"
}

// Color embed 颜色, 黄/橙/红
func (m Message) Color() int {
	switch m.Level {
	case entity.LevelExtreme:
		return 0xef4444
	case entity.LevelSpike:
		return 0xf97316
	}
	return 0xfbbf24
}

func (m Message) Title() string {
	return m.Emoji() + " " + m.LevelLabel() + " - " + m.DisplayName
}

// Text 纯文本格式
func (m Message) Text() string {
	return fmt.Sprintf("%s - %s\nVolume: %s (%sx baseline)\nZ-Score: %s",
		m.LevelLabel(), m.DisplayName, m.ValueText(), m.MultiplierText(), m.ScoreText())
}

// HTML telegram 的 HTML parse mode
func (m Message) HTML() string {
	var sb strings.Builder
	sb.WriteString(m.Emoji())
	sb.WriteString(" <b>")
	sb.WriteString(m.LevelLabel())
	sb.WriteString("</b> - ")
	if m.Link != "" {
		fmt.Fprintf(&sb, `<a href="%s">%s</a>`, html.EscapeString(m.Link), html.EscapeString(m.DisplayName))
	} else {
		sb.WriteString(html.EscapeString(m.DisplayName))
	}
	fmt.Fprintf(&sb, "\nVolume: <b>%s</b> (%sx baseline)", m.ValueText(), m.MultiplierText())
	fmt.Fprintf(&sb, "\nZ-Score: %s", m.ScoreText())
	fmt.Fprintf(&sb, "\nType: %s", m.SpikeType)
	return sb.String()
}

type messageJSON struct {
	Type string `json:"type"`
	messageAlias
	Multiplier *float64 `json:"multiplier"`
	Score      *float64 `json:"score"`
}

type messageAlias Message

// MarshalJSON 无穷大输出为 null
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		Type:         "spike",
		messageAlias: messageAlias(m),
		Multiplier:   entity.FiniteOrNil(m.Multiplier),
		Score:        entity.FiniteOrNil(m.Score),
	})
}
