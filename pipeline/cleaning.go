package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"monsterlab/monster"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(*monster.Monster) error
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Monster   string    `json:"monster"`
	Timestamp time.Time `json:"timestamp"`
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Corrected      int64            `json:"corrected"`
	Issues         map[string]int64 `json:"issues"`
}

// DataCleaner 入库前校验怪物记录
type DataCleaner struct {
	rules []CleaningRule

	mu    sync.Mutex
	stats CleaningStats
}

// NewDataCleaner 创建带默认规则的清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{stats: CleaningStats{Issues: make(map[string]int64)}}
	cleaner.AddRule(RequiredFieldsRule{})
	cleaner.AddRule(LevelRangeRule{Min: monster.MinLevel, Max: monster.MaxLevel})
	cleaner.AddRule(StatRule{})
	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean 返回通过全部规则的记录；规则可以就地修正记录
func (dc *DataCleaner) Clean(monsters []monster.Monster) ([]monster.Monster, []QualityIssue) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	var cleaned []monster.Monster
	var issues []QualityIssue
	for _, m := range monsters {
		dc.stats.TotalProcessed++
		original := m

		var found []QualityIssue
		for _, rule := range dc.rules {
			if err := rule.Apply(&m); err != nil {
				found = append(found, QualityIssue{
					Type:      rule.Name(),
					Message:   err.Error(),
					Monster:   m.Name,
					Timestamp: time.Now(),
				})
				dc.stats.Issues[rule.Name()]++
			}
		}

		if len(found) > 0 {
			dc.stats.Rejected++
			issues = append(issues, found...)
			continue
		}
		if m != original {
			dc.stats.Corrected++
		}
		dc.stats.Passed++
		cleaned = append(cleaned, m)
	}
	return cleaned, issues
}

// GetStats 获取统计信息
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// RequiredFieldsRule 名称与稀有度必填；去除首尾空白
type RequiredFieldsRule struct{}

func (RequiredFieldsRule) Name() string { return "required_fields" }

func (RequiredFieldsRule) Apply(m *monster.Monster) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Rarity = strings.TrimSpace(m.Rarity)
	if m.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if m.Rarity == "" {
		return fmt.Errorf("rarity is empty")
	}
	return nil
}

// LevelRangeRule 等级范围
type LevelRangeRule struct {
	Min, Max int
}

func (LevelRangeRule) Name() string { return "level_range" }

func (r LevelRangeRule) Apply(m *monster.Monster) error {
	if m.Level < r.Min || m.Level > r.Max {
		return fmt.Errorf("level %d outside [%d, %d]", m.Level, r.Min, r.Max)
	}
	return nil
}

// StatRule 属性必须为正；缺失的时间戳补为当前时间
type StatRule struct{}

func (StatRule) Name() string { return "stats" }

func (StatRule) Apply(m *monster.Monster) error {
	if m.Health <= 0 || m.Energy <= 0 || m.Sanity <= 0 {
		return fmt.Errorf("non-positive stats: health=%.2f energy=%.2f sanity=%.2f", m.Health, m.Energy, m.Sanity)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().Round(time.Second)
	}
	return nil
}
