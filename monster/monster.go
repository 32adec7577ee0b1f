// Package monster 生成怪物数据集
package monster

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"monsterlab/dataset"
)

const (
	MinLevel = 1
	MaxLevel = 20
	MaxRank  = 5

	TimestampLayout = "2006-01-02 15:04:05"
)

// Options 图表与模型可选的列
var Options = []string{"Level", "Health", "Energy", "Sanity", "Rarity"}

// FeatureColumns 预测时使用的特征列
var FeatureColumns = Options[:4]

var types = []string{
	"Demonic Spider", "Dragon", "Ghost", "Goblin", "Golem",
	"Kobold", "Minotaur", "Ogre", "Shadow", "Wraith", "Zombie",
}

var titles = []string{
	"the Cruel", "the Hungry", "of the Deep", "the Restless",
	"the Wicked", "the Pale", "of Ash", "the Forgotten",
}

var names = []string{
	"Azog", "Bram", "Cruor", "Drath", "Egon", "Fenris", "Gorm",
	"Hask", "Ilvar", "Jorn", "Kell", "Lurk", "Morg", "Nix",
}

// Monster 怪物记录
type Monster struct {
	Name      string    `json:"name" yaml:"name" bson:"Name"`
	Type      string    `json:"type" yaml:"type" bson:"Type"`
	Level     int       `json:"level" yaml:"level" bson:"Level"`
	Rarity    string    `json:"rarity" yaml:"rarity" bson:"Rarity"`
	Damage    string    `json:"damage" yaml:"damage" bson:"Damage"`
	Health    float64   `json:"health" yaml:"health" bson:"Health"`
	Energy    float64   `json:"energy" yaml:"energy" bson:"Energy"`
	Sanity    float64   `json:"sanity" yaml:"sanity" bson:"Sanity"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" bson:"Timestamp"`
}

// Row 转换为数据表的一行
func (m Monster) Row() dataset.Row {
	return dataset.Row{
		"Name":      m.Name,
		"Type":      m.Type,
		"Level":     m.Level,
		"Rarity":    m.Rarity,
		"Damage":    m.Damage,
		"Health":    m.Health,
		"Energy":    m.Energy,
		"Sanity":    m.Sanity,
		"Timestamp": m.Timestamp.Format(TimestampLayout),
	}
}

// FromRow Row的逆操作，用于导出数据源中的记录
func FromRow(row dataset.Row) (Monster, error) {
	m := Monster{
		Name:   dataset.ToString(row["Name"]),
		Type:   dataset.ToString(row["Type"]),
		Rarity: dataset.ToString(row["Rarity"]),
		Damage: dataset.ToString(row["Damage"]),
	}
	level, err := dataset.ToFloat(row["Level"])
	if err != nil {
		return Monster{}, fmt.Errorf("level: %w", err)
	}
	m.Level = int(level)
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"Health", &m.Health}, {"Energy", &m.Energy}, {"Sanity", &m.Sanity}} {
		if *f.dst, err = dataset.ToFloat(row[f.name]); err != nil {
			return Monster{}, fmt.Errorf("%s: %w", strings.ToLower(f.name), err)
		}
	}
	switch ts := row["Timestamp"].(type) {
	case time.Time:
		m.Timestamp = ts
	case string:
		if ts != "" {
			if m.Timestamp, err = time.Parse(TimestampLayout, ts); err != nil {
				return Monster{}, fmt.Errorf("timestamp: %w", err)
			}
		}
	}
	return m, nil
}

// Table 把怪物列表转换为数据表
func Table(monsters []Monster) *dataset.Table {
	rows := make([]dataset.Row, len(monsters))
	for i, m := range monsters {
		rows[i] = m.Row()
	}
	return dataset.NewTable(Columns(), rows)
}

// Columns 数据表列顺序
func Columns() []string {
	return []string{"Name", "Type", "Level", "Rarity", "Damage", "Health", "Energy", "Sanity", "Timestamp"}
}

// Rank 稀有度标签
func Rank(r int) string {
	return fmt.Sprintf("Rank %d", r)
}

// Generator 可复现的怪物生成器
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator seed为0时使用当前时间
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Next 生成一只怪物。属性随等级和稀有度增长，使稀有度可以从属性中学习。
func (g *Generator) Next() Monster {
	g.mu.Lock()
	defer g.mu.Unlock()

	rank := g.rank()
	level := MinLevel + g.rnd.Intn(MaxLevel-MinLevel+1)
	scale := float64(level) * (1 + 0.5*float64(rank))

	dice := 1 + level/4 + rank
	return Monster{
		Name:      fmt.Sprintf("%s %s", names[g.rnd.Intn(len(names))], titles[g.rnd.Intn(len(titles))]),
		Type:      types[g.rnd.Intn(len(types))],
		Level:     level,
		Rarity:    Rank(rank),
		Damage:    fmt.Sprintf("%dd%d", dice, 4+2*g.rnd.Intn(5)),
		Health:    g.stat(scale),
		Energy:    g.stat(scale),
		Sanity:    g.stat(scale),
		Timestamp: g.now().Round(time.Second),
	}
}

// Batch 生成n只怪物
func (g *Generator) Batch(n int) []Monster {
	monsters := make([]Monster, 0, n)
	for i := 0; i < n; i++ {
		monsters = append(monsters, g.Next())
	}
	return monsters
}

// rank 低稀有度更常见
func (g *Generator) rank() int {
	roll := g.rnd.Float64()
	for r := 0; r < MaxRank; r++ {
		roll *= 2
		if roll < 1 {
			return r
		}
		roll--
	}
	return MaxRank
}

func (g *Generator) stat(scale float64) float64 {
	v := scale * (2 + 2*g.rnd.Float64())
	return math.Round(v*100) / 100
}

// RandomFeatures 随机特征，用于没有输入时的模型页面
func (g *Generator) RandomFeatures() dataset.Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	stat := func() float64 {
		return math.Round((1+g.rnd.Float64()*249)*100) / 100
	}
	return dataset.Row{
		"Level":  MinLevel + g.rnd.Intn(MaxLevel-MinLevel+1),
		"Health": stat(),
		"Energy": stat(),
		"Sanity": stat(),
	}
}
