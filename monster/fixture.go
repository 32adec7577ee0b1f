package monster

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// Fixture YAML夹具文件格式
type Fixture struct {
	Monsters []Monster `yaml:"monsters"`
}

// LoadFixture 读取YAML夹具
func LoadFixture(r io.Reader) ([]Monster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, m := range f.Monsters {
		if m.Rarity == "" {
			return nil, fmt.Errorf("fixture monster %d (%s): rarity is required", i, m.Name)
		}
	}
	return f.Monsters, nil
}

// LoadFixtureFile 从文件读取YAML夹具
func LoadFixtureFile(path string) ([]Monster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadFixture(file)
}

// WriteFixture 写出YAML夹具
func WriteFixture(w io.Writer, monsters []Monster) error {
	data, err := yaml.Marshal(Fixture{Monsters: monsters})
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	_, err = w.Write(data)
	return err
}
