// Package achievement содержит каталог достижений и чистую логику их оценки.
// Каталог статичен и загружается один раз; достижение разблокируется
// ровно один раз на пару (пользователь, достижение), повторная квалификация
// - безопасный no-op.
package achievement

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Category - категория достижения.
type Category string

const (
	CategoryMilestone  Category = "milestone"
	CategoryContent    Category = "content"
	CategoryEngagement Category = "engagement"
	CategoryPopularity Category = "popularity"
	CategoryStreak     Category = "streak"
	CategoryTime       Category = "time"
	CategoryQuality    Category = "quality"
	CategoryCommunity  Category = "community"
	CategorySecret     Category = "secret"
	CategorySeasonal   Category = "seasonal"
	CategoryPoints     Category = "points"
	CategoryMeta       Category = "meta"
)

// Categories возвращает все категории в порядке отображения.
func Categories() []Category {
	return []Category{
		CategoryMilestone, CategoryContent, CategoryEngagement, CategoryPopularity,
		CategoryStreak, CategoryTime, CategoryQuality, CategoryCommunity,
		CategorySecret, CategorySeasonal, CategoryPoints, CategoryMeta,
	}
}

// IsValid проверяет, что категория известна.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Difficulty - сложность достижения.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyEpic      Difficulty = "epic"
	DifficultyLegendary Difficulty = "legendary"
)

// Weight возвращает порядковый вес сложности (1..5), 0 для неизвестной.
func (d Difficulty) Weight() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyEpic:
		return 4
	case DifficultyLegendary:
		return 5
	default:
		return 0
	}
}

// MinSpecialReward - минимальная награда особого достижения сложности hard/legendary.
const MinSpecialReward = 200

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition - статическое описание достижения.
type Definition struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	Description   string       `yaml:"description" json:"description"`
	Emoji         string       `yaml:"emoji" json:"emoji"`
	Category      Category     `yaml:"category" json:"category"`
	CriteriaType  CriteriaType `yaml:"criteria" json:"criteria_type"`
	CriteriaValue int64        `yaml:"criteria_value" json:"criteria_value"`
	PointsAwarded int64        `yaml:"points" json:"points_awarded"`
	IsHidden      bool         `yaml:"hidden" json:"is_hidden"`
	IsSpecial     bool         `yaml:"special" json:"is_special"`
	Difficulty    Difficulty   `yaml:"difficulty" json:"difficulty"`
}

// Unlock - запись о разблокировке (UserAchievement).
type Unlock struct {
	UserID        int64     `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - неизменяемый каталог достижений.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

type catalogFile struct {
	Achievements []Definition `yaml:"achievements"`
}

// Default загружает встроенный каталог.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("achievement: embedded catalog: %v", err))
	}
	return c
}

// Parse разбирает YAML-каталог и проверяет его.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("achievement", "Parse", shared.ErrCatalogInvalid, "malformed yaml", err)
	}
	return NewCatalog(file.Achievements)
}

// NewCatalog создаёт каталог из списка определений, сохраняя порядок.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	copy(c.defs, defs)

	for i, d := range c.defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, invalid("duplicate achievement id %q", d.ID)
		}
		c.byID[d.ID] = i
	}
	return c, nil
}

func invalid(format string, args ...any) error {
	return shared.WrapError("achievement", "Validate", shared.ErrCatalogInvalid, fmt.Sprintf(format, args...), nil)
}

func validateDefinition(d Definition) error {
	switch {
	case d.ID == "":
		return invalid("achievement with empty id")
	case d.PointsAwarded <= 0:
		return invalid("%s: points_awarded must be positive, got %d", d.ID, d.PointsAwarded)
	case !d.Category.IsValid():
		return invalid("%s: unknown category %q", d.ID, d.Category)
	case d.Difficulty.Weight() == 0:
		return invalid("%s: unknown difficulty %q", d.ID, d.Difficulty)
	case !d.CriteriaType.IsKnown():
		return invalid("%s: unknown criteria %q", d.ID, d.CriteriaType)
	case d.CriteriaValue <= 0:
		return invalid("%s: criteria_value must be positive", d.ID)
	case d.IsSpecial && (d.Difficulty == DifficultyHard || d.Difficulty == DifficultyLegendary) && d.PointsAwarded < MinSpecialReward:
		return invalid("%s: special %s achievement must award at least %d points", d.ID, d.Difficulty, MinSpecialReward)
	}
	return nil
}

// All возвращает полный каталог, включая скрытые достижения.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Public возвращает каталог без скрытых достижений.
func (c *Catalog) Public() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		if !d.IsHidden {
			out = append(out, d)
		}
	}
	return out
}

// Get ищет определение по идентификатору.
func (c *Catalog) Get(id string) (Definition, error) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, shared.WrapError("achievement", "Get", shared.ErrAchievementNotFound, id, nil)
	}
	return c.defs[i], nil
}

// Len возвращает размер каталога.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// ByCategory группирует публичный каталог по категориям.
func (c *Catalog) ByCategory() map[Category][]Definition {
	out := make(map[Category][]Definition)
	for _, d := range c.Public() {
		out[d.Category] = append(out[d.Category], d)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// USER VIEW
// ══════════════════════════════════════════════════════════════════════════════

// Progress - достижение глазами конкретного пользователя.
type Progress struct {
	Definition Definition `json:"definition"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ForUser строит каталог пользователя: все публичные достижения плюс
// скрытые, которые он уже открыл. Разблокированные идут первыми.
func (c *Catalog) ForUser(unlocks []Unlock) []Progress {
	at := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		at[u.AchievementID] = u.UnlockedAt
	}

	out := make([]Progress, 0, len(c.defs))
	for _, d := range c.defs {
		ts, ok := at[d.ID]
		if d.IsHidden && !ok {
			continue
		}
		p := Progress{Definition: d, Unlocked: ok}
		if ok {
			t := ts
			p.UnlockedAt = &t
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Unlocked && !out[j].Unlocked
	})
	return out
}
