// Package rank содержит лестницу рангов: упорядоченные, непересекающиеся
// диапазоны очков, которые разбивают [0, +∞) на тиры с перками.
// Ранг никогда не хранится: он вычисляется из суммы леджера функцией Resolve.
package rank

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aau-confessions/confession-hub/internal/domain/shared"
)

//go:embed ranks.yaml
var defaultCatalog []byte

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Definition - описание одного тира.
// MaxPoints == nil означает открытый сверху верхний тир.
type Definition struct {
	ID        string         `yaml:"id" json:"id"`
	Level     int            `yaml:"level" json:"level"`
	Name      string         `yaml:"name" json:"name"`
	Emoji     string         `yaml:"emoji" json:"emoji"`
	MinPoints int64          `yaml:"min_points" json:"min_points"`
	MaxPoints *int64         `yaml:"max_points" json:"max_points"`
	Perks     map[string]any `yaml:"perks" json:"perks"`
	IsSpecial bool           `yaml:"special" json:"is_special"`
}

// Contains проверяет, попадает ли сумма в диапазон тира.
func (d Definition) Contains(total int64) bool {
	if total < d.MinPoints {
		return false
	}
	return d.MaxPoints == nil || total <= *d.MaxPoints
}

// IsTop возвращает true для открытого сверху тира.
func (d Definition) IsTop() bool {
	return d.MaxPoints == nil
}

// Title возвращает "emoji name".
func (d Definition) Title() string {
	return d.Emoji + " " + d.Name
}

// ══════════════════════════════════════════════════════════════════════════════
// LADDER
// ══════════════════════════════════════════════════════════════════════════════

// Ladder - неизменяемый упорядоченный каталог тиров.
type Ladder struct {
	tiers []Definition
}

type catalogFile struct {
	Ranks []Definition `yaml:"ranks"`
}

// Default загружает встроенный каталог. Паникует, если встроенный YAML
// некорректен: это ошибка сборки, а не времени выполнения.
func Default() *Ladder {
	l, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("rank: embedded catalog: %v", err))
	}
	return l
}

// Parse разбирает YAML-каталог и проверяет инварианты разбиения.
func Parse(data []byte) (*Ladder, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("rank", "Parse", shared.ErrRankCatalogInvalid, "malformed yaml", err)
	}
	return New(file.Ranks)
}

// New создаёт лестницу из списка тиров, сортируя их по MinPoints.
func New(tiers []Definition) (*Ladder, error) {
	sorted := make([]Definition, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	if err := validate(sorted); err != nil {
		return nil, err
	}
	return &Ladder{tiers: sorted}, nil
}

func validate(tiers []Definition) error {
	invalid := func(format string, args ...any) error {
		return shared.WrapError("rank", "Validate", shared.ErrRankCatalogInvalid, fmt.Sprintf(format, args...), nil)
	}

	if len(tiers) == 0 {
		return invalid("no tiers defined")
	}
	if tiers[0].MinPoints != 0 {
		return invalid("lowest tier %q must start at 0, starts at %d", tiers[0].ID, tiers[0].MinPoints)
	}

	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if t.ID == "" {
			return invalid("tier #%d has empty id", i+1)
		}
		if seen[t.ID] {
			return invalid("duplicate tier id %q", t.ID)
		}
		seen[t.ID] = true

		last := i == len(tiers)-1
		if last {
			if t.MaxPoints != nil {
				return invalid("top tier %q must be open-ended", t.ID)
			}
			continue
		}
		if t.MaxPoints == nil {
			return invalid("only the top tier may be open-ended, %q is not top", t.ID)
		}
		if *t.MaxPoints < t.MinPoints {
			return invalid("tier %q has max %d below min %d", t.ID, *t.MaxPoints, t.MinPoints)
		}
		if next := tiers[i+1].MinPoints; *t.MaxPoints != next-1 {
			return invalid("gap or overlap between %q (max %d) and %q (min %d)", t.ID, *t.MaxPoints, tiers[i+1].ID, next)
		}
	}
	return nil
}

// Tiers возвращает копию каталога в порядке возрастания.
func (l *Ladder) Tiers() []Definition {
	out := make([]Definition, len(l.tiers))
	copy(out, l.tiers)
	return out
}

// Len возвращает количество тиров.
func (l *Ladder) Len() int {
	return len(l.tiers)
}

// Lowest возвращает начальный тир.
func (l *Ladder) Lowest() Definition {
	return l.tiers[0]
}

// Resolve возвращает тир для суммы очков.
// Отрицательные суммы прижимаются к нижнему тиру; граничное значение
// принадлежит тиру, чей MinPoints ему равен.
func (l *Ladder) Resolve(total int64) Definition {
	if total <= 0 {
		return l.tiers[0]
	}
	// первый тир с MinPoints > total, нужный - предыдущий
	i := sort.Search(len(l.tiers), func(i int) bool { return l.tiers[i].MinPoints > total })
	return l.tiers[i-1]
}

// Next возвращает следующий тир, если он есть.
func (l *Ladder) Next(d Definition) (Definition, bool) {
	for i, t := range l.tiers {
		if t.ID == d.ID && i+1 < len(l.tiers) {
			return l.tiers[i+1], true
		}
	}
	return Definition{}, false
}

// ByID ищет тир по идентификатору.
func (l *Ladder) ByID(id string) (Definition, bool) {
	for _, t := range l.tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Definition{}, false
}

// Changed сообщает, сменился ли тир между двумя суммами.
func (l *Ladder) Changed(before, after int64) bool {
	return l.Resolve(before).ID != l.Resolve(after).ID
}
