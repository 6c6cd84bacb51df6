package leaderboard

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DefaultSpecialSlots - сколько верхних мест получают почётные имена.
const DefaultSpecialSlots = 3

var adjectives = []string{
	"Anonymous", "Bashful", "Bold", "Brave", "Calm", "Clever", "Cosmic", "Curious",
	"Daring", "Dreamy", "Gentle", "Glowing", "Hidden", "Humble", "Jolly", "Lucky",
	"Midnight", "Misty", "Mysterious", "Quiet", "Restless", "Secret", "Shy", "Silent",
	"Sleepy", "Sly", "Swift", "Thoughtful", "Wandering", "Whispering", "Wild", "Witty",
}

var creatures = []string{
	"Badger", "Cheetah", "Crane", "Falcon", "Fox", "Gazelle", "Hedgehog", "Heron",
	"Hyena", "Ibex", "Koala", "Lemur", "Lion", "Lynx", "Meerkat", "Otter",
	"Owl", "Panda", "Panther", "Penguin", "Raven", "Robin", "Sparrow", "Tortoise",
	"Walrus", "Wolf", "Zebra",
}

var mythics = []string{
	"Chimera", "Dragon", "Griffin", "Hydra", "Kraken", "Oracle", "Pegasus", "Phoenix",
	"Sphinx", "Titan", "Unicorn", "Wyvern",
}

var honorifics = []string{"Legendary", "Master", "Supreme", "Ultimate", "Elite"}

// Seed - BLAKE2b-64 от (userID, type, windowStart). Зависит только от
// пользователя и окна, поэтому имя стабильно между запросами в пределах окна.
func Seed(userID int64, t Type, windowStart time.Time) uint64 {
	h, err := blake2b.New(8, nil)
	if err != nil {
		// размер 8 без ключа всегда допустим
		panic(err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(userID))
	h.Write(buf[:])
	h.Write([]byte{0})
	h.Write([]byte(t))
	h.Write([]byte{0})
	binary.BigEndian.PutUint64(buf[:], uint64(windowStart.Unix()))
	h.Write(buf[:])

	return binary.BigEndian.Uint64(h.Sum(nil))
}

// Anonymizer выдаёт псевдонимы строкам лидерборда.
type Anonymizer struct {
	specialSlots int
}

// NewAnonymizer создаёт генератор. specialSlots ограничивается размером
// пула почётных имён, отрицательное значение означает 0.
func NewAnonymizer(specialSlots int) *Anonymizer {
	return &Anonymizer{specialSlots: min(max(specialSlots, 0), len(honorifics))}
}

// SpecialSlots возвращает число мест с почётными именами.
func (a *Anonymizer) SpecialSlots() int {
	return a.specialSlots
}

// NewDraw начинает раздачу имён для одной отрисовки.
// Почётные имена внутри одной раздачи не повторяются.
func (a *Anonymizer) NewDraw() *Draw {
	pool := make([]string, len(honorifics))
	copy(pool, honorifics)
	return &Draw{slots: a.specialSlots, pool: pool}
}

// Name возвращает обычный псевдоним для seed. Чистая функция seed.
func Name(seed uint64) string {
	r := rng(seed)
	adj := adjectives[r.IntN(len(adjectives))]
	animal := creatures[r.IntN(len(creatures))]
	return fmt.Sprintf("%s %s #%02d", adj, animal, 10+r.IntN(90))
}

func rng(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Draw - состояние раздачи имён в одной отрисовке.
type Draw struct {
	slots int
	pool  []string
}

// Name возвращает псевдоним для места pos и признак почётного имени.
// Места до slots включительно тянут почётное имя из пула без возврата,
// генератор при этом засеян тем же seed пользователя.
func (d *Draw) Name(pos Position, seed uint64) (string, bool) {
	if int(pos) > d.slots || len(d.pool) == 0 {
		return Name(seed), false
	}

	r := rng(seed)
	i := r.IntN(len(d.pool))
	title := d.pool[i]
	d.pool = append(d.pool[:i], d.pool[i+1:]...)

	return title + " " + mythics[r.IntN(len(mythics))], true
}
