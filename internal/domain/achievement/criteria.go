package achievement

import (
	"sort"
	"time"

	"github.com/aau-confessions/confession-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// Activity - агрегаты по контенту пользователя. Их считает внешнее
// хранилище постов и комментариев; движок их только читает.
type Activity struct {
	ConfessionsSubmitted int64 `json:"confessions_submitted"`
	ConfessionsApproved  int64 `json:"confessions_approved"`
	LongConfessions      int64 `json:"long_confessions"`
	LikesReceived        int64 `json:"likes_received"`
	MaxLikesSingle       int64 `json:"max_likes_single"`
	DistinctCategories   int64 `json:"distinct_categories"`
	NightPosts           int64 `json:"night_posts"`
	EarlyPosts           int64 `json:"early_posts"`
	WeekendPosts         int64 `json:"weekend_posts"`
	HolidayPosts         int64 `json:"holiday_posts"`
	ActiveSeasons        int64 `json:"active_seasons"`
	CommentsPosted       int64 `json:"comments_posted"`
	RepliesPosted        int64 `json:"replies_posted"`
	PostsCommented       int64 `json:"posts_commented"`
	CommentsReceived     int64 `json:"comments_received"`
	ReactionsGiven       int64 `json:"reactions_given"`
	AccountAgeDays       int64 `json:"account_age_days"`
}

// Stats - полный снимок статистики пользователя для оценки достижений.
// Поля вне Activity выводятся из леджера и таблицы разблокировок.
type Stats struct {
	UserID int64 `json:"user_id"`
	Activity

	ConfessionsFeatured  int64 `json:"confessions_featured"`
	DailyLogins          int64 `json:"daily_logins"`
	WeeklyActive         int64 `json:"weekly_active"`
	CurrentStreak        int64 `json:"current_streak"`
	BestStreak           int64 `json:"best_streak"`
	TotalPoints          int64 `json:"total_points"`
	RankLevel            int64 `json:"rank_level"`
	AchievementsUnlocked int64 `json:"achievements_unlocked"`
}

// LongConfessionLength - с какой длины признание считается длинным.
const LongConfessionLength = 500

// MinSubmissionsForRate - минимум отправок для критерия approval_rate.
const MinSubmissionsForRate = 10

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaType - тип условия достижения.
type CriteriaType string

const (
	CriteriaConfessionsSubmitted CriteriaType = "confessions_submitted"
	CriteriaConfessionsApproved  CriteriaType = "confessions_approved"
	CriteriaConfessionsFeatured  CriteriaType = "confessions_featured"
	CriteriaLongConfessions      CriteriaType = "long_confessions"
	CriteriaApprovalRate         CriteriaType = "approval_rate"
	CriteriaCommentsPosted       CriteriaType = "comments_posted"
	CriteriaRepliesPosted        CriteriaType = "replies_posted"
	CriteriaPostsCommented       CriteriaType = "posts_commented"
	CriteriaCommentsReceived     CriteriaType = "comments_received"
	CriteriaLikesReceived        CriteriaType = "likes_received"
	CriteriaMaxLikesSingle       CriteriaType = "max_likes_single"
	CriteriaReactionsGiven       CriteriaType = "reactions_given"
	CriteriaCurrentStreak        CriteriaType = "current_streak"
	CriteriaBestStreak           CriteriaType = "best_streak"
	CriteriaDailyLogins          CriteriaType = "daily_logins"
	CriteriaWeeklyActive         CriteriaType = "weekly_active"
	CriteriaTotalPoints          CriteriaType = "total_points"
	CriteriaRankLevel            CriteriaType = "rank_level"
	CriteriaDistinctCategories   CriteriaType = "distinct_categories"
	CriteriaNightPosts           CriteriaType = "night_posts"
	CriteriaEarlyPosts           CriteriaType = "early_posts"
	CriteriaWeekendPosts         CriteriaType = "weekend_posts"
	CriteriaHolidayPosts         CriteriaType = "holiday_posts"
	CriteriaActiveSeasons        CriteriaType = "active_seasons"
	CriteriaAccountAgeDays       CriteriaType = "account_age_days"
	CriteriaAchievementsUnlocked CriteriaType = "achievements_unlocked"
)

// measure извлекает значение критерия из статистики.
type measure func(s *Stats) int64

var measures = map[CriteriaType]measure{
	CriteriaConfessionsSubmitted: func(s *Stats) int64 { return s.ConfessionsSubmitted },
	CriteriaConfessionsApproved:  func(s *Stats) int64 { return s.ConfessionsApproved },
	CriteriaConfessionsFeatured:  func(s *Stats) int64 { return s.ConfessionsFeatured },
	CriteriaLongConfessions:      func(s *Stats) int64 { return s.LongConfessions },
	CriteriaApprovalRate:         approvalRate,
	CriteriaCommentsPosted:       func(s *Stats) int64 { return s.CommentsPosted },
	CriteriaRepliesPosted:        func(s *Stats) int64 { return s.RepliesPosted },
	CriteriaPostsCommented:       func(s *Stats) int64 { return s.PostsCommented },
	CriteriaCommentsReceived:     func(s *Stats) int64 { return s.CommentsReceived },
	CriteriaLikesReceived:        func(s *Stats) int64 { return s.LikesReceived },
	CriteriaMaxLikesSingle:       func(s *Stats) int64 { return s.MaxLikesSingle },
	CriteriaReactionsGiven:       func(s *Stats) int64 { return s.ReactionsGiven },
	CriteriaCurrentStreak:        func(s *Stats) int64 { return s.CurrentStreak },
	CriteriaBestStreak:           func(s *Stats) int64 { return max(s.BestStreak, s.CurrentStreak) },
	CriteriaDailyLogins:          func(s *Stats) int64 { return s.DailyLogins },
	CriteriaWeeklyActive:         func(s *Stats) int64 { return s.WeeklyActive },
	CriteriaTotalPoints:          func(s *Stats) int64 { return s.TotalPoints },
	CriteriaRankLevel:            func(s *Stats) int64 { return s.RankLevel },
	CriteriaDistinctCategories:   func(s *Stats) int64 { return s.DistinctCategories },
	CriteriaNightPosts:           func(s *Stats) int64 { return s.NightPosts },
	CriteriaEarlyPosts:           func(s *Stats) int64 { return s.EarlyPosts },
	CriteriaWeekendPosts:         func(s *Stats) int64 { return s.WeekendPosts },
	CriteriaHolidayPosts:         func(s *Stats) int64 { return s.HolidayPosts },
	CriteriaActiveSeasons:        func(s *Stats) int64 { return s.ActiveSeasons },
	CriteriaAccountAgeDays:       func(s *Stats) int64 { return s.AccountAgeDays },
	CriteriaAchievementsUnlocked: func(s *Stats) int64 { return s.AchievementsUnlocked },
}

// IsKnown возвращает true для зарегистрированного критерия.
func (c CriteriaType) IsKnown() bool {
	_, ok := measures[c]
	return ok
}

// approvalRate - процент одобренных признаний; 0, пока отправок меньше порога.
func approvalRate(s *Stats) int64 {
	if s.ConfessionsSubmitted < MinSubmissionsForRate {
		return 0
	}
	return s.ConfessionsApproved * 100 / s.ConfessionsSubmitted
}

// Measure возвращает текущее значение критерия для статистики.
// Неизвестный критерий даёт -1 и никогда не квалифицирует.
func Measure(c CriteriaType, s *Stats) int64 {
	m, ok := measures[c]
	if !ok || s == nil {
		return -1
	}
	return m(s)
}

// Qualifies проверяет условие достижения на снимке статистики.
func Qualifies(d Definition, s *Stats) bool {
	v := Measure(d.CriteriaType, s)
	return v >= 0 && v >= d.CriteriaValue
}

// Pending возвращает ещё не открытые достижения, условия которых выполнены.
// Порядок - порядок каталога.
func (c *Catalog) Pending(s *Stats, unlocked map[string]bool) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if unlocked[d.ID] {
			continue
		}
		if Qualifies(d, s) {
			out = append(out, d)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAKS
// ══════════════════════════════════════════════════════════════════════════════

// Streaks считает текущую и лучшую серию активных дней.
// days - моменты активности в любом порядке; текущая серия жива, если
// последний активный день - сегодня или вчера.
func Streaks(days []time.Time, now time.Time, loc *time.Location) (current, best int64) {
	if len(days) == 0 {
		return 0, 0
	}

	uniq := make(map[string]time.Time, len(days))
	for _, d := range days {
		day := timeutil.StartOfDay(d, loc)
		uniq[day.Format("2006-01-02")] = day
	}
	sorted := make([]time.Time, 0, len(uniq))
	for _, d := range uniq {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := int64(1)
	best = 1
	for i := 1; i < len(sorted); i++ {
		if timeutil.IsConsecutiveDay(sorted[i-1], sorted[i], loc) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}

	last := sorted[len(sorted)-1]
	if gap := timeutil.DaysBetween(last, now, loc); gap <= 1 {
		current = run
	}
	return current, best
}
