package main

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/aau-confessions/confession-hub/internal/application/command"
	"github.com/aau-confessions/confession-hub/internal/domain/achievement"
	"github.com/aau-confessions/confession-hub/internal/domain/points"
)

// demoEvents - события, из которых собирается история демо-пользователя.
// Повторы задают относительную частоту.
var demoEvents = []points.EventType{
	points.EventConfessionApproved,
	points.EventConfessionApproved,
	points.EventConfessionLiked,
	points.EventConfessionLiked,
	points.EventConfessionLiked,
	points.EventCommentPosted,
	points.EventCommentPosted,
	points.EventCommentReceived,
	points.EventCommentLiked,
	points.EventReactionGiven,
	points.EventDailyLogin,
	points.EventDailyLogin,
	points.EventConsecutiveDaysBonus,
	points.EventWeeklyActive,
	points.EventConfessionFeatured,
	points.EventContentRejected,
	points.EventContentReported,
}

var demoCategories = []string{"love", "study", "dorm", "campus", "work", "family"}

// seedDemo наполняет хранилище в памяти пользователями 1..n со случайной
// активностью и историей событий. Один и тот же seed даёт те же данные.
func seedDemo(ctx context.Context, rt *runtime, n int, seed int64) error {
	faker := gofakeit.New(uint64(seed))

	var awarded, unlocked int
	for i := 1; i <= n; i++ {
		userID := int64(i)
		rt.store.SetActivity(userID, randomActivity(faker))

		for e := faker.Number(5, 40); e > 0; e-- {
			res, err := rt.manager.Award(ctx, command.AwardPointsCommand{
				UserID:        userID,
				EventType:     demoEvents[faker.Number(0, len(demoEvents)-1)],
				Metadata:      randomMetadata(faker),
				CorrelationID: fmt.Sprintf("demo-%d-%d", userID, e),
			})
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			if res.TransactionID != "" {
				awarded++
			}
			unlocked += len(res.AchievementsUnlocked)
		}
	}

	rt.log.Info("demo data seeded",
		"users", n,
		"seed", seed,
		"events_awarded", awarded,
		"achievements_unlocked", unlocked,
	)
	return nil
}

func randomActivity(f *gofakeit.Faker) achievement.Activity {
	submitted := int64(f.Number(0, 60))
	return achievement.Activity{
		ConfessionsSubmitted: submitted,
		ConfessionsApproved:  submitted * int64(f.Number(50, 100)) / 100,
		LongConfessions:      int64(f.Number(0, 15)),
		LikesReceived:        int64(f.Number(0, 1500)),
		MaxLikesSingle:       int64(f.Number(0, 200)),
		DistinctCategories:   int64(f.Number(0, len(demoCategories))),
		NightPosts:           int64(f.Number(0, 20)),
		EarlyPosts:           int64(f.Number(0, 20)),
		WeekendPosts:         int64(f.Number(0, 30)),
		HolidayPosts:         int64(f.Number(0, 4)),
		ActiveSeasons:        int64(f.Number(0, 4)),
		CommentsPosted:       int64(f.Number(0, 300)),
		RepliesPosted:        int64(f.Number(0, 100)),
		PostsCommented:       int64(f.Number(0, 150)),
		CommentsReceived:     int64(f.Number(0, 400)),
		ReactionsGiven:       int64(f.Number(0, 800)),
		AccountAgeDays:       int64(f.Number(1, 400)),
	}
}

func randomMetadata(f *gofakeit.Faker) points.Metadata {
	return points.Metadata{
		ContentLength:   int64(f.Number(20, 1200)),
		QualityScore:    int64(f.Number(0, 10)),
		LikeCount:       int64(f.Number(0, 120)),
		ConsecutiveDays: int64(f.Number(1, 45)),
		Category:        f.RandomString(demoCategories),
	}
}
